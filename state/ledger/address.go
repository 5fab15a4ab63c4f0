package ledger

import (
	"timelock/engine/library"
)

// DeriveAddress maps (domain, owner) to the address of a program controlled
// account. The same pair always yields the same address.
func DeriveAddress(domain string, owner library.Account) (library.Address, error) {
	b, err := library.DecodeAccount(owner)
	if err != nil {
		return "", err
	}
	return library.TaggedHash(domain, b), nil
}
