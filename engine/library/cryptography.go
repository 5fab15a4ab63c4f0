package library

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func Sha256Sum(data interface{}) Sha256 {
	var b []byte
	switch d := data.(type) {
	case string:
		b = []byte(d)
	case []byte:
		b = d
	default:
		LogCLI("attempted to hash non-string or non-[]byte", 0)
	}
	h := sha256.New()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// TaggedHash is the BIP-340 tagged hash of msgs under tag, hex encoded.
func TaggedHash(tag string, msgs ...[]byte) Sha256 {
	h := chainhash.TaggedHash([]byte(tag), msgs...)
	return hex.EncodeToString(h[:])
}

// DecodeAccount returns the raw 32 bytes of a hex account.
func DecodeAccount(account Account) ([]byte, error) {
	if len(account) != 64 {
		return nil, fmt.Errorf("account %q is not 64 hex characters", account)
	}
	b, err := hex.DecodeString(account)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", account, err)
	}
	return b, nil
}
