package library

type Wallet struct {
	PrivateKey string
	SeedWords  string
	Account    Account
}

// Account is the hex encoded x-only schnorr public key of a participant.
type Account = string

// Address is the hex encoded 32 byte address of a program controlled account.
type Address = string

type Sha256 = string
