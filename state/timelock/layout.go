package timelock

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"timelock/engine/library"
)

// AccountSize is the length of an encoded LockAccount:
// discriminator(8) owner(32) amount(8) unlock_time(8) created_at(8).
const AccountSize = 8 + 32 + 8 + 8 + 8

var accountDiscriminator = func() []byte {
	h := sha256.Sum256([]byte("account:LockAccount"))
	return h[:8]
}()

// Encode writes l in the fixed little endian record layout.
func (l LockAccount) Encode() ([]byte, error) {
	owner, err := library.DecodeAccount(l.Owner)
	if err != nil {
		return nil, err
	}
	b := make([]byte, AccountSize)
	copy(b[0:8], accountDiscriminator)
	copy(b[8:40], owner)
	binary.LittleEndian.PutUint64(b[40:48], l.Amount)
	binary.LittleEndian.PutUint64(b[48:56], uint64(l.UnlockTime))
	binary.LittleEndian.PutUint64(b[56:64], uint64(l.CreatedAt))
	return b, nil
}

func DecodeLockAccount(b []byte) (l LockAccount, err error) {
	if len(b) != AccountSize {
		return l, fmt.Errorf("%w: %d bytes, expected %d", ErrCorruptAccount, len(b), AccountSize)
	}
	if !bytes.Equal(b[0:8], accountDiscriminator) {
		return l, fmt.Errorf("%w: wrong discriminator %x", ErrCorruptAccount, b[0:8])
	}
	l.Owner = hex.EncodeToString(b[8:40])
	l.Amount = binary.LittleEndian.Uint64(b[40:48])
	l.UnlockTime = int64(binary.LittleEndian.Uint64(b[48:56]))
	l.CreatedAt = int64(binary.LittleEndian.Uint64(b[56:64]))
	return l, nil
}
