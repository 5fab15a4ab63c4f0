package blocks

import (
	"time"

	"timelock/engine/library"
)

// KindBlockHeader events announce a new bitcoin tip.
const KindBlockHeader = 1517

type Block struct {
	Height     int64
	Hash       library.Sha256
	MedianTime time.Time
	MinerTime  time.Time
	Difficulty int64
}

type Mapped map[int64]Block
