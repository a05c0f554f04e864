package board

import "golang.org/x/exp/rand"

var (
	stoneKeys [MaxArea][3]uint64
	koKeys    [MaxArea]uint64
	turnKeys  [3]uint64
)

func init() {
	rng := rand.New(rand.NewSource(0x9e3779b97f4a7c15))
	for p := range stoneKeys {
		stoneKeys[p][Black] = rng.Uint64()
		stoneKeys[p][White] = rng.Uint64()
		koKeys[p] = rng.Uint64()
	}
	turnKeys[Black] = rng.Uint64()
	turnKeys[White] = rng.Uint64()
}

// Hash returns a Zobrist hash of the stones, the ko point and the side to move.
func (pos *Position) Hash(turn Stone) uint64 {
	var h uint64
	for p, s := range pos.stones {
		if s != Empty {
			h ^= stoneKeys[p][s]
		}
	}
	if pos.ko != NoPoint {
		h ^= koKeys[pos.ko]
	}
	return h ^ turnKeys[turn]
}
