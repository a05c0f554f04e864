package board

import "math/bits"

const bitsetWords = (MaxArea + 63) / 64

// bitset holds one bit per board point.
type bitset [bitsetWords]uint64

func (b *bitset) set(p Point)      { b[p>>6] |= 1 << (uint(p) & 63) }
func (b *bitset) clear(p Point)    { b[p>>6] &^= 1 << (uint(p) & 63) }
func (b *bitset) has(p Point) bool { return b[p>>6]&(1<<(uint(p)&63)) != 0 }

func (b *bitset) or(o *bitset) {
	for i := range b {
		b[i] |= o[i]
	}
}

func (b *bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// atLeast reports whether the set holds at least k bits, stopping early.
func (b *bitset) atLeast(k int) bool {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
		if n >= k {
			return true
		}
	}
	return false
}

func (b *bitset) forEach(f func(Point)) {
	for i, w := range b {
		for w != 0 {
			t := bits.TrailingZeros64(w)
			f(Point(i*64 + t))
			w &= w - 1
		}
	}
}

// chain is the record kept at a group's head point.
type chain struct {
	size int16
	libs bitset
}
