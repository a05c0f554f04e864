package txnstate

import "baduk/board"

const (
	FeaturePlanes = 2 // black stones, white stones
	FeatureSteps  = 2 // current and previous position
)

// Features keeps stone planes for the last FeatureSteps positions. Planes are
// stored newest last in a ring of steps, each step laid out as
// [black plane | white plane] of one byte per point.
type Features struct {
	area   int
	step   int
	planes []uint8
}

func NewFeatures() *Features {
	return &Features{}
}

// FeatureLen is the number of bytes Relative writes for a board of size.
func FeatureLen(size int) int {
	return FeatureSteps * FeaturePlanes * size * size
}

func (f *Features) slice(step int) []uint8 {
	n := FeaturePlanes * f.area
	return f.planes[step*n : (step+1)*n]
}

// Reset fills every step with pos, since no earlier history is known.
func (f *Features) Reset(pos *board.Position) {
	f.area = pos.Area()
	f.step = 0
	if cap(f.planes) >= FeatureSteps*FeaturePlanes*f.area {
		f.planes = f.planes[:FeatureSteps*FeaturePlanes*f.area]
	} else {
		f.planes = make([]uint8, FeatureSteps*FeaturePlanes*f.area)
	}
	cur := f.slice(0)
	for p := 0; p < f.area; p++ {
		s := pos.At(board.Point(p))
		cur[p] = boolByte(s == board.Black)
		cur[f.area+p] = boolByte(s == board.White)
	}
	for t := 1; t < FeatureSteps; t++ {
		copy(f.slice(t), cur)
	}
}

// Update advances one step and applies the delta: the placed stone and the
// captured points. Passes advance the step without changing the planes.
func (f *Features) Update(_ *board.Position, turn board.Stone, action Action, delta board.Delta) {
	prev := f.slice(f.step)
	f.step = (f.step + 1) % FeatureSteps
	cur := f.slice(f.step)
	copy(cur, prev)

	if !action.IsPlace() {
		return
	}
	own, opp := 0, f.area
	if turn == board.White {
		own, opp = opp, own
	}
	p := int(delta.Placed)
	cur[own+p], cur[opp+p] = 1, 0
	for _, q := range delta.Captured {
		cur[f.area+int(q)] = 0
		cur[int(q)] = 0
	}
}

// At reports the feature of plane at point p, steps positions ago.
func (f *Features) At(ago, plane int, p board.Point) uint8 {
	t := ((f.step-ago)%FeatureSteps + FeatureSteps) % FeatureSteps
	return f.slice(t)[plane*f.area+int(p)]
}

// Relative writes the planes into dst, newest step first, with the stones of
// turn in the first plane of each step and the opponent's in the second.
// dst is grown if it is too short and returned.
func (f *Features) Relative(turn board.Stone, dst []uint8) []uint8 {
	n := FeatureSteps * FeaturePlanes * f.area
	if cap(dst) < n {
		dst = make([]uint8, n)
	}
	dst = dst[:n]
	for ago := 0; ago < FeatureSteps; ago++ {
		src := f.slice(((f.step-ago)%FeatureSteps + FeatureSteps) % FeatureSteps)
		out := dst[ago*FeaturePlanes*f.area : (ago+1)*FeaturePlanes*f.area]
		if turn == board.White {
			copy(out[:f.area], src[f.area:])
			copy(out[f.area:], src[:f.area])
		} else {
			copy(out, src)
		}
	}
	return dst
}

func (f *Features) Clone() AuxData {
	return &Features{area: f.area, step: f.step, planes: append([]uint8(nil), f.planes...)}
}

// CopyFrom overwrites f with src when src is also a feature set.
func (f *Features) CopyFrom(src AuxData) bool {
	o, ok := src.(*Features)
	if !ok {
		return false
	}
	f.area, f.step = o.area, o.step
	f.planes = append(f.planes[:0], o.planes...)
	return true
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
