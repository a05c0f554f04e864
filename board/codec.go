package board

import (
	"errors"
	"fmt"
)

var ErrBadEncoding = errors.New("bad board encoding")

// Encode writes the stones row-major from the bottom row: '.' empty, 'X'
// black, 'O' white.
func (pos *Position) Encode() string {
	buf := make([]byte, len(pos.stones))
	for p, s := range pos.stones {
		switch s {
		case Black:
			buf[p] = 'X'
		case White:
			buf[p] = 'O'
		default:
			buf[p] = '.'
		}
	}
	return string(buf)
}

// Decode rebuilds a position from Encode output. Ko and capture counts are
// not part of the encoding.
func Decode(size int, s string) (*Position, error) {
	if size < 2 || size > MaxSize {
		return nil, fmt.Errorf("%w: unsupported size %d", ErrBadEncoding, size)
	}
	if len(s) != size*size {
		return nil, fmt.Errorf("%w: %d points for size %d", ErrBadEncoding, len(s), size)
	}
	pos := NewPosition(size)
	for p := 0; p < len(s); p++ {
		var st Stone
		switch s[p] {
		case '.':
			continue
		case 'X':
			st = Black
		case 'O':
			st = White
		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrBadEncoding, s[p])
		}
		if d := pos.Place(st, Point(p)); len(d.Captured) > 0 {
			return nil, fmt.Errorf("%w: group without liberties", ErrBadEncoding)
		}
	}
	for p := range pos.stones {
		if pos.stones[p] != Empty && pos.Liberties(Point(p)) == 0 {
			return nil, fmt.Errorf("%w: group without liberties at %s", ErrBadEncoding, Point(p).Format(size))
		}
	}
	pos.setKo(NoPoint, Empty)
	pos.captures = [2]int{}
	return pos, nil
}

// SetKo marks p as banned for s, as when a decoded position is resumed.
func (pos *Position) SetKo(p Point, s Stone) {
	pos.setKo(p, s)
}
