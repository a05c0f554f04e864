package board

import (
	"fmt"
	"strconv"
	"strings"
)

const MaxSize = 19
const MaxArea = MaxSize * MaxSize

type Stone uint8

const (
	Empty Stone = iota
	Black
	White
)

func (s Stone) Opponent() Stone {
	switch s {
	case Black:
		return White
	case White:
		return Black
	}
	return Empty
}

// Offset maps Black to 0 and White to 1.
func (s Stone) Offset() int {
	if s == White {
		return 1
	}
	return 0
}

func (s Stone) String() string {
	switch s {
	case Black:
		return "B"
	case White:
		return "W"
	}
	return "."
}

func ParseStone(s string) (Stone, error) {
	switch strings.ToUpper(s) {
	case "B", "BLACK":
		return Black, nil
	case "W", "WHITE":
		return White, nil
	}
	return Empty, fmt.Errorf("invalid stone %q", s)
}

// Point is a row-major index into the board; row 0 is the bottom row.
type Point int16

const NoPoint Point = -1

const columns = "ABCDEFGHJKLMNOPQRST"

func PointAt(size, x, y int) Point {
	return Point(y*size + x)
}

func (p Point) Coords(size int) (x, y int) {
	return int(p) % size, int(p) / size
}

// Format returns the point in "D4" notation.
func (p Point) Format(size int) string {
	if p == NoPoint {
		return "-"
	}
	x, y := p.Coords(size)
	return fmt.Sprintf("%c%d", columns[x], y+1)
}

func ParsePoint(size int, s string) (Point, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return NoPoint, fmt.Errorf("invalid point %q", s)
	}
	x := strings.IndexByte(columns, s[0])
	if x < 0 || x >= size {
		return NoPoint, fmt.Errorf("invalid column in %q", s)
	}
	row, err := strconv.Atoi(s[1:])
	if err != nil || row < 1 || row > size {
		return NoPoint, fmt.Errorf("invalid row in %q", s)
	}
	return PointAt(size, x, row-1), nil
}

type geometry struct {
	size int
	area int
	adj  [][]Point
	diag [][]Point
	edge []bool
}

var geometries [MaxSize + 1]*geometry

func init() {
	for size := 2; size <= MaxSize; size++ {
		geometries[size] = newGeometry(size)
	}
}

func newGeometry(size int) *geometry {
	g := &geometry{
		size: size,
		area: size * size,
		adj:  make([][]Point, size*size),
		diag: make([][]Point, size*size),
		edge: make([]bool, size*size),
	}
	on := func(x, y int) bool { return x >= 0 && x < size && y >= 0 && y < size }
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			p := PointAt(size, x, y)
			for _, d := range [4][2]int{{0, -1}, {-1, 0}, {1, 0}, {0, 1}} {
				if on(x+d[0], y+d[1]) {
					g.adj[p] = append(g.adj[p], PointAt(size, x+d[0], y+d[1]))
				}
			}
			for _, d := range [4][2]int{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}} {
				if on(x+d[0], y+d[1]) {
					g.diag[p] = append(g.diag[p], PointAt(size, x+d[0], y+d[1]))
				}
			}
			g.edge[p] = x == 0 || y == 0 || x == size-1 || y == size-1
		}
	}
	return g
}
