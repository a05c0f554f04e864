package txnstate

import (
	"fmt"
	"strings"

	"baduk/board"
)

type ActionKind uint8

const (
	PlaceKind ActionKind = iota
	PassKind
	ResignKind
)

type Action struct {
	Kind  ActionKind
	Point board.Point
}

var (
	Pass   = Action{Kind: PassKind, Point: board.NoPoint}
	Resign = Action{Kind: ResignKind, Point: board.NoPoint}
)

func Place(p board.Point) Action {
	return Action{Kind: PlaceKind, Point: p}
}

func (a Action) IsPlace() bool { return a.Kind == PlaceKind }

func (a Action) Format(size int) string {
	switch a.Kind {
	case PassKind:
		return "pass"
	case ResignKind:
		return "resign"
	}
	return a.Point.Format(size)
}

func ParseAction(size int, s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass":
		return Pass, nil
	case "resign":
		return Resign, nil
	}
	p, err := board.ParsePoint(size, s)
	if err != nil {
		return Action{}, fmt.Errorf("parse action: %w", err)
	}
	return Place(p), nil
}
