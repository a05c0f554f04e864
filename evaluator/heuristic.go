package evaluator

import (
	"context"

	"baduk/board"
)

const passWeight = 0.01

// Uniform spreads probability evenly over the legal points and values a
// position by its Tromp-Taylor score.
type Uniform struct{}

func (Uniform) Evaluate(ctx context.Context, batch []Request) ([]Response, error) {
	out := make([]Response, len(batch))
	for i, req := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pos, turn, err := req.Position()
		if err != nil {
			return nil, err
		}
		priors := make([]float64, pos.Area()+1)
		for p := 0; p < pos.Area(); p++ {
			if pos.Check(turn, board.Point(p)) == board.Legal {
				priors[p] = 1
			}
		}
		priors[pos.Area()] = passWeight
		out[i] = Response{Priors: normalise(priors), Value: pos.Score(req.Komi)}
	}
	return out, nil
}

// Heuristic weights legal points by simple tactical features and values a
// position by distance-based territory.
type Heuristic struct{}

func (Heuristic) Evaluate(ctx context.Context, batch []Request) ([]Response, error) {
	out := make([]Response, len(batch))
	for i, req := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pos, turn, err := req.Position()
		if err != nil {
			return nil, err
		}
		out[i] = Response{Priors: heuristicPriors(pos, turn), Value: influenceScore(pos, req.Komi)}
	}
	return out, nil
}

func heuristicPriors(pos *board.Position, turn board.Stone) []float64 {
	size := pos.Size()
	priors := make([]float64, pos.Area()+1)
	for p := 0; p < pos.Area(); p++ {
		pt := board.Point(p)
		if pos.Check(turn, pt) != board.Legal || pos.IsEyelike(turn, pt) {
			continue
		}
		w := 1.0
		for _, n := range pos.Neighbours(pt) {
			switch s := pos.At(n); {
			case s == turn.Opponent() && pos.Liberties(n) == 1:
				w += 4
			case s == turn && pos.Liberties(n) == 1:
				w += 3
			case s != board.Empty:
				w += 0.5
			}
		}
		x, y := pt.Coords(size)
		if size > 5 && (x == 0 || y == 0 || x == size-1 || y == size-1) {
			w *= 0.3
		}
		priors[p] = w
	}
	priors[pos.Area()] = passWeight
	return normalise(priors)
}

// influenceScore gives each empty point to the colour with the nearer stone
// and returns White minus Black plus komi.
func influenceScore(pos *board.Position, komi float64) float64 {
	black := distances(pos, board.Black)
	white := distances(pos, board.White)
	score := komi
	for p := 0; p < pos.Area(); p++ {
		switch pos.At(board.Point(p)) {
		case board.Black:
			score--
		case board.White:
			score++
		default:
			switch {
			case black[p] < white[p]:
				score--
			case white[p] < black[p]:
				score++
			}
		}
	}
	return score
}

func distances(pos *board.Position, s board.Stone) []int {
	const far = 1 << 30
	dist := make([]int, pos.Area())
	queue := make([]board.Point, 0, pos.Area())
	for p := range dist {
		dist[p] = far
		if pos.At(board.Point(p)) == s {
			dist[p] = 0
			queue = append(queue, board.Point(p))
		}
	}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, n := range pos.Neighbours(p) {
			if dist[n] == far && pos.At(n) == board.Empty {
				dist[n] = dist[p] + 1
				queue = append(queue, n)
			}
		}
	}
	return dist
}

func normalise(w []float64) []float64 {
	sum := 0.0
	for _, x := range w {
		sum += x
	}
	if sum == 0 {
		return w
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}
