package board

// IsEyeish reports whether the empty point p is surrounded by stones of colour
// s whose chains each have at least two liberties.
func (pos *Position) IsEyeish(s Stone, p Point) bool {
	if pos.stones[p] != Empty {
		return false
	}
	for _, n := range pos.geo.adj[p] {
		if pos.stones[n] != s {
			return false
		}
		if !pos.chains[pos.head[n]].libs.atLeast(2) {
			return false
		}
	}
	return true
}

// IsEyelike applies the 2/4 rule on top of IsEyeish: fewer than two false
// diagonals, with the board edge counting as one. Some true eyes, such as
// those of a two-headed dragon, are not detected.
func (pos *Position) IsEyelike(s Stone, p Point) bool {
	if !pos.IsEyeish(s, p) {
		return false
	}
	falseCount := 0
	if pos.geo.edge[p] {
		falseCount = 1
	}
	opp := s.Opponent()
	for _, d := range pos.geo.diag[p] {
		if pos.stones[d] == opp {
			falseCount++
		}
	}
	return falseCount < 2
}
