package board

// AreaCount returns the Tromp-Taylor area of each side, indexed by Offset: stones
// on the board plus empty regions that reach only that colour.
func (pos *Position) AreaCount() [2]int {
	var area [2]int
	seen := make([]bool, pos.geo.area)
	stack := make([]Point, 0, 32)
	region := make([]Point, 0, 32)

	for p := range pos.stones {
		s := pos.stones[p]
		if s != Empty {
			area[s.Offset()]++
			continue
		}
		if seen[p] {
			continue
		}
		var reach [3]bool
		region = region[:0]
		stack = append(stack[:0], Point(p))
		seen[p] = true
		for len(stack) > 0 {
			q := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			region = append(region, q)
			for _, n := range pos.geo.adj[q] {
				ns := pos.stones[n]
				if ns != Empty {
					reach[ns] = true
					continue
				}
				if !seen[n] {
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
		if reach[Black] && !reach[White] {
			area[Black.Offset()] += len(region)
		} else if reach[White] && !reach[Black] {
			area[White.Offset()] += len(region)
		}
	}
	return area
}

// Score returns White's area minus Black's area plus komi. Positive values
// favour White.
func (pos *Position) Score(komi float64) float64 {
	area := pos.AreaCount()
	return float64(area[White.Offset()]-area[Black.Offset()]) + komi
}
