package searcher

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// TreePolicy picks the arm to follow at a node among its first horizon arms.
type TreePolicy interface {
	Select(n *Node, horizon int, src rand.Source) int
	Rave() bool
}

// ThompsonPolicy samples a Beta posterior per arm and follows the best draw.
// Prior probabilities count as PriorEquiv pseudo-trials.
type ThompsonPolicy struct {
	PriorEquiv float64
	UseRave    bool
	RaveEquiv  float64
}

func (p ThompsonPolicy) Rave() bool { return p.UseRave }

func (p ThompsonPolicy) Select(n *Node, horizon int, src rand.Source) int {
	best, bestU := 0, -1.0
	for j := 0; j < horizon; j++ {
		es, ef := p.Params(
			float64(n.trials[j].Load()),
			float64(n.succs[j].Load()),
			n.priors[j],
			float64(n.raveTrials[j].Load()),
			float64(n.raveSuccs[j].Load()),
		)
		if u := sampleBeta(es+1, ef+1, src); u > bestU {
			best, bestU = j, u
		}
	}
	return best
}

// Params returns the pseudo-success and pseudo-failure counts of an arm from
// its trials n, successes s, prior probability and AMAF counts rn, rs.
func (p ThompsonPolicy) Params(n, s, prior, rn, rs float64) (es, ef float64) {
	pn := p.PriorEquiv
	ps := prior * pn
	if !p.UseRave || rn == 0 {
		return max(0, s+ps), max(0, (n+pn)-(s+ps))
	}
	beta := BlendFactor(rn, n+pn, p.RaveEquiv)
	direct := 0.0
	if n+pn > 0 {
		direct = (s + ps) / (n + pn)
	}
	ev := max(0, 1-beta)*direct + beta*(rs/rn)
	return ev * (n + pn), max(0, 1-ev) * (n + pn)
}

// BlendFactor is the weight of the AMAF estimate after rn AMAF trials and n
// direct trials.
func BlendFactor(rn, n, raveEquiv float64) float64 {
	if rn == 0 {
		return 0
	}
	return rn / (rn + n + n*rn/raveEquiv)
}

// sampleBeta draws from Beta(a, b) as the ratio of two Gamma draws.
func sampleBeta(a, b float64, src rand.Source) float64 {
	xs := distuv.Gamma{Alpha: a, Beta: 1, Src: src}.Rand()
	xf := distuv.Gamma{Alpha: b, Beta: 1, Src: src}.Rand()
	return xs / (xs + xf)
}
