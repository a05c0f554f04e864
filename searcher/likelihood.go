package searcher

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// Number of Gauss-Legendre nodes on [0, 1]. Integer Beta parameters give
// polynomial integrands, which this many nodes integrate exactly up to
// degree 1023.
const quadratureNodes = 512

// Nodes of the inner integral of CrossGFactor, evaluated once per outer node.
const innerQuadratureNodes = 128

// Below this the regularised incomplete Beta is too close to underflow to
// divide by, and the inner integral is normalised in log space instead.
const minNormaliser = 1e-250

// Posterior returns the Beta parameters ThompsonPolicy samples arm j of n from.
func (p ThompsonPolicy) Posterior(n *Node, j int) (alpha, beta float64) {
	es, ef := p.Params(
		float64(n.trials[j].Load()),
		float64(n.succs[j].Load()),
		n.priors[j],
		float64(n.raveTrials[j].Load()),
		float64(n.raveSuccs[j].Load()),
	)
	return es + 1, ef + 1
}

// SelectionLikelihood is the probability that a Thompson draw over the arms
// Beta(alpha[j], beta[j]) picks arm d:
//
//	∫ p(u; alpha[d], beta[d]) ∏_{j≠d} F(u; alpha[j], beta[j]) du
func SelectionLikelihood(alpha, beta []float64, d int) float64 {
	integrand := likelihoodIntegrand(alpha, beta, d)
	return quad.Fixed(integrand, 0, 1, quadratureNodes, quad.Legendre{}, 0)
}

// DiagonalGFactor is the score-function term of the selection likelihood of
// arm d with respect to its own posterior, scaled by priorEquiv:
//
//	priorEquiv * ∫ (ln(u/(1-u)) - (ψ(alpha[d]) - ψ(beta[d]))) L_d(u) du
//
// where L_d is the likelihood integrand.
func DiagonalGFactor(alpha, beta []float64, d int, priorEquiv float64) float64 {
	integrand := likelihoodIntegrand(alpha, beta, d)
	shift := mathext.Digamma(alpha[d]) - mathext.Digamma(beta[d])
	g := func(u float64) float64 {
		return (math.Log(u/(1-u)) - shift) * integrand(u)
	}
	return priorEquiv * quad.Fixed(g, 0, 1, quadratureNodes, quad.Legendre{}, 0)
}

// CrossGFactor is the score-function term of the selection likelihood of arm
// d with respect to the posterior of another arm j, scaled by priorEquiv:
//
//	priorEquiv * ∫ (I_j(u)/F_j(u) - (ψ(alpha[j]) - ψ(beta[j]))) L_d(u) du
//
// where I_j(u) = ∫_0^u ln(t/(1-t)) p(t; alpha[j], beta[j]) dt and F_j is the
// Beta CDF of arm j.
func CrossGFactor(alpha, beta []float64, d, j int, priorEquiv float64) float64 {
	integrand := likelihoodIntegrand(alpha, beta, d)
	if j < 0 || j >= len(alpha) {
		panic("searcher: bad cross g-factor arm")
	}
	dist := distuv.Beta{Alpha: alpha[j], Beta: beta[j]}
	shift := mathext.Digamma(alpha[j]) - mathext.Digamma(beta[j])
	g := func(u float64) float64 {
		l := integrand(u)
		if l == 0 {
			return 0
		}
		return (truncatedLogitMean(dist, u) - shift) * l
	}
	return priorEquiv * quad.Fixed(g, 0, 1, quadratureNodes, quad.Legendre{}, 0)
}

// truncatedLogitMean is E[ln(t/(1-t)) | t < u] for t ~ dist.
func truncatedLogitMean(dist distuv.Beta, u float64) float64 {
	logit := func(t float64) float64 { return math.Log(t / (1 - t)) }
	if norm := mathext.RegIncBeta(dist.Alpha, dist.Beta, u); norm > minNormaliser {
		inner := func(t float64) float64 { return logit(t) * dist.Prob(t) }
		if m := quad.Fixed(inner, 0, u, innerQuadratureNodes, quad.Legendre{}, 0) / norm; !math.IsNaN(m) && !math.IsInf(m, 0) {
			return m
		}
	}

	// Weigh the nodes by their densities relative to the largest one, so
	// that the common factor cancels instead of underflowing.
	xs := make([]float64, innerQuadratureNodes)
	ws := make([]float64, innerQuadratureNodes)
	quad.Legendre{}.FixedLocations(xs, ws, 0, u)
	top := math.Inf(-1)
	lps := make([]float64, len(xs))
	for i, t := range xs {
		lps[i] = dist.LogProb(t)
		top = max(top, lps[i])
	}
	var num, den float64
	for i, t := range xs {
		w := ws[i] * math.Exp(lps[i]-top)
		num += w * logit(t)
		den += w
	}
	if den > 0 && !math.IsInf(top, 0) {
		return num / den
	}
	return logit(u)
}

// GFactors returns, for every arm within the horizon of n, the g-factor of
// the selection likelihood of arm d: the diagonal term at d and cross terms
// elsewhere.
func (p ThompsonPolicy) GFactors(n *Node, horizon, d int) []float64 {
	alpha := make([]float64, horizon)
	beta := make([]float64, horizon)
	for j := 0; j < horizon; j++ {
		alpha[j], beta[j] = p.Posterior(n, j)
	}
	out := make([]float64, horizon)
	for j := range out {
		if j == d {
			out[j] = DiagonalGFactor(alpha, beta, d, p.PriorEquiv)
		} else {
			out[j] = CrossGFactor(alpha, beta, d, j, p.PriorEquiv)
		}
	}
	return out
}

func likelihoodIntegrand(alpha, beta []float64, d int) func(float64) float64 {
	if len(alpha) != len(beta) || d < 0 || d >= len(alpha) {
		panic("searcher: bad selection likelihood arguments")
	}
	dists := make([]distuv.Beta, len(alpha))
	for j := range alpha {
		dists[j] = distuv.Beta{Alpha: alpha[j], Beta: beta[j]}
	}
	return func(u float64) float64 {
		x := dists[d].Prob(u)
		for j := range dists {
			if j != d {
				x *= dists[j].CDF(u)
			}
		}
		return x
	}
}

// Likelihoods returns the selection likelihood of every arm within the
// horizon of n under the current counters.
func (p ThompsonPolicy) Likelihoods(n *Node, horizon int) []float64 {
	alpha := make([]float64, horizon)
	beta := make([]float64, horizon)
	for j := 0; j < horizon; j++ {
		alpha[j], beta[j] = p.Posterior(n, j)
	}
	out := make([]float64, horizon)
	for d := range out {
		out[d] = SelectionLikelihood(alpha, beta, d)
	}
	return out
}
