package glicko

import (
	"math"

	"github.com/okian/glicko/internal/domain/model"
)

// Scale converts between the public rating scale and the Glicko-2 scale.
const (
	Scale      = 173.7178
	BaseRating = 1500.0
)

// ToGlicko2 converts a rating and rating deviation to mu and phi.
func ToGlicko2(rating, ratingDeviation float64) (mu, phi float64) {
	return (rating - BaseRating) / Scale, ratingDeviation / Scale
}

// FromGlicko2 converts mu and phi back to a rating and rating deviation.
func FromGlicko2(mu, phi float64) (rating, ratingDeviation float64) {
	return Scale*mu + BaseRating, Scale * phi
}

// G discounts an opponent by the uncertainty of its own rating.
func G(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

// E is the expected score of a competitor at mu against an opponent at muJ
// whose discount factor is g.
func E(mu, muJ, g float64) float64 {
	return 1 / (1 + math.Exp(-g*(mu-muJ)))
}

// ExpectedScore is the probability that subject beats opponent, counting a
// draw as half a win.
func ExpectedScore(subject, opponent model.Competitor) float64 {
	mu, _ := ToGlicko2(subject.Rating, subject.RatingDeviation)
	muJ, phiJ := ToGlicko2(opponent.Rating, opponent.RatingDeviation)
	return E(mu, muJ, G(phiJ))
}

// volatilityObjective returns f(x) for the volatility update; its root is ln(sigma'^2).
func volatilityObjective(delta, phi, v, sigma, tau float64) func(x float64) float64 {
	a := math.Log(sigma * sigma)
	d2 := delta * delta
	p2 := phi * phi
	return func(x float64) float64 {
		ex := math.Exp(x)
		den := p2 + v + ex
		return ex*(d2-p2-v-ex)/(2*den*den) - (x-a)/(tau*tau)
	}
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
