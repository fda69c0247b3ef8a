// Package glicko implements the Glicko-2 rating period update for a single
// competitor.
//
// The engine works on the Glicko-2 scale (mu, phi) internally and reports
// results on the public scale. It keeps no state between calls, so one
// Engine can be shared by any number of goroutines.
//
// See http://www.glicko.net/glicko/glicko2.pdf for the derivation.
package glicko

import (
	"fmt"
	"math"

	"github.com/okian/glicko/internal/domain/model"
)

// Default engine configuration constants.
const (
	defaultTau           = 0.3
	defaultTolerance     = 1e-6
	defaultMaxIterations = 100
)

// Result is a competitor's state for the next rating period.
type Result struct {
	Rating          float64
	RatingDeviation float64
	Volatility      float64
	// Iterations is the number of regula falsi steps spent on the volatility.
	Iterations int
}

// Engine computes Glicko-2 updates.
type Engine struct {
	tau           float64
	tolerance     float64
	maxIterations int
}

// New creates an Engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		tau:           defaultTau,
		tolerance:     defaultTolerance,
		maxIterations: defaultMaxIterations,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Tau returns the configured volatility change constraint.
func (e *Engine) Tau() float64 { return e.tau }

// Compute runs one rating period update for subject. opponents and outcomes
// are parallel: outcomes[i] holds every score subject achieved against
// opponents[i] in the period. Inputs are never modified.
func (e *Engine) Compute(subject model.Competitor, opponents []model.Competitor, outcomes [][]float64) (Result, error) {
	if err := validate(subject, opponents, outcomes); err != nil {
		return Result{}, err
	}

	mu, phi := ToGlicko2(subject.Rating, subject.RatingDeviation)
	sigma := subject.Volatility

	// Idle period: only the uncertainty grows.
	if len(opponents) == 0 {
		_, rd := FromGlicko2(mu, math.Hypot(phi, sigma))
		if !finite(rd) || rd <= 0 {
			return Result{}, fmt.Errorf("%w: idle update for %q produced rd=%v", ErrDegenerateInput, subject.ID, rd)
		}
		return Result{Rating: subject.Rating, RatingDeviation: rd, Volatility: sigma}, nil
	}

	// One pass gives both the inverse variance and the outcome sum; g and E
	// are per opponent, the outcome sum is per game.
	var inverseVariance, outcomeSum float64
	for i, opp := range opponents {
		muJ, phiJ := ToGlicko2(opp.Rating, opp.RatingDeviation)
		g := G(phiJ)
		expected := E(mu, muJ, g)
		inverseVariance += g * g * expected * (1 - expected)
		for _, s := range outcomes[i] {
			outcomeSum += g * (s - expected)
		}
	}
	if inverseVariance == 0 || !finite(inverseVariance) {
		return Result{}, fmt.Errorf("%w: inverse variance is %v for %q", ErrDegenerateInput, inverseVariance, subject.ID)
	}

	v := 1 / inverseVariance
	delta := v * outcomeSum
	if !finite(phi*phi+v) || !finite(delta*delta) {
		return Result{}, fmt.Errorf("%w: phi=%v v=%v delta=%v for %q are out of range", ErrDegenerateInput, phi, v, delta, subject.ID)
	}

	newSigma, iterations, err := e.volatility(delta, phi, v, sigma)
	if err != nil {
		return Result{}, fmt.Errorf("competitor %q: %w", subject.ID, err)
	}
	if !finite(newSigma) || newSigma*newSigma == 0 {
		return Result{}, fmt.Errorf("%w: volatility of %q collapsed to %v", ErrDegenerateInput, subject.ID, newSigma)
	}

	phiStar := math.Sqrt(phi*phi + newSigma*newSigma)
	newPhi := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	newMu := mu + newPhi*newPhi*outcomeSum

	rating, rd := FromGlicko2(newMu, newPhi)
	if !finite(rating) || !finite(rd) || rd <= 0 {
		return Result{}, fmt.Errorf("%w: update for %q produced rating=%v rd=%v", ErrDegenerateInput, subject.ID, rating, rd)
	}

	return Result{
		Rating:          rating,
		RatingDeviation: rd,
		Volatility:      newSigma,
		Iterations:      iterations,
	}, nil
}

// volatility solves f(x) = 0 with the Illinois variant of regula falsi and
// returns sigma' = exp(x/2) together with the number of steps taken.
func (e *Engine) volatility(delta, phi, v, sigma float64) (float64, int, error) {
	f := volatilityObjective(delta, phi, v, sigma, e.tau)

	a := math.Log(sigma * sigma)
	if !finite(a) {
		return 0, 0, fmt.Errorf("%w: volatility %v is out of range", ErrDegenerateInput, sigma)
	}
	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1
		for f(a-float64(k)*e.tau) < 0 {
			k++
			if k > e.maxIterations {
				return 0, 0, fmt.Errorf("%w: no bracket within %d steps of tau", ErrNonConvergence, e.maxIterations)
			}
		}
		B = a - float64(k)*e.tau
	}

	fA, fB := f(A), f(B)
	iterations := 0
	// A NaN gap keeps iterating and is caught below.
	for !(math.Abs(B-A) <= e.tolerance) {
		if iterations >= e.maxIterations {
			return 0, iterations, fmt.Errorf("%w: |B-A|=%g after %d iterations", ErrNonConvergence, math.Abs(B-A), iterations)
		}
		iterations++

		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if !finite(C) || !finite(fC) || !finite(fB-fA) {
			return 0, iterations, fmt.Errorf("%w: objective is not finite at step %d", ErrNonConvergence, iterations)
		}
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}

	return math.Exp(A / 2), iterations, nil
}

// validate rejects inputs for which the update is undefined.
func validate(subject model.Competitor, opponents []model.Competitor, outcomes [][]float64) error {
	if err := validateCompetitor(subject); err != nil {
		return err
	}
	if len(opponents) != len(outcomes) {
		return fmt.Errorf("%w: %d opponents but %d outcome lists", ErrInvalidInput, len(opponents), len(outcomes))
	}
	for i, opp := range opponents {
		if err := validateCompetitor(opp); err != nil {
			return err
		}
		if len(outcomes[i]) == 0 {
			return fmt.Errorf("%w: no outcomes against opponent %q", ErrInvalidInput, opp.ID)
		}
		for _, s := range outcomes[i] {
			if !model.ValidScore(s) {
				return fmt.Errorf("%w: outcome %v against %q is not 0, 0.5 or 1", ErrInvalidInput, s, opp.ID)
			}
		}
	}
	return nil
}

// CheckState reports whether c is a state the engine can carry through a
// rating period: finite, with a positive rating deviation and volatility
// whose squares stay representable on the Glicko-2 scale.
func CheckState(c model.Competitor) error {
	if err := validateCompetitor(c); err != nil {
		return err
	}
	_, phi := ToGlicko2(c.Rating, c.RatingDeviation)
	if !finite(phi*phi) || !finite(c.Volatility*c.Volatility) || c.Volatility*c.Volatility == 0 {
		return fmt.Errorf("%w: rating deviation %v or volatility %v of %q is out of range",
			ErrDegenerateInput, c.RatingDeviation, c.Volatility, c.ID)
	}
	return nil
}

func validateCompetitor(c model.Competitor) error {
	switch {
	case !finite(c.Rating):
		return fmt.Errorf("%w: rating of %q is %v", ErrInvalidInput, c.ID, c.Rating)
	case !finite(c.RatingDeviation) || c.RatingDeviation <= 0:
		return fmt.Errorf("%w: rating deviation of %q must be positive, got %v", ErrInvalidInput, c.ID, c.RatingDeviation)
	case !finite(c.Volatility) || c.Volatility <= 0:
		return fmt.Errorf("%w: volatility of %q must be positive, got %v", ErrInvalidInput, c.ID, c.Volatility)
	}
	return nil
}
