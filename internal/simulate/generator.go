package simulate

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/glicko/internal/domain/model"
)

// Strength distribution of simulated competitors.
const (
	strengthMean   = 1500.0
	strengthStdDev = 300.0
	// drawMargin is the half-width of the band around the win probability
	// that produces a draw.
	drawMargin = 0.05
)

// generateCompetitors creates n competitors with UUID IDs and normally
// distributed strengths.
func generateCompetitors(rng *rand.Rand, n int) []Competitor {
	out := make([]Competitor, n)
	for i := range out {
		out[i] = Competitor{
			ID:       uuid.NewString(),
			Strength: strengthMean + rng.NormFloat64()*strengthStdDev,
		}
	}
	return out
}

// winProbability is the logistic chance that a strength sa beats sb.
func winProbability(sa, sb float64) float64 {
	return 1 / (1 + math.Pow(10, (sb-sa)/400))
}

// drawOutcome samples the home score of a game between home and away.
func drawOutcome(rng *rand.Rand, home, away Competitor) float64 {
	p := winProbability(home.Strength, away.Strength)
	u := rng.Float64()
	switch {
	case math.Abs(u-p) < drawMargin:
		return model.Draw
	case u < p:
		return model.Win
	default:
		return model.Loss
	}
}

// generateMatches pairs random distinct competitors n times.
func generateMatches(rng *rand.Rand, competitors []Competitor, n int) []MatchRequest {
	if len(competitors) < 2 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	out := make([]MatchRequest, n)
	for i := range out {
		a := rng.IntN(len(competitors))
		b := rng.IntN(len(competitors) - 1)
		if b >= a {
			b++
		}
		home, away := competitors[a], competitors[b]
		out[i] = MatchRequest{
			MatchID:   uuid.NewString(),
			HomeID:    home.ID,
			AwayID:    away.ID,
			HomeScore: drawOutcome(rng, home, away),
			PlayedAt:  now,
		}
	}
	return out
}

// concordance returns the share of entry pairs whose rating order agrees
// with the order of their hidden strengths.
func concordance(entries []Entry, strengths map[string]float64) float64 {
	var agree, total int
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			si, oki := strengths[entries[i].CompetitorID]
			sj, okj := strengths[entries[j].CompetitorID]
			if !oki || !okj || entries[i].Rating == entries[j].Rating {
				continue
			}
			total++
			if (entries[i].Rating > entries[j].Rating) == (si > sj) {
				agree++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(agree) / float64(total)
}
