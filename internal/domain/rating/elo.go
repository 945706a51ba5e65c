package rating

import "math"

// EloCalculator computes the auxiliary ELO rating carried alongside a
// bot's Standing. It never feeds the Scoring System's point rule or any
// placement tiebreak; it is purely informational.
type EloCalculator struct {
	kFactor int
}

func NewEloCalculator(kFactor int) *EloCalculator {
	return &EloCalculator{kFactor: kFactor}
}

func NewDefaultEloCalculator() *EloCalculator {
	return NewEloCalculator(32)
}

// CalculateExpectedScore returns bot A's win probability against bot B,
// in [0, 1].
func (ec *EloCalculator) CalculateExpectedScore(ratingA, ratingB int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
}

// CalculateNewRating applies one match result. score is 1.0 for a win,
// 0.5 for a draw, 0.0 for a loss.
func (ec *EloCalculator) CalculateNewRating(currentRating, opponentRating int, score float64) int {
	expected := ec.CalculateExpectedScore(currentRating, opponentRating)
	change := float64(ec.kFactor) * (score - expected)
	return int(math.Round(float64(currentRating) + change))
}

func (ec *EloCalculator) CalculateRatingChange(currentRating, opponentRating int, score float64) int {
	return ec.CalculateNewRating(currentRating, opponentRating, score) - currentRating
}

// MatchOutcome identifies which side of a match won, for ProcessMatch.
type MatchOutcome int

const (
	OutcomeDraw MatchOutcome = iota
	OutcomeBot1Win
	OutcomeBot2Win
)

// ProcessMatch returns the post-match ratings and deltas for both bots.
// Error outcomes are resolved to a win/loss by the caller before this is
// invoked — ELO has no notion of a match error.
func (ec *EloCalculator) ProcessMatch(rating1, rating2 int, outcome MatchOutcome) (newRating1, newRating2, change1, change2 int) {
	var score1, score2 float64
	switch outcome {
	case OutcomeBot1Win:
		score1, score2 = 1.0, 0.0
	case OutcomeBot2Win:
		score1, score2 = 0.0, 1.0
	default:
		score1, score2 = 0.5, 0.5
	}

	newRating1 = ec.CalculateNewRating(rating1, rating2, score1)
	newRating2 = ec.CalculateNewRating(rating2, rating1, score2)
	change1 = newRating1 - rating1
	change2 = newRating2 - rating2
	return
}

func (ec *EloCalculator) GetKFactor() int {
	return ec.kFactor
}

func (ec *EloCalculator) SetKFactor(kFactor int) {
	ec.kFactor = kFactor
}

// GetAdaptiveKFactor widens K for unrated newcomers and narrows it for
// established bots, so early matches don't get stuck near the seed rating.
func GetAdaptiveKFactor(rating int) int {
	switch {
	case rating < 1200:
		return 40
	case rating < 1800:
		return 32
	case rating < 2400:
		return 24
	default:
		return 16
	}
}
