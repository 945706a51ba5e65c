package rating

import (
	"sync"

	"github.com/forgeline/arena/internal/domain"
)

// seedRating is the rating a bot starts at before its first recorded
// match, matching the conventional ELO newcomer seed.
const seedRating = 1200

// Service tracks the auxiliary ELO rating (SUPPLEMENTED FEATURES: ELO
// side-rating) for every bot across a running series, in memory, keyed
// by bot ID. There is no persisted rating history here: this core has no
// database, so a rating is carried only for the lifetime of the process
// that runs the series.
type Service struct {
	mu         sync.Mutex
	calculator *EloCalculator
	ratings    map[string]int
}

func NewService() *Service {
	return &Service{
		calculator: NewDefaultEloCalculator(),
		ratings:    make(map[string]int),
	}
}

// ProcessMatchResult folds one finished match into both bots' ratings
// and returns their post-match values. Error outcomes resolve to a
// win/loss exactly as the point-scoring system does: the erroring side
// loses; a double error is scored as a draw for rating purposes only,
// since ELO has no notion of a match error.
func (s *Service) ProcessMatchResult(result domain.MatchResult) (rating1, rating2 int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r1 := s.ratingLocked(result.Bot1.ID)
	r2 := s.ratingLocked(result.Bot2.ID)

	outcome := eloOutcome(result.Outcome)
	newR1, newR2, _, _ := s.calculator.ProcessMatch(r1, r2, outcome)

	s.ratings[result.Bot1.ID] = newR1
	s.ratings[result.Bot2.ID] = newR2
	return newR1, newR2
}

func eloOutcome(outcome domain.Outcome) MatchOutcome {
	switch outcome {
	case domain.OutcomeP1Win, domain.OutcomeP2Err:
		return OutcomeBot1Win
	case domain.OutcomeP2Win, domain.OutcomeP1Err:
		return OutcomeBot2Win
	default:
		return OutcomeDraw
	}
}

// Rating returns a bot's current rating, seeding it on first access.
func (s *Service) Rating(botID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratingLocked(botID)
}

func (s *Service) ratingLocked(botID string) int {
	if r, ok := s.ratings[botID]; ok {
		return r
	}
	s.ratings[botID] = seedRating
	return seedRating
}

// Snapshot returns an independent copy of every tracked bot's rating.
func (s *Service) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.ratings))
	for k, v := range s.ratings {
		out[k] = v
	}
	return out
}
