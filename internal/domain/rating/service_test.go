package rating

import (
	"sync"
	"testing"

	"github.com/forgeline/arena/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestService_Rating_SeedsNewcomerAtDefault(t *testing.T) {
	s := NewService()
	assert.Equal(t, seedRating, s.Rating("bot-a"))
}

func TestService_ProcessMatchResult_WinnerGainsLoserLoses(t *testing.T) {
	s := NewService()
	a := domain.Bot{ID: "a"}
	b := domain.Bot{ID: "b"}

	r1, r2 := s.ProcessMatchResult(domain.MatchResult{Bot1: a, Bot2: b, Outcome: domain.OutcomeP1Win})

	assert.Greater(t, r1, seedRating)
	assert.Less(t, r2, seedRating)
	assert.Equal(t, r1, s.Rating("a"))
	assert.Equal(t, r2, s.Rating("b"))
}

func TestService_ProcessMatchResult_DrawLeavesEqualRatingsUnchanged(t *testing.T) {
	s := NewService()
	a := domain.Bot{ID: "a"}
	b := domain.Bot{ID: "b"}

	r1, r2 := s.ProcessMatchResult(domain.MatchResult{Bot1: a, Bot2: b, Outcome: domain.OutcomeDraw})

	assert.Equal(t, seedRating, r1)
	assert.Equal(t, seedRating, r2)
}

func TestService_ProcessMatchResult_SingleErrorTreatedAsLossForEloPurposes(t *testing.T) {
	s := NewService()
	a := domain.Bot{ID: "a"}
	b := domain.Bot{ID: "b"}

	r1, r2 := s.ProcessMatchResult(domain.MatchResult{Bot1: a, Bot2: b, Outcome: domain.OutcomeP1Err})

	assert.Less(t, r1, seedRating)
	assert.Greater(t, r2, seedRating)
}

func TestService_ProcessMatchResult_BothErrorScoresAsDrawForElo(t *testing.T) {
	s := NewService()
	a := domain.Bot{ID: "a"}
	b := domain.Bot{ID: "b"}

	r1, r2 := s.ProcessMatchResult(domain.MatchResult{Bot1: a, Bot2: b, Outcome: domain.OutcomeBothErr})

	assert.Equal(t, seedRating, r1)
	assert.Equal(t, seedRating, r2)
}

func TestService_Snapshot_IsIndependentOfLiveState(t *testing.T) {
	s := NewService()
	a := domain.Bot{ID: "a"}
	b := domain.Bot{ID: "b"}
	s.ProcessMatchResult(domain.MatchResult{Bot1: a, Bot2: b, Outcome: domain.OutcomeP1Win})

	snap := s.Snapshot()
	snap["a"] = 0

	assert.NotEqual(t, 0, s.Rating("a"))
}

func TestService_ProcessMatchResult_ConcurrentUpdatesDoNotRace(t *testing.T) {
	s := NewService()
	a := domain.Bot{ID: "a"}
	b := domain.Bot{ID: "b"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ProcessMatchResult(domain.MatchResult{Bot1: a, Bot2: b, Outcome: domain.OutcomeP1Win})
		}()
	}
	wg.Wait()

	assert.NotZero(t, s.Rating("a"))
}
