package scoring

import (
	"testing"

	"github.com/forgeline/arena/internal/domain"
	"github.com/stretchr/testify/assert"
)

func bot(id string) domain.Bot {
	return domain.Bot{ID: id, TeamName: id}
}

func TestScoreMatch(t *testing.T) {
	tests := []struct {
		name     string
		outcome  domain.Outcome
		points1  int
		points2  int
	}{
		{"p1 win", domain.OutcomeP1Win, 3, 0},
		{"p2 win", domain.OutcomeP2Win, 0, 3},
		{"draw", domain.OutcomeDraw, 1, 1},
		{"p1 errors, p2 wins by default", domain.OutcomeP1Err, 0, 3},
		{"p2 errors, p1 wins by default", domain.OutcomeP2Err, 3, 0},
		{"both error, nobody scores", domain.OutcomeBothErr, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p1, p2 := ScoreMatch(domain.MatchResult{Outcome: tc.outcome})
			assert.Equal(t, tc.points1, p1)
			assert.Equal(t, tc.points2, p2)
		})
	}
}

func TestUpdateStandings_FourBotRoundRobinSweep(t *testing.T) {
	// Four-bot deterministic scenario: A beats everyone, B beats C and D,
	// C beats D, D loses every match. Expected final points: A:9, B:6,
	// C:3, D:0.
	a, b, c, d := bot("A"), bot("B"), bot("C"), bot("D")
	results := []domain.MatchResult{
		{Bot1: a, Bot2: b, Outcome: domain.OutcomeP1Win},
		{Bot1: a, Bot2: c, Outcome: domain.OutcomeP1Win},
		{Bot1: a, Bot2: d, Outcome: domain.OutcomeP1Win},
		{Bot1: b, Bot2: c, Outcome: domain.OutcomeP1Win},
		{Bot1: b, Bot2: d, Outcome: domain.OutcomeP1Win},
		{Bot1: c, Bot2: d, Outcome: domain.OutcomeP1Win},
	}

	standings := map[string]domain.Standing{}
	for _, r := range results {
		standings = UpdateStandings(standings, r)
	}

	assert.Equal(t, 9, standings["A"].Points)
	assert.Equal(t, 6, standings["B"].Points)
	assert.Equal(t, 3, standings["C"].Points)
	assert.Equal(t, 0, standings["D"].Points)
	assert.Equal(t, 3, standings["A"].Wins)
	assert.Equal(t, 3, standings["D"].Losses)
}

func TestUpdateStandings_CommutativeOverPermutation(t *testing.T) {
	a, b, c := bot("A"), bot("B"), bot("C")
	results := []domain.MatchResult{
		{Bot1: a, Bot2: b, Outcome: domain.OutcomeDraw},
		{Bot1: b, Bot2: c, Outcome: domain.OutcomeP2Win},
		{Bot1: a, Bot2: c, Outcome: domain.OutcomeP1Win},
	}

	forward := map[string]domain.Standing{}
	for _, r := range results {
		forward = UpdateStandings(forward, r)
	}

	reversed := map[string]domain.Standing{}
	for i := len(results) - 1; i >= 0; i-- {
		reversed = UpdateStandings(reversed, results[i])
	}

	for _, id := range []string{"A", "B", "C"} {
		assert.Equal(t, forward[id].Points, reversed[id].Points, id)
		assert.Equal(t, forward[id].Wins, reversed[id].Wins, id)
		assert.Equal(t, forward[id].Losses, reversed[id].Losses, id)
		assert.Equal(t, forward[id].Draws, reversed[id].Draws, id)
	}
}

func TestFinalRankings_TiebreakOrder(t *testing.T) {
	bots := []domain.Bot{bot("Zulu"), bot("Alpha"), bot("Beta")}
	standings := map[string]domain.Standing{
		"Zulu":  {Points: 6, Wins: 2, Losses: 0},
		"Alpha": {Points: 6, Wins: 2, Losses: 0},
		"Beta":  {Points: 3, Wins: 1, Losses: 1},
	}

	ranked := FinalRankings(bots, standings)

	assert.Equal(t, "Alpha", ranked[0].Bot.TeamName)
	assert.Equal(t, "Zulu", ranked[1].Bot.TeamName)
	assert.Equal(t, "Beta", ranked[2].Bot.TeamName)
}

func TestLeaderSet_UniqueAndTied(t *testing.T) {
	bots := []domain.Bot{bot("A"), bot("B"), bot("C")}

	unique := FinalRankings(bots, map[string]domain.Standing{
		"A": {Points: 9}, "B": {Points: 6}, "C": {Points: 3},
	})
	assert.Len(t, LeaderSet(unique), 1)

	tied := FinalRankings(bots, map[string]domain.Standing{
		"A": {Points: 6, Wins: 2}, "B": {Points: 6, Wins: 2}, "C": {Points: 3},
	})
	assert.Len(t, LeaderSet(tied), 2)
}

func TestCurrentLeaderboard_AggregatesCompletedEventsOnly(t *testing.T) {
	a, b := bot("A"), bot("B")
	completed := domain.EventInfo{
		State: domain.EventCompleted,
		Bots:  []domain.Bot{a, b},
		Standings: map[string]domain.Standing{
			"A": {Points: 9, Wins: 3},
			"B": {Points: 3, Wins: 1, Losses: 2},
		},
		Champion: &a,
	}
	inProgress := domain.EventInfo{
		State: domain.EventInProgress,
		Bots:  []domain.Bot{a, b},
		Standings: map[string]domain.Standing{
			"A": {Points: 100},
		},
	}

	board := CurrentLeaderboard([]domain.EventInfo{completed, inProgress}, nil)

	assert.Len(t, board, 2)
	assert.Equal(t, "A", board[0].Bot.ID)
	assert.Equal(t, 9, board[0].TotalPoints)
	assert.Equal(t, 1, board[0].TournamentsWon)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 2, board[1].Rank)
}
