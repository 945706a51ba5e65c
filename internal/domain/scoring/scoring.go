// Package scoring implements the pure, side-effect-free scoring rules
// C5 calls on every recorded match result and C7 calls once per event to
// fold standings into a cross-event leaderboard.
package scoring

import (
	"sort"

	"github.com/forgeline/arena/internal/domain"
)

const (
	pointsWin  = 3
	pointsDraw = 1
	pointsLoss = 0
)

// ScoreMatch returns the points each side of result earns under the
// win=3/draw=1/loss=0 rule. A side that caused an error loses the match;
// both-error awards neither side points (Open Question 1, resolved in
// DESIGN.md).
func ScoreMatch(result domain.MatchResult) (points1, points2 int) {
	switch result.Outcome {
	case domain.OutcomeP1Win, domain.OutcomeP2Err:
		return pointsWin, pointsLoss
	case domain.OutcomeP2Win, domain.OutcomeP1Err:
		return pointsLoss, pointsWin
	case domain.OutcomeDraw:
		return pointsDraw, pointsDraw
	case domain.OutcomeBothErr:
		return 0, 0
	default:
		return 0, 0
	}
}

// UpdateStandings folds one match result into a standings map, keyed by
// bot ID. It is associative and commutative: applying a batch of results
// in any order or split across calls produces the same final map, which
// is what lets C5 record match results concurrently within a stage.
func UpdateStandings(standings map[string]domain.Standing, result domain.MatchResult) map[string]domain.Standing {
	points1, points2 := ScoreMatch(result)

	s1 := standings[result.Bot1.ID]
	s2 := standings[result.Bot2.ID]

	applyOutcome(&s1, &s2, result.Outcome, points1, points2)

	s1.Opponents = append(s1.Opponents, result.Bot2.ID)
	s2.Opponents = append(s2.Opponents, result.Bot1.ID)

	standings[result.Bot1.ID] = s1
	standings[result.Bot2.ID] = s2
	return standings
}

func applyOutcome(s1, s2 *domain.Standing, outcome domain.Outcome, points1, points2 int) {
	s1.Points += points1
	s2.Points += points2

	switch outcome {
	case domain.OutcomeP1Win, domain.OutcomeP2Err:
		s1.Wins++
		s2.Losses++
	case domain.OutcomeP2Win, domain.OutcomeP1Err:
		s2.Wins++
		s1.Losses++
	case domain.OutcomeDraw:
		s1.Draws++
		s2.Draws++
	case domain.OutcomeBothErr:
		s1.Losses++
		s2.Losses++
	}
}

// RankedStanding pairs a bot with its Standing for display ordering.
type RankedStanding struct {
	Bot      domain.Bot
	Standing domain.Standing
}

// FinalRankings orders bots by points desc, wins desc, losses asc, team
// name asc. The team-name fallback is a display-only tiebreak: it never
// feeds champion selection, which has its own documented tiebreak order.
func FinalRankings(bots []domain.Bot, standings map[string]domain.Standing) []RankedStanding {
	out := make([]RankedStanding, 0, len(bots))
	for _, b := range bots {
		out = append(out, RankedStanding{Bot: b, Standing: standings[b.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Standing.Points != b.Standing.Points {
			return a.Standing.Points > b.Standing.Points
		}
		if a.Standing.Wins != b.Standing.Wins {
			return a.Standing.Wins > b.Standing.Wins
		}
		if a.Standing.Losses != b.Standing.Losses {
			return a.Standing.Losses < b.Standing.Losses
		}
		return a.Bot.TeamName < b.Bot.TeamName
	})
	return out
}

// LeaderSet returns the bots tied for first under "max points, max wins,
// min losses" — the rule C5 uses after the final group to decide whether
// the event is done or needs a tiebreaker group.
func LeaderSet(ranked []RankedStanding) []RankedStanding {
	if len(ranked) == 0 {
		return nil
	}
	top := ranked[0].Standing
	var leaders []RankedStanding
	for _, r := range ranked {
		if r.Standing.Points == top.Points && r.Standing.Wins == top.Wins && r.Standing.Losses == top.Losses {
			leaders = append(leaders, r)
			continue
		}
		break
	}
	return leaders
}

// CurrentLeaderboard additively aggregates every completed event's
// standings into cross-event totals, applying the series champion
// tiebreak order: totalPoints desc, tournamentsWon desc, totalWins desc,
// totalLosses asc, teamName asc.
func CurrentLeaderboard(events []domain.EventInfo, ratings map[string]int) []domain.LeaderboardEntry {
	totals := map[string]*domain.LeaderboardEntry{}

	ensure := func(b domain.Bot) *domain.LeaderboardEntry {
		e, ok := totals[b.ID]
		if !ok {
			e = &domain.LeaderboardEntry{Bot: b, Rating: ratings[b.ID]}
			totals[b.ID] = e
		}
		return e
	}

	for _, ev := range events {
		if ev.State != domain.EventCompleted {
			continue
		}
		for _, b := range ev.Bots {
			ensure(b)
		}
		for botID, s := range ev.Standings {
			var bot domain.Bot
			for _, b := range ev.Bots {
				if b.ID == botID {
					bot = b
					break
				}
			}
			entry := ensure(bot)
			entry.TotalPoints += s.Points
			entry.TotalWins += s.Wins
			entry.TotalLosses += s.Losses
			entry.TotalDraws += s.Draws
		}
		if ev.Champion != nil {
			ensure(*ev.Champion).TournamentsWon++
		}
	}

	out := make([]domain.LeaderboardEntry, 0, len(totals))
	for _, e := range totals {
		out = append(out, *e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.TournamentsWon != b.TournamentsWon {
			return a.TournamentsWon > b.TournamentsWon
		}
		if a.TotalWins != b.TotalWins {
			return a.TotalWins > b.TotalWins
		}
		if a.TotalLosses != b.TotalLosses {
			return a.TotalLosses < b.TotalLosses
		}
		return a.Bot.TeamName < b.Bot.TeamName
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
