// Package engine implements C5, the Group-Stage Event Engine: the heart
// of the system. A single Engine runs one event (one game type played to
// a champion) as a single-writer state machine guarded by one mutex for
// all mutation. Every other caller receives an independent deep-copied
// EventInfo snapshot; only this package mutates the live state.
package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/internal/domain/scoring"
	"github.com/forgeline/arena/internal/publish"
	"github.com/forgeline/arena/pkg/errors"
	"github.com/forgeline/arena/pkg/logger"
	"github.com/google/uuid"
)

// MatchJournal is the narrow slice of internal/journal.Journal the
// engine depends on, so tests can stub it.
type MatchJournal interface {
	Append(result domain.MatchResult, groupLabel string)
}

// Engine runs a single event's group stage, final group, and any
// tiebreaker stages to a champion (or to Cancelled).
type Engine struct {
	mu sync.Mutex

	seriesID    uuid.UUID
	initialized bool
	info        domain.EventInfo
	cfg         domain.EventConfig
	eventNumber int
	// matchGroups[i] is the group label recorded matchResults[i] was
	// played under; matchResults carries no group field of its own.
	matchGroups []string

	journal MatchJournal
	pub     publish.Publisher
	log     *logger.Logger
}

func New(seriesID uuid.UUID, journal MatchJournal, pub publish.Publisher, log *logger.Logger) *Engine {
	return &Engine{seriesID: seriesID, journal: journal, pub: pub, log: log}
}

// Initialize partitions bots into groupCount groups, generates every
// unordered pair within each group as a pending match, and starts the
// event at InProgress/InitialGroups.
func (e *Engine) Initialize(bots []domain.Bot, gameType string, cfg domain.EventConfig, eventNumber int) (domain.EventInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return domain.EventInfo{}, errors.ErrInvalidState.WithMessage("event already initialized")
	}
	if len(bots) < 2 {
		return domain.EventInfo{}, errors.ErrTooFewBots
	}

	groupCount := domain.ClampGroupCount(cfg.GroupCount, len(bots))
	groups := partitionIntoGroups(bots, groupCount)

	standings := make(map[string]domain.Standing, len(bots))
	for _, b := range bots {
		standings[b.ID] = domain.Standing{}
	}

	e.cfg = cfg
	e.eventNumber = eventNumber
	e.info = domain.EventInfo{
		TournamentID: uuid.New(),
		GameType:     gameType,
		State:        domain.EventInProgress,
		Stage:        domain.StageInitialGroups,
		Bots:         cloneBots(bots),
		Groups:       groups,
		Pending:      pendingFromGroups(groups),
		Standings:    standings,
		StartUtc:     time.Now(),
		CurrentRound: 1,
	}
	e.initialized = true

	e.pub.EventStarted(e.seriesID, e.info.TournamentID, gameType, eventNumber, len(bots))
	e.pub.RoundStarted(e.seriesID, e.info.CurrentRound, string(e.info.Stage))

	return e.snapshot(), nil
}

// GetNextMatches returns the current stage's undispatched matches.
// Calling it twice with no intervening mutation returns the same set.
func (e *Engine) GetNextMatches() []domain.PendingMatch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return clonePending(e.info.Pending)
}

// RecordMatchResult admits one finished match: it removes the pair from
// pending, appends it to the match history, folds it into standings,
// journals it, and publishes MatchCompleted/StandingsUpdated. The mutex
// is held only for the in-memory mutation; journaling and publishing run
// afterward against a captured snapshot.
func (e *Engine) RecordMatchResult(result domain.MatchResult, groupLabel string) (domain.EventInfo, error) {
	e.mu.Lock()

	if !e.initialized || e.info.State != domain.EventInProgress {
		e.mu.Unlock()
		return domain.EventInfo{}, errors.ErrInvalidState.WithMessage("event is not accepting match results")
	}
	if !e.hasBot(result.Bot1.ID) || !e.hasBot(result.Bot2.ID) {
		e.mu.Unlock()
		return domain.EventInfo{}, errors.ErrUnknownBot
	}

	idx := e.findPending(result.Bot1.ID, result.Bot2.ID)
	if idx < 0 {
		e.mu.Unlock()
		return domain.EventInfo{}, errors.ErrNotPending
	}

	e.info.Pending = append(e.info.Pending[:idx], e.info.Pending[idx+1:]...)
	e.info.MatchResults = append(e.info.MatchResults, result)
	e.matchGroups = append(e.matchGroups, groupLabel)
	e.info.Standings = scoring.UpdateStandings(e.info.Standings, result)

	snap := e.snapshot()
	e.mu.Unlock()

	e.journal.Append(result, groupLabel)
	e.pub.MatchCompleted(publish.MatchCompletedEvent{
		SeriesID: e.seriesID, EventID: snap.TournamentID, Group: groupLabel, Result: result,
	})
	e.pub.StandingsUpdated(publish.StandingsUpdatedEvent{
		SeriesID: e.seriesID, EventID: snap.TournamentID,
		Overall:  snap.Standings,
		PerGroup: perGroupStandings(snap.Groups, snap.Standings),
	})

	return snap, nil
}

// AdvanceToNextRound moves the event to its next stage once the current
// stage's pending set is empty, resolving ties per spec and completing
// the event when a unique leader is found.
func (e *Engine) AdvanceToNextRound() (domain.EventInfo, error) {
	e.mu.Lock()

	if !e.initialized || e.info.State != domain.EventInProgress {
		e.mu.Unlock()
		return domain.EventInfo{}, errors.ErrInvalidState.WithMessage("event is not in progress")
	}
	if len(e.info.Pending) > 0 {
		e.mu.Unlock()
		return domain.EventInfo{}, errors.ErrInvalidState.WithMessage("matches still pending for current stage")
	}

	switch {
	case e.info.Stage == domain.StageInitialGroups:
		e.advanceFromInitialGroups()
	case e.info.Stage == domain.StageFinalGroup:
		e.advanceFromCurrentGroup()
	case strings.HasPrefix(string(e.info.Stage), "Tiebreaker-"):
		e.advanceFromCurrentGroup()
	default:
		e.mu.Unlock()
		return domain.EventInfo{}, errors.ErrInvalidState.WithMessage("event already closed")
	}

	e.info.CurrentRound++
	snap := e.snapshot()
	completed := e.info.State == domain.EventCompleted
	e.mu.Unlock()

	if completed {
		e.pub.EventCompleted(e.seriesID, snap.TournamentID, snap.GameType, snap.Champion)
	} else {
		e.pub.RoundStarted(e.seriesID, snap.CurrentRound, string(snap.Stage))
	}
	return snap, nil
}

// advanceFromInitialGroups builds the final group from each initial
// group's advancing set: the top FinalistsPerGroup bots by
// scoring.FinalRankings, plus any bot tied with the cutoff.
func (e *Engine) advanceFromInitialGroups() {
	var finalists []domain.Bot
	seen := map[string]bool{}
	for _, g := range e.info.Groups {
		ranked := scoring.FinalRankings(g.Bots, e.info.Standings)
		for _, b := range advancingFromGroup(ranked, e.cfg.FinalistsPerGroup) {
			if !seen[b.ID] {
				seen[b.ID] = true
				finalists = append(finalists, b)
			}
		}
	}

	group := domain.Group{Label: "Final Group", Bots: finalists}
	e.info.Groups = []domain.Group{group}
	e.info.Pending = pendingFromGroups(e.info.Groups)
	e.info.Stage = domain.StageFinalGroup
}

// advanceFromCurrentGroup evaluates the tie rule over the current
// (single) group's bots and either completes the event or spawns the
// next tiebreaker stage.
func (e *Engine) advanceFromCurrentGroup() {
	group := e.currentGroup()
	ranked := scoring.FinalRankings(group.Bots, e.info.Standings)
	leaders := scoring.LeaderSet(ranked)

	if len(leaders) == 1 || !e.cfg.UseTiebreakers {
		// scoring.FinalRankings already orders ties by teamName ascending,
		// so leaders[0] is the correct pick whether the tie is genuine
		// (len==1) or broken by name (UseTiebreakers==false).
		champion := leaders[0].Bot
		now := time.Now()
		e.info.State = domain.EventCompleted
		e.info.Stage = domain.StageCompleted
		e.info.Champion = &champion
		e.info.EndUtc = &now
		e.info.TotalRounds = e.info.CurrentRound
		return
	}

	e.info.TiebreakerNo++
	label := fmt.Sprintf("Tiebreaker-%d", e.info.TiebreakerNo)
	bots := make([]domain.Bot, 0, len(leaders))
	for _, l := range leaders {
		bots = append(bots, l.Bot)
	}
	tiebreakGroup := domain.Group{Label: label, Bots: bots}
	e.info.Groups = []domain.Group{tiebreakGroup}
	e.info.Pending = pendingFromGroups(e.info.Groups)
	e.info.Stage = domain.Stage(label)
}

func (e *Engine) currentGroup() domain.Group {
	if len(e.info.Groups) == 0 {
		return domain.Group{}
	}
	return e.info.Groups[len(e.info.Groups)-1]
}

// Cancel transitions the event to Cancelled regardless of its current
// stage. Standings reflect only what was recorded up to this point.
func (e *Engine) Cancel() domain.EventInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized || e.info.State == domain.EventCompleted || e.info.State == domain.EventCancelled {
		return e.snapshot()
	}
	now := time.Now()
	e.info.State = domain.EventCancelled
	e.info.Stage = domain.StageCancelled
	e.info.EndUtc = &now
	e.info.Pending = nil
	return e.snapshot()
}

// GetTournamentInfo returns a deep-copied snapshot of the event.
func (e *Engine) GetTournamentInfo() domain.EventInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// GetFinalRankings returns the current ranking over all bots in the
// event, available at any point in the event's lifetime.
func (e *Engine) GetFinalRankings() []scoring.RankedStanding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return scoring.FinalRankings(e.info.Bots, e.info.Standings)
}

// GetMatchGroupLabel returns the group label the given pair currently
// belongs to, by checking the pending set first and then match history.
func (e *Engine) GetMatchGroupLabel(bot1ID, bot2ID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if idx := e.findPending(bot1ID, bot2ID); idx >= 0 {
		return e.info.Pending[idx].Group, nil
	}
	for i := len(e.info.MatchResults) - 1; i >= 0; i-- {
		r := e.info.MatchResults[i]
		if samePair(r.Bot1.ID, r.Bot2.ID, bot1ID, bot2ID) {
			return e.matchGroups[i], nil
		}
	}
	return "", errors.ErrNotPending.WithMessage("pair not found in pending or history")
}

func (e *Engine) hasBot(id string) bool {
	for _, b := range e.info.Bots {
		if b.ID == id {
			return true
		}
	}
	return false
}

func (e *Engine) findPending(botA, botB string) int {
	for i, pm := range e.info.Pending {
		if samePair(pm.BotA.ID, pm.BotB.ID, botA, botB) {
			return i
		}
	}
	return -1
}

func samePair(a1, a2, b1, b2 string) bool {
	return (a1 == b1 && a2 == b2) || (a1 == b2 && a2 == b1)
}

// snapshot deep-copies the live event state. Must be called with e.mu held.
func (e *Engine) snapshot() domain.EventInfo {
	info := e.info
	info.Bots = cloneBots(e.info.Bots)
	info.Groups = cloneGroups(e.info.Groups)
	info.Pending = clonePending(e.info.Pending)
	info.MatchResults = append([]domain.MatchResult(nil), e.info.MatchResults...)
	info.Standings = cloneStandings(e.info.Standings)
	if e.info.Champion != nil {
		champion := *e.info.Champion
		info.Champion = &champion
	}
	if e.info.EndUtc != nil {
		end := *e.info.EndUtc
		info.EndUtc = &end
	}
	return info
}

func partitionIntoGroups(bots []domain.Bot, groupCount int) []domain.Group {
	groups := make([]domain.Group, groupCount)
	for i := range groups {
		groups[i] = domain.Group{Label: groupLabel(i)}
	}
	for i, b := range bots {
		idx := i % groupCount
		groups[idx].Bots = append(groups[idx].Bots, b)
	}
	return groups
}

func groupLabel(index int) string {
	if index < 26 {
		return fmt.Sprintf("Group %c", rune('A'+index))
	}
	return fmt.Sprintf("Group %d", index+1)
}

func pendingFromGroups(groups []domain.Group) []domain.PendingMatch {
	var pending []domain.PendingMatch
	for _, g := range groups {
		for i := 0; i < len(g.Bots); i++ {
			for j := i + 1; j < len(g.Bots); j++ {
				pending = append(pending, domain.PendingMatch{BotA: g.Bots[i], BotB: g.Bots[j], Group: g.Label})
			}
		}
	}
	return pending
}

// advancingFromGroup selects the top k ranked bots from a single group,
// extending the cut to include every bot tied with the bot at the
// boundary on points/wins/losses (Open Question 2).
func advancingFromGroup(ranked []scoring.RankedStanding, k int) []domain.Bot {
	if k <= 0 {
		k = 1
	}
	if k >= len(ranked) {
		out := make([]domain.Bot, len(ranked))
		for i, r := range ranked {
			out[i] = r.Bot
		}
		return out
	}

	cutoff := ranked[k-1].Standing
	var out []domain.Bot
	for _, r := range ranked {
		if r.Standing.Points == cutoff.Points && r.Standing.Wins == cutoff.Wins && r.Standing.Losses == cutoff.Losses {
			out = append(out, r.Bot)
			continue
		}
		if len(out) < k {
			out = append(out, r.Bot)
		}
	}
	return out
}

func perGroupStandings(groups []domain.Group, standings map[string]domain.Standing) map[string]map[string]domain.Standing {
	out := make(map[string]map[string]domain.Standing, len(groups))
	for _, g := range groups {
		byBot := make(map[string]domain.Standing, len(g.Bots))
		for _, b := range g.Bots {
			byBot[b.ID] = standings[b.ID]
		}
		out[g.Label] = byBot
	}
	return out
}

func cloneBots(bots []domain.Bot) []domain.Bot {
	return append([]domain.Bot(nil), bots...)
}

func cloneGroups(groups []domain.Group) []domain.Group {
	out := make([]domain.Group, len(groups))
	for i, g := range groups {
		out[i] = domain.Group{Label: g.Label, Bots: cloneBots(g.Bots)}
	}
	return out
}

func clonePending(pending []domain.PendingMatch) []domain.PendingMatch {
	return append([]domain.PendingMatch(nil), pending...)
}

func cloneStandings(standings map[string]domain.Standing) map[string]domain.Standing {
	out := make(map[string]domain.Standing, len(standings))
	for k, v := range standings {
		out[k] = domain.Standing{
			Wins: v.Wins, Losses: v.Losses, Draws: v.Draws, Points: v.Points,
			Opponents:  append([]string(nil), v.Opponents...),
			Eliminated: v.Eliminated,
		}
	}
	return out
}
