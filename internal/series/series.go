// Package series implements C7, the Series Manager: it runs one series
// (an ordered sequence of events, all sharing a bot roster) to
// completion, computing the cumulative cross-event leaderboard and
// series champion, and exposes a read-only live-query surface a caller
// can poll without ever touching mutable core state.
package series

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/forgeline/arena/internal/dispatch"
	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/internal/domain/rating"
	"github.com/forgeline/arena/internal/domain/scoring"
	"github.com/forgeline/arena/internal/engine"
	"github.com/forgeline/arena/internal/publish"
	"github.com/forgeline/arena/pkg/errors"
	"github.com/forgeline/arena/pkg/logger"
	"github.com/forgeline/arena/pkg/metrics"
	"github.com/forgeline/arena/pkg/pagination"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventJournal is the journal surface a series drives directly: it
// starts a fresh run per event (so each event's matches land in their
// own file) on top of the narrow per-match engine.MatchJournal append
// seam.
type EventJournal interface {
	engine.MatchJournal
	StartRun(tournamentID uuid.UUID, gameType string) error
}

// Manager runs one series end-to-end and exposes its live state.
type Manager struct {
	seriesID   uuid.UUID
	seriesName string
	bots       []domain.Bot
	cfg        domain.SeriesConfig
	registry   domain.GameRegistry
	runner     *dispatch.Manager
	journal    EventJournal
	pub        publish.Publisher
	ratings    *rating.Service
	log        *logger.Logger
	metrics    *metrics.Metrics

	mu     sync.Mutex
	events []domain.EventInfo

	lbMu        sync.Mutex
	leaderboard []domain.LeaderboardEntry
}

func New(seriesName string, bots []domain.Bot, cfg domain.SeriesConfig, registry domain.GameRegistry, runner *dispatch.Manager, journal EventJournal, pub publish.Publisher, log *logger.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		seriesID:   uuid.New(),
		seriesName: seriesName,
		bots:       append([]domain.Bot(nil), bots...),
		cfg:        cfg,
		registry:   registry,
		runner:     runner,
		journal:    journal,
		pub:        pub,
		ratings:    rating.NewService(),
		log:        log,
		metrics:    m,
	}
}

// RunSeries validates cfg, runs every declared event in order against
// the shared bot roster, and returns the final SeriesInfo. ctx
// cancellation stops the series from starting any further event; an
// event already in progress is cancelled in place via the runner. A
// cancelled series reports no champion.
func (m *Manager) RunSeries(ctx context.Context) (domain.SeriesInfo, error) {
	if err := m.cfg.Validate(); err != nil {
		return domain.SeriesInfo{}, errors.New(errors.KindConfiguration, "invalid series config", err)
	}
	if len(m.bots) < 2 {
		return domain.SeriesInfo{}, errors.ErrTooFewBots
	}

	start := time.Now()
	steps := make([]publish.EventStep, len(m.cfg.GameTypes))
	for i, gt := range m.cfg.GameTypes {
		steps[i] = publish.EventStep{Index: i, GameType: gt, Status: "Pending"}
	}
	m.pub.TournamentStarted(m.seriesID, m.seriesName, steps)

	eventCfg := domain.EventConfig{
		GroupCount:         m.cfg.GroupCount,
		FinalistsPerGroup:  m.cfg.FinalistsPerGroup,
		UseTiebreakers:     m.cfg.UseTiebreakers,
		TiebreakerGameType: m.cfg.TiebreakerGameType,
		MoveTimeout:        m.cfg.MoveTimeout,
		MemoryLimitMB:      m.cfg.MemoryLimitMB,
	}

	var seriesChampion *domain.Bot
	cancelled := false

	for i, gameType := range m.cfg.GameTypes {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		steps[i].Status = "InProgress"

		ev := engine.New(m.seriesID, m.journal, m.pub, m.log)
		info, err := ev.Initialize(m.bots, gameType, eventCfg, i+1)
		if err != nil {
			return domain.SeriesInfo{}, err
		}
		if err := m.journal.StartRun(info.TournamentID, gameType); err != nil {
			m.log.LogError("failed to start journal run for event", err, zap.String("game_type", gameType))
		}
		m.appendEvent(info)

		info, err = m.runner.Run(ctx, ev, m.registry, gameType, m.cfg.MaxParallelMatches)
		m.updateEvent(info)
		if err != nil && info.State != domain.EventCancelled {
			return domain.SeriesInfo{}, err
		}

		m.applyRatings(info)

		status := "Completed"
		var winnerName string
		if info.State == domain.EventCancelled {
			status = "Cancelled"
		} else if info.Champion != nil {
			winnerName = info.Champion.TeamName
		}
		steps[i].Status = status

		m.pub.EventStepCompleted(m.seriesID, info.TournamentID, i, gameType, winnerName, m.seriesName)

		m.refreshLeaderboard()
		m.pub.TournamentProgressUpdated(m.GetDashboardState())

		if info.State == domain.EventCancelled {
			cancelled = true
			break
		}
	}

	leaderboard := m.refreshLeaderboard()
	if len(leaderboard) > 0 && !cancelled {
		champ := leaderboard[0].Bot
		seriesChampion = &champ
	}

	end := time.Now()
	m.pub.TournamentCompleted(m.seriesID, m.seriesName, seriesChampion)

	m.log.Info("series completed",
		zap.String("series_id", m.seriesID.String()),
		zap.Duration("duration", end.Sub(start)),
	)

	return domain.SeriesInfo{
		SeriesID:        m.seriesID,
		OrderedEvents:   m.getAllEvents(),
		SeriesStandings: leaderboard,
		SeriesChampion:  seriesChampion,
		StartUtc:        start,
		EndUtc:          &end,
		Config:          m.cfg,
	}, nil
}

func (m *Manager) applyRatings(info domain.EventInfo) {
	for _, result := range info.MatchResults {
		m.ratings.ProcessMatchResult(result)
	}
}

func (m *Manager) appendEvent(info domain.EventInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, info)
}

func (m *Manager) updateEvent(info domain.EventInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].TournamentID == info.TournamentID {
			m.events[i] = info
			return
		}
	}
	m.events = append(m.events, info)
}

func (m *Manager) getAllEvents() []domain.EventInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneEvents(m.events)
}

func (m *Manager) refreshLeaderboard() []domain.LeaderboardEntry {
	events := m.getAllEvents()
	leaderboard := scoring.CurrentLeaderboard(events, m.ratings.Snapshot())

	m.lbMu.Lock()
	m.leaderboard = leaderboard
	m.lbMu.Unlock()

	return cloneLeaderboard(leaderboard)
}

// GetAllMatches returns every match result recorded across every event
// so far, in event order, as an independent deep copy.
func (m *Manager) GetAllMatches() []domain.MatchResult {
	events := m.getAllEvents()
	var out []domain.MatchResult
	for _, ev := range events {
		out = append(out, ev.MatchResults...)
	}
	return out
}

// GetMatchesPage returns a cursor-paginated slice of every match result
// recorded so far, ordered by completion time, for callers that don't
// want the whole history in one response.
func (m *Manager) GetMatchesPage(req pagination.PageRequest) (*pagination.Connection[domain.MatchResult], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	matches := m.GetAllMatches()
	sort.Slice(matches, func(i, j int) bool { return matches[i].EndUtc.Before(matches[j].EndUtc) })

	after, err := req.GetCursor()
	if err != nil {
		return nil, err
	}

	start := 0
	if after != nil && after.Timestamp != nil {
		for i, r := range matches {
			if r.EndUtc.After(*after.Timestamp) {
				start = i
				break
			}
			start = i + 1
		}
	}

	limit := req.GetLimit()
	end := start + limit
	hasMore := end < len(matches)
	if end > len(matches) {
		end = len(matches)
	}
	page := matches[start:end]

	return pagination.NewConnectionWithTotal(page, func(r domain.MatchResult) (*pagination.Cursor, error) {
		return pagination.NewTimestampCursor(r.EndUtc), nil
	}, &req, hasMore, len(matches))
}

// GetDashboardState returns a flattened live view of the series: the
// currently running event (if any), overall progress, and the
// cumulative leaderboard.
func (m *Manager) GetDashboardState() domain.DashboardState {
	events := m.getAllEvents()

	var current *domain.EventInfo
	completed := 0
	for i := range events {
		if events[i].State == domain.EventCompleted || events[i].State == domain.EventCancelled {
			completed++
			continue
		}
		ev := events[i]
		current = &ev
	}

	m.lbMu.Lock()
	leaderboard := cloneLeaderboard(m.leaderboard)
	m.lbMu.Unlock()

	return domain.DashboardState{
		SeriesID:       m.seriesID,
		CurrentEvent:   current,
		EventsComplete: completed,
		EventsTotal:    len(m.cfg.GameTypes),
		Leaderboard:    leaderboard,
	}
}

// GetGroupStandingsByEvent returns, for each event (keyed by game type),
// a deep copy of that event's standings broken out by current group
// label.
func (m *Manager) GetGroupStandingsByEvent() map[string]map[string]map[string]domain.Standing {
	events := m.getAllEvents()
	out := make(map[string]map[string]map[string]domain.Standing, len(events))
	for _, ev := range events {
		byGroup := make(map[string]map[string]domain.Standing, len(ev.Groups))
		for _, g := range ev.Groups {
			byBot := make(map[string]domain.Standing, len(g.Bots))
			for _, b := range g.Bots {
				byBot[b.ID] = ev.Standings[b.ID]
			}
			byGroup[g.Label] = byBot
		}
		out[ev.GameType] = byGroup
	}
	return out
}

// cloneEvents deep-copies every EventInfo so a caller's snapshot never
// aliases the core's mutable Bots/Groups/Pending/MatchResults slices or
// its Standings map, mirroring internal/engine.Engine.snapshot's own
// clone discipline.
func cloneEvents(events []domain.EventInfo) []domain.EventInfo {
	out := make([]domain.EventInfo, len(events))
	for i, ev := range events {
		out[i] = cloneEventInfo(ev)
	}
	return out
}

func cloneEventInfo(ev domain.EventInfo) domain.EventInfo {
	ev.Bots = cloneBots(ev.Bots)
	ev.Groups = cloneGroups(ev.Groups)
	ev.Pending = append([]domain.PendingMatch(nil), ev.Pending...)
	ev.MatchResults = append([]domain.MatchResult(nil), ev.MatchResults...)
	ev.Standings = cloneStandings(ev.Standings)
	if ev.Champion != nil {
		champion := *ev.Champion
		ev.Champion = &champion
	}
	if ev.EndUtc != nil {
		end := *ev.EndUtc
		ev.EndUtc = &end
	}
	return ev
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

func cloneLeaderboard(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	return append([]domain.LeaderboardEntry(nil), entries...)
}
