package series

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/forgeline/arena/internal/dispatch"
	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/internal/publish"
	"github.com/forgeline/arena/pkg/logger"
	"github.com/forgeline/arena/pkg/metrics"
	"github.com/forgeline/arena/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sharedMetrics     *metrics.Metrics
	sharedMetricsOnce sync.Once
)

func testMetrics() *metrics.Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = metrics.New()
	})
	return sharedMetrics
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "json")
	require.NoError(t, err)
	return log
}

type noopJournal struct{}

func (noopJournal) Append(domain.MatchResult, string)             {}
func (noopJournal) StartRun(uuid.UUID, string) error               { return nil }

type noopPublisher struct{}

func (noopPublisher) TournamentStarted(uuid.UUID, string, []publish.EventStep)           {}
func (noopPublisher) EventStarted(uuid.UUID, uuid.UUID, string, int, int)                {}
func (noopPublisher) RoundStarted(uuid.UUID, int, string)                                {}
func (noopPublisher) MatchCompleted(publish.MatchCompletedEvent)                         {}
func (noopPublisher) StandingsUpdated(publish.StandingsUpdatedEvent)                     {}
func (noopPublisher) EventStepCompleted(uuid.UUID, uuid.UUID, int, string, string, string) {}
func (noopPublisher) EventCompleted(uuid.UUID, uuid.UUID, string, *domain.Bot)           {}
func (noopPublisher) TournamentProgressUpdated(domain.DashboardState)                    {}
func (noopPublisher) TournamentCompleted(uuid.UUID, string, *domain.Bot)                 {}

// firstWinsExecutor always declares bot1 the winner, instantly, so the
// series' outcome is fully deterministic: whichever bot is BotA in a
// pairing always wins.
type firstWinsExecutor struct{}

func (firstWinsExecutor) Execute(ctx context.Context, bot1, bot2 domain.Bot, game domain.GameDescriptor) domain.MatchResult {
	start := time.Now()
	time.Sleep(time.Microsecond)
	return domain.MatchResult{Bot1: bot1, Bot2: bot2, Outcome: domain.OutcomeP1Win, Winner: &bot1, StartUtc: start, EndUtc: time.Now()}
}

func makeBots(n int) []domain.Bot {
	out := make([]domain.Bot, n)
	for i := range out {
		name := string(rune('A' + i))
		out[i] = domain.Bot{ID: name, TeamName: name}
	}
	return out
}

func TestManager_RunSeries_TwoEventsCompleteWithChampionAndLeaderboard(t *testing.T) {
	bots := makeBots(4)
	cfg := domain.SeriesConfig{
		GameTypes:          []string{"sum-game", "product-game"},
		GroupCount:         1,
		FinalistsPerGroup:  1,
		UseTiebreakers:     false,
		MaxParallelMatches: 2,
		MoveTimeout:        time.Second,
		MemoryLimitMB:      512,
	}
	registry := domain.GameRegistry{
		"sum-game":     domain.GameDescriptor{GameType: "sum-game", MaxRounds: 1, MoveTimeout: time.Second},
		"product-game": domain.GameDescriptor{GameType: "product-game", MaxRounds: 1, MoveTimeout: time.Second},
	}

	runner := dispatch.New(firstWinsExecutor{}, 5*time.Second, testLogger(t), testMetrics())
	mgr := New("demo-series", bots, cfg, registry, runner, noopJournal{}, noopPublisher{}, testLogger(t), testMetrics())

	info, err := mgr.RunSeries(context.Background())
	require.NoError(t, err)

	assert.Len(t, info.OrderedEvents, 2)
	for _, ev := range info.OrderedEvents {
		assert.Equal(t, domain.EventCompleted, ev.State)
	}
	require.NotNil(t, info.SeriesChampion)
	assert.Equal(t, "A", info.SeriesChampion.ID)
	assert.Len(t, info.SeriesStandings, 4)
	assert.Equal(t, 1, info.SeriesStandings[0].Rank)
	assert.Equal(t, "A", info.SeriesStandings[0].Bot.ID)

	matches := mgr.GetAllMatches()
	assert.NotEmpty(t, matches)

	dash := mgr.GetDashboardState()
	assert.Equal(t, 2, dash.EventsComplete)
	assert.Equal(t, 2, dash.EventsTotal)
	assert.Nil(t, dash.CurrentEvent)
	assert.Len(t, dash.Leaderboard, 4)

	byEvent := mgr.GetGroupStandingsByEvent()
	assert.Len(t, byEvent, 2)

	page, err := mgr.GetMatchesPage(pagination.PageRequest{})
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, len(matches), *page.Total)
	assert.Len(t, page.Edges, len(matches))
	assert.False(t, page.PageInfo.HasNextPage)

	first := 1
	firstPage, err := mgr.GetMatchesPage(pagination.PageRequest{First: &first})
	require.NoError(t, err)
	assert.Len(t, firstPage.Edges, 1)
	assert.True(t, firstPage.PageInfo.HasNextPage)
	require.NotNil(t, firstPage.PageInfo.EndCursor)

	secondPage, err := mgr.GetMatchesPage(pagination.PageRequest{First: &first, After: firstPage.PageInfo.EndCursor})
	require.NoError(t, err)
	assert.Len(t, secondPage.Edges, 1)
	assert.NotEqual(t, firstPage.Edges[0].Node.StartUtc, secondPage.Edges[0].Node.StartUtc)
}

func TestManager_GetMatchesPage_RejectsInvalidRequest(t *testing.T) {
	bots := makeBots(2)
	cfg := domain.SeriesConfig{GameTypes: []string{"sum-game"}}
	runner := dispatch.New(firstWinsExecutor{}, time.Second, testLogger(t), testMetrics())
	mgr := New("paging-series", bots, cfg, domain.GameRegistry{}, runner, noopJournal{}, noopPublisher{}, testLogger(t), testMetrics())

	first, last := 1, 1
	_, err := mgr.GetMatchesPage(pagination.PageRequest{First: &first, Last: &last})
	assert.Error(t, err)
}

func TestManager_RunSeries_RejectsInvalidConfig(t *testing.T) {
	bots := makeBots(2)
	cfg := domain.SeriesConfig{GameTypes: nil}
	runner := dispatch.New(firstWinsExecutor{}, time.Second, testLogger(t), testMetrics())
	mgr := New("bad-series", bots, cfg, domain.GameRegistry{}, runner, noopJournal{}, noopPublisher{}, testLogger(t), testMetrics())

	_, err := mgr.RunSeries(context.Background())
	assert.Error(t, err)
}

func TestManager_RunSeries_RejectsTooFewBots(t *testing.T) {
	bots := makeBots(1)
	cfg := domain.SeriesConfig{GameTypes: []string{"sum-game"}}
	runner := dispatch.New(firstWinsExecutor{}, time.Second, testLogger(t), testMetrics())
	mgr := New("lonely-series", bots, cfg, domain.GameRegistry{}, runner, noopJournal{}, noopPublisher{}, testLogger(t), testMetrics())

	_, err := mgr.RunSeries(context.Background())
	assert.Error(t, err)
}

func TestManager_RunSeries_CancelledContextStopsBeforeFirstEvent(t *testing.T) {
	bots := makeBots(4)
	cfg := domain.SeriesConfig{
		GameTypes:          []string{"sum-game", "product-game"},
		GroupCount:         1,
		FinalistsPerGroup:  1,
		MaxParallelMatches: 2,
		MoveTimeout:        time.Second,
	}
	registry := domain.GameRegistry{
		"sum-game":     domain.GameDescriptor{GameType: "sum-game", MaxRounds: 1, MoveTimeout: time.Second},
		"product-game": domain.GameDescriptor{GameType: "product-game", MaxRounds: 1, MoveTimeout: time.Second},
	}
	runner := dispatch.New(firstWinsExecutor{}, time.Second, testLogger(t), testMetrics())
	mgr := New("cancelled-series", bots, cfg, registry, runner, noopJournal{}, noopPublisher{}, testLogger(t), testMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	info, err := mgr.RunSeries(ctx)
	require.NoError(t, err)
	assert.Empty(t, info.OrderedEvents)
}
