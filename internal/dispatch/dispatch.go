// Package dispatch implements C6, the Event Manager: it drives one
// initialized internal/engine.Engine to completion by dispatching its
// pending matches through a bounded-parallel worker pool, journaling and
// publishing through the event itself, and advancing stages once a
// stage's matches are all recorded.
package dispatch

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/pkg/errors"
	"github.com/forgeline/arena/pkg/logger"
	"github.com/forgeline/arena/pkg/metrics"
	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MatchExecutor is the narrow seam onto internal/executor.MatchExecutor
// dispatch depends on.
type MatchExecutor interface {
	Execute(ctx context.Context, bot1, bot2 domain.Bot, game domain.GameDescriptor) domain.MatchResult
}

// Event is the narrow seam onto internal/engine.Engine dispatch drives.
type Event interface {
	GetNextMatches() []domain.PendingMatch
	RecordMatchResult(result domain.MatchResult, groupLabel string) (domain.EventInfo, error)
	AdvanceToNextRound() (domain.EventInfo, error)
	GetTournamentInfo() domain.EventInfo
	Cancel() domain.EventInfo
}

// Manager runs one event to completion.
type Manager struct {
	executor MatchExecutor
	sweeper  *StuckMatchSweeper
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// New constructs a Manager. stuckThreshold bounds how long a single
// dispatched match may run before the StuckMatchSweeper declares it
// stuck and folds it into a synthetic error outcome; pass 0 to use the
// sweeper's default.
func New(executor MatchExecutor, stuckThreshold time.Duration, log *logger.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		executor: executor,
		sweeper:  NewStuckMatchSweeper(stuckThreshold, log),
		log:      log,
		metrics:  m,
	}
}

// Parallelism returns P = min(maxParallel, max(2, CPU_count)) per spec
// §4.6, using the host's logical CPU count rather than a hardcoded
// runtime.NumCPU() call.
func Parallelism(maxParallel int) int {
	count, err := cpu.Counts(true)
	if err != nil || count <= 0 {
		count = runtime.NumCPU()
	}
	floor := count
	if floor < 2 {
		floor = 2
	}
	if maxParallel > 0 && maxParallel < floor {
		return maxParallel
	}
	return floor
}

// Run drives event to Completed or Cancelled, dispatching every stage's
// pending matches through the bounded worker pool and never advancing a
// stage while matches are outstanding. ctx cancellation cascades into the
// event: outstanding matches are allowed to finish (with error outcomes
// where the executor itself observes cancellation), then the event is
// transitioned to Cancelled.
func (m *Manager) Run(ctx context.Context, event Event, game domain.GameRegistry, gameType string, maxParallel int) (domain.EventInfo, error) {
	descriptor, ok := game.Lookup(gameType)
	if !ok {
		return domain.EventInfo{}, errors.ErrUnknownGameType
	}

	parallelism := Parallelism(maxParallel)
	m.metrics.SetWorkerPoolSize(parallelism)

	for {
		if ctx.Err() != nil {
			return event.Cancel(), ctx.Err()
		}

		info := event.GetTournamentInfo()
		if info.State == domain.EventCompleted || info.State == domain.EventCancelled {
			return info, nil
		}

		pending := event.GetNextMatches()
		m.metrics.SetPendingMatches(info.TournamentID.String(), len(pending))

		if len(pending) == 0 {
			info, err := event.AdvanceToNextRound()
			if err != nil {
				return info, err
			}
			continue
		}

		if err := m.dispatchStage(ctx, event, pending, descriptor, parallelism); err != nil {
			return event.Cancel(), err
		}
	}
}

// dispatchStage offers every pending match of the current stage to a
// bounded worker pool and blocks until all are recorded, implementing the
// stage barrier: no caller observes a pending set mutate mid-dispatch.
func (m *Manager) dispatchStage(ctx context.Context, event Event, pending []domain.PendingMatch, game domain.GameDescriptor, parallelism int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	var active int64
	for _, pm := range pending {
		pm := pm
		g.Go(func() error {
			n := atomic.AddInt64(&active, 1)
			m.metrics.SetActiveWorkers(int(n))
			defer func() {
				n := atomic.AddInt64(&active, -1)
				m.metrics.SetActiveWorkers(int(n))
			}()
			return m.runOne(gctx, event, pm, game)
		})
	}

	return g.Wait()
}

// runOne never returns a record-keeping error: a RecordMatchResult
// failure for one pair is logged and must not abort the whole stage's
// dispatch. Only ctx cancellation propagates.
func (m *Manager) runOne(ctx context.Context, event Event, pm domain.PendingMatch, game domain.GameDescriptor) error {
	result := m.sweeper.Guard(ctx, pm, game.GameType, func(ctx context.Context) domain.MatchResult {
		return m.executor.Execute(ctx, pm.BotA, pm.BotB, game)
	})

	if _, err := event.RecordMatchResult(result, pm.Group); err != nil {
		m.log.LogError("failed to record match result", err,
			zap.String("bot1", pm.BotA.TeamName),
			zap.String("bot2", pm.BotB.TeamName),
			zap.String("group", pm.Group),
		)
	}
	return ctx.Err()
}
