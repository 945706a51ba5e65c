package dispatch

import (
	"context"
	"time"

	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/pkg/logger"
	"go.uber.org/zap"
)

// StuckMatchSweeper is the supplemented recovery feature: a backstop for a
// dispatched match whose wall-clock runtime exceeds its threshold without
// a result. A match whose context is cancelled is not swept; its own
// result is awaited.
// There is no cross-process queue here (dispatch is in-process), so
// recovery means folding the stuck pair back into a synthetic error
// outcome so the stage barrier does not hang forever, rather than
// resetting a row in a shared work table.
type StuckMatchSweeper struct {
	threshold time.Duration
	log       *logger.Logger
}

func NewStuckMatchSweeper(threshold time.Duration, log *logger.Logger) *StuckMatchSweeper {
	if threshold <= 0 {
		threshold = 30 * time.Second
	}
	return &StuckMatchSweeper{threshold: threshold, log: log}
}

// Guard runs run under ctx and returns its result normally. If run has
// not returned within the sweeper's threshold and ctx itself has not
// been cancelled, Guard gives up waiting and returns a synthetic
// both-errored outcome instead, logging the stuck pair. The abandoned
// goroutine's eventual result, if any, lands in a buffered channel that
// is never read again, so it is never recorded.
func (s *StuckMatchSweeper) Guard(ctx context.Context, pm domain.PendingMatch, gameType string, run func(ctx context.Context) domain.MatchResult) domain.MatchResult {
	resultCh := make(chan domain.MatchResult, 1)
	start := time.Now()
	go func() {
		resultCh <- run(ctx)
	}()

	timer := time.NewTimer(s.threshold)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		return result
	case <-timer.C:
		if ctx.Err() != nil {
			return <-resultCh
		}
		s.log.Warn("match exceeded stuck threshold, recording as errored",
			zap.String("bot1", pm.BotA.TeamName),
			zap.String("bot2", pm.BotB.TeamName),
			zap.String("group", pm.Group),
			zap.Duration("threshold", s.threshold),
		)
		return domain.MatchResult{
			Bot1:     pm.BotA,
			Bot2:     pm.BotB,
			GameType: gameType,
			Outcome:  domain.OutcomeBothErr,
			Errors:   []string{"match exceeded stuck threshold"},
			StartUtc: start,
			EndUtc:   time.Now(),
		}
	}
}
