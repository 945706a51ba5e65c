// Package executor implements C1, the Match Executor: the component that
// plays one match between two bots and always returns a MatchResult,
// never a failure. Bot code loading and sandboxing are out-of-scope
// external collaborators; this package only defines the seam
// (PlayerResolver) they plug into.
package executor

import (
	"context"
	"time"

	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/pkg/logger"
	"github.com/forgeline/arena/pkg/metrics"
	"go.uber.org/zap"
)

// MatchExecutor is the interface C6 dispatches matches through. Both the
// in-process Executor in this package and internal/executor/sandbox's
// Docker-isolated Executor satisfy it.
type MatchExecutor interface {
	Execute(ctx context.Context, bot1, bot2 domain.Bot, game domain.GameDescriptor) domain.MatchResult
}

// Action is one bot's contribution to a round: a score delta and
// whatever per-round log line the play engine wants journaled.
type Action struct {
	Score int
	Log   string
}

// Player is the out-of-scope play-engine/bot-sandbox collaborator's
// interface: given the round state, produce this bot's move. An error
// return means this bot errored for the match.
type Player interface {
	Move(ctx context.Context, self, opponent domain.Bot, round int, game domain.GameDescriptor) (Action, error)
}

// PlayerResolver loads the Player for a bot playing a given game type.
// This is the seam the out-of-scope bot loader plugs into; Execute treats
// a resolution failure the same as a move failure (that bot errors).
type PlayerResolver interface {
	Resolve(bot domain.Bot, gameType string) (Player, error)
}

// Executor is the default in-process MatchExecutor: it runs up to
// game.MaxRounds turns, enforcing a per-move timeout, and folds a
// cancelled context or a bot's move error into an error outcome rather
// than propagating a failure.
type Executor struct {
	resolver PlayerResolver
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func New(resolver PlayerResolver, log *logger.Logger, m *metrics.Metrics) *Executor {
	return &Executor{resolver: resolver, log: log, metrics: m}
}

func (e *Executor) Execute(ctx context.Context, bot1, bot2 domain.Bot, game domain.GameDescriptor) domain.MatchResult {
	start := time.Now()
	e.metrics.RecordMatchStart()

	result := domain.MatchResult{
		Bot1:     bot1,
		Bot2:     bot2,
		GameType: game.GameType,
		StartUtc: start,
	}

	p1, err1 := e.resolver.Resolve(bot1, game.GameType)
	p2, err2 := e.resolver.Resolve(bot2, game.GameType)

	var errored1, errored2 bool
	if err1 != nil {
		errored1 = true
		result.Errors = append(result.Errors, "bot1: "+err1.Error())
	}
	if err2 != nil {
		errored2 = true
		result.Errors = append(result.Errors, "bot2: "+err2.Error())
	}

	var score1, score2 int
	if !errored1 && !errored2 {
		score1, score2, errored1, errored2, result.Log = e.playRounds(ctx, bot1, bot2, p1, p2, game)
	}

	result.Score1 = score1
	result.Score2 = score2
	result.EndUtc = time.Now()
	result.Outcome, result.Winner = resolveOutcome(bot1, bot2, score1, score2, errored1, errored2)

	duration := result.EndUtc.Sub(result.StartUtc)
	e.metrics.RecordMatchComplete(game.GameType, string(result.Outcome), duration)
	e.log.Debug("match executed",
		zap.String("bot1", bot1.TeamName),
		zap.String("bot2", bot2.TeamName),
		zap.String("outcome", string(result.Outcome)),
		zap.Duration("duration", duration),
	)

	return result
}

func (e *Executor) playRounds(ctx context.Context, bot1, bot2 domain.Bot, p1, p2 Player, game domain.GameDescriptor) (score1, score2 int, errored1, errored2 bool, log []string) {
	maxRounds := game.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 1
	}

	for round := 0; round < maxRounds; round++ {
		if ctx.Err() != nil {
			return score1, score2, true, true, log
		}

		a1, err := e.move(ctx, p1, bot1, bot2, round, game)
		if err != nil {
			errored1 = true
		} else {
			score1 += a1.Score
			if a1.Log != "" {
				log = append(log, a1.Log)
			}
		}

		a2, err := e.move(ctx, p2, bot2, bot1, round, game)
		if err != nil {
			errored2 = true
		} else {
			score2 += a2.Score
			if a2.Log != "" {
				log = append(log, a2.Log)
			}
		}

		if errored1 || errored2 {
			return score1, score2, errored1, errored2, log
		}
	}
	return score1, score2, errored1, errored2, log
}

func (e *Executor) move(ctx context.Context, p Player, self, opponent domain.Bot, round int, game domain.GameDescriptor) (Action, error) {
	timeout := game.MoveTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	moveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Move(moveCtx, self, opponent, round, game)
}

func resolveOutcome(bot1, bot2 domain.Bot, score1, score2 int, errored1, errored2 bool) (domain.Outcome, *domain.Bot) {
	switch {
	case errored1 && errored2:
		return domain.OutcomeBothErr, nil
	case errored1:
		return domain.OutcomeP1Err, &bot2
	case errored2:
		return domain.OutcomeP2Err, &bot1
	case score1 > score2:
		return domain.OutcomeP1Win, &bot1
	case score2 > score1:
		return domain.OutcomeP2Win, &bot2
	default:
		return domain.OutcomeDraw, nil
	}
}
