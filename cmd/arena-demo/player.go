package main

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"

	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/internal/executor"
)

// deterministicPlayer plays a round by drawing from a per-bot
// deterministically-seeded random source, so each bot draws the same
// sequence of scores on every run without needing real bot binaries
// wired up. When a bot plays several matches concurrently, which match
// receives which draw depends on scheduling, so match results can still
// differ between runs.
type deterministicPlayer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newDeterministicPlayer(botID string) *deterministicPlayer {
	h := fnv.New64a()
	_, _ = h.Write([]byte(botID))
	return &deterministicPlayer{rng: rand.New(rand.NewSource(int64(h.Sum64())))}
}

func (p *deterministicPlayer) Move(_ context.Context, self, _ domain.Bot, _ int, _ domain.GameDescriptor) (executor.Action, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return executor.Action{Score: p.rng.Intn(10)}, nil
}

// demoResolver hands out one deterministicPlayer per bot, memoized so a
// bot's scores stay internally consistent across the rounds of a match.
// Concurrent matches can resolve the same bot at once, so lookups and
// inserts are guarded.
type demoResolver struct {
	mu      sync.Mutex
	players map[string]executor.Player
}

func newDemoResolver() *demoResolver {
	return &demoResolver{players: make(map[string]executor.Player)}
}

func (r *demoResolver) Resolve(bot domain.Bot, _ string) (executor.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[bot.ID]; ok {
		return p, nil
	}
	p := newDeterministicPlayer(bot.ID)
	r.players[bot.ID] = p
	return p, nil
}
