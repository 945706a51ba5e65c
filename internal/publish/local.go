package publish

import (
	"sync"
	"time"

	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink receives every envelope a Local publisher emits. A sink must not
// block for long; Local does not enforce a timeout on it, mirroring the
// at-least-once guarantee the local path owes its subscribers.
type Sink interface {
	Receive(Envelope)
}

// RemoteSink is a best-effort sink: a failure to deliver is logged and
// otherwise ignored. internal/publish/remote.Hub implements this.
type RemoteSink interface {
	Sink
}

// Local is the default Publisher: it fans every notification out to
// registered local Sinks synchronously (at-least-once — the call
// returns only after every local sink has seen the envelope) and to
// registered remote sinks asynchronously and best-effort.
type Local struct {
	mu          sync.RWMutex
	localSinks  []Sink
	remoteSinks []RemoteSink
	log         *logger.Logger
}

func NewLocal(log *logger.Logger) *Local {
	return &Local{log: log}
}

// Subscribe registers a local sink. Safe to call concurrently with
// publication.
func (p *Local) Subscribe(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.localSinks = append(p.localSinks, s)
}

// SubscribeRemote registers a best-effort remote sink.
func (p *Local) SubscribeRemote(s RemoteSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remoteSinks = append(p.remoteSinks, s)
}

func (p *Local) emit(typ string, payload interface{}) {
	env := Envelope{Type: typ, Timestamp: time.Now(), Payload: payload}

	p.mu.RLock()
	local := append([]Sink(nil), p.localSinks...)
	remote := append([]RemoteSink(nil), p.remoteSinks...)
	p.mu.RUnlock()

	for _, s := range local {
		p.deliverLocal(s, env)
	}
	for _, s := range remote {
		go p.deliverRemote(s, env)
	}
}

func (p *Local) deliverLocal(s Sink, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("local publish sink panicked", zap.Any("recover", r), zap.String("type", env.Type))
		}
	}()
	s.Receive(env)
}

func (p *Local) deliverRemote(s RemoteSink, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("remote publish sink panicked", zap.Any("recover", r), zap.String("type", env.Type))
		}
	}()
	s.Receive(env)
}

func (p *Local) TournamentStarted(seriesID uuid.UUID, seriesName string, steps []EventStep) {
	p.emit(TypeTournamentStarted, map[string]interface{}{
		"seriesId": seriesID, "seriesName": seriesName, "steps": steps,
	})
}

func (p *Local) EventStarted(seriesID, eventID uuid.UUID, gameType string, eventNumber, totalBots int) {
	p.emit(TypeEventStarted, map[string]interface{}{
		"seriesId": seriesID, "eventId": eventID, "gameType": gameType,
		"eventNumber": eventNumber, "totalBots": totalBots,
	})
}

func (p *Local) RoundStarted(seriesID uuid.UUID, roundNumber int, stageLabel string) {
	p.emit(TypeRoundStarted, map[string]interface{}{
		"seriesId": seriesID, "roundNumber": roundNumber, "stageLabel": stageLabel,
	})
}

func (p *Local) MatchCompleted(evt MatchCompletedEvent) {
	p.emit(TypeMatchCompleted, evt)
}

func (p *Local) StandingsUpdated(evt StandingsUpdatedEvent) {
	p.emit(TypeStandingsUpdated, evt)
}

func (p *Local) EventStepCompleted(seriesID, eventID uuid.UUID, stepIndex int, gameType, winnerName, eventName string) {
	p.emit(TypeEventStepCompleted, map[string]interface{}{
		"seriesId": seriesID, "eventId": eventID, "stepIndex": stepIndex,
		"gameType": gameType, "winnerName": winnerName, "eventName": eventName,
	})
}

func (p *Local) EventCompleted(seriesID, eventID uuid.UUID, gameType string, champion *domain.Bot) {
	p.emit(TypeEventCompleted, map[string]interface{}{
		"seriesId": seriesID, "eventId": eventID, "gameType": gameType, "champion": champion,
	})
}

func (p *Local) TournamentProgressUpdated(state domain.DashboardState) {
	p.emit(TypeTournamentProgressUpdated, state)
}

func (p *Local) TournamentCompleted(seriesID uuid.UUID, seriesName string, champion *domain.Bot) {
	p.emit(TypeTournamentCompleted, map[string]interface{}{
		"seriesId": seriesID, "seriesName": seriesName, "champion": champion,
	})
}
