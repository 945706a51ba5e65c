// Package publish implements C4, the Event Publisher: a set of
// fire-and-forget lifecycle notifications the core never awaits for
// correctness. Delivery is at-least-once to local sinks and best-effort
// to remote sinks; a publication failure must never abort a series.
package publish

import (
	"time"

	"github.com/forgeline/arena/internal/domain"
	"github.com/google/uuid"
)

// EventStep is one entry in a series' ordered event plan.
type EventStep struct {
	Index    int    `json:"index"`
	GameType string `json:"gameType"`
	Status   string `json:"status"`
}

// MatchCompletedEvent carries a finished match plus the identifiers and
// group label needed to place it in the series.
type MatchCompletedEvent struct {
	SeriesID uuid.UUID          `json:"seriesId"`
	EventID  uuid.UUID          `json:"eventId"`
	Group    string             `json:"group"`
	Result   domain.MatchResult `json:"result"`
}

// StandingsUpdatedEvent carries overall and per-group standings for one
// event after a match result is recorded.
type StandingsUpdatedEvent struct {
	SeriesID uuid.UUID                             `json:"seriesId"`
	EventID  uuid.UUID                             `json:"eventId"`
	Overall  map[string]domain.Standing            `json:"overall"`
	PerGroup map[string]map[string]domain.Standing `json:"perGroup"`
}

// Publisher is the sink C5/C6/C7 push lifecycle notifications to. Every
// method is fire-and-forget: none returns an error the core is expected
// to handle. How long a call takes depends on the implementation: Local
// returns only after each local sink has received the envelope, and
// hands remote sinks off to goroutines.
type Publisher interface {
	TournamentStarted(seriesID uuid.UUID, seriesName string, steps []EventStep)
	EventStarted(seriesID, eventID uuid.UUID, gameType string, eventNumber, totalBots int)
	RoundStarted(seriesID uuid.UUID, roundNumber int, stageLabel string)
	MatchCompleted(evt MatchCompletedEvent)
	StandingsUpdated(evt StandingsUpdatedEvent)
	EventStepCompleted(seriesID, eventID uuid.UUID, stepIndex int, gameType, winnerName, eventName string)
	EventCompleted(seriesID, eventID uuid.UUID, gameType string, champion *domain.Bot)
	TournamentProgressUpdated(state domain.DashboardState)
	TournamentCompleted(seriesID uuid.UUID, seriesName string, champion *domain.Bot)
}

// Envelope wraps every notification with a timestamp and type tag before
// it reaches a sink, so sinks that serialize (the remote websocket sink)
// don't each need to know the payload shape.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

const (
	TypeTournamentStarted         = "TournamentStarted"
	TypeEventStarted              = "EventStarted"
	TypeRoundStarted              = "RoundStarted"
	TypeMatchCompleted            = "MatchCompleted"
	TypeStandingsUpdated          = "StandingsUpdated"
	TypeEventStepCompleted        = "EventStepCompleted"
	TypeEventCompleted            = "EventCompleted"
	TypeTournamentProgressUpdated = "TournamentProgressUpdated"
	TypeTournamentCompleted       = "TournamentCompleted"
)
