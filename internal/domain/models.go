package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bot is an immutable participant identity. TeamName doubles as its
// display identity and its tiebreak key (spec's ranking order falls back
// to team name ascending).
type Bot struct {
	ID           string            `json:"id"`
	TeamName     string            `json:"teamName"`
	Capabilities map[string]string `json:"capabilities,omitempty"`
}

// GameDescriptor carries the parameters a Match Executor needs to run one
// game type: how many rounds to play before calling it a draw, and how
// long a bot gets per move before it is treated as having errored.
type GameDescriptor struct {
	GameType    string        `json:"gameType"`
	MaxRounds   int           `json:"maxRounds"`
	MoveTimeout time.Duration `json:"moveTimeout"`
}

// GameRegistry maps a game type to its descriptor. The caller of
// series.New supplies it; C6 looks each event's descriptor up in it and
// passes that descriptor to C1.
type GameRegistry map[string]GameDescriptor

func (r GameRegistry) Lookup(gameType string) (GameDescriptor, bool) {
	d, ok := r[gameType]
	return d, ok
}

// Group is an ordered, labeled partition of bots: "Group A", "Final
// Group", "Tiebreaker-1", and so on.
type Group struct {
	Label string `json:"label"`
	Bots  []Bot  `json:"bots"`
}

// PendingMatch is a match C5 has generated but not yet dispatched.
type PendingMatch struct {
	BotA  Bot    `json:"botA"`
	BotB  Bot    `json:"botB"`
	Group string `json:"group"`
}

// Outcome classifies how a match ended. OutcomeUnknown is a sentinel for
// "not yet decided" and is never recorded into an EventInfo's
// MatchResults.
type Outcome string

const (
	OutcomeUnknown  Outcome = "Unknown"
	OutcomeP1Win    Outcome = "P1Win"
	OutcomeP2Win    Outcome = "P2Win"
	OutcomeDraw     Outcome = "Draw"
	OutcomeP1Err    Outcome = "P1Err"
	OutcomeP2Err    Outcome = "P2Err"
	OutcomeBothErr  Outcome = "BothErr"
)

// JournalCode returns the integer encoding spec §6 assigns to an Outcome
// for the match-results journal: Unknown=0, P1Win=1, P2Win=2, Draw=3,
// BothErr=4, P1Err=5, P2Err=6.
func (o Outcome) JournalCode() int {
	switch o {
	case OutcomeP1Win:
		return 1
	case OutcomeP2Win:
		return 2
	case OutcomeDraw:
		return 3
	case OutcomeBothErr:
		return 4
	case OutcomeP1Err:
		return 5
	case OutcomeP2Err:
		return 6
	default:
		return 0
	}
}

// MatchResult is the immutable record of one played match.
type MatchResult struct {
	Bot1      Bot       `json:"bot1"`
	Bot2      Bot       `json:"bot2"`
	GameType  string    `json:"gameType"`
	Outcome   Outcome   `json:"outcome"`
	Winner    *Bot      `json:"winner,omitempty"`
	Score1    int       `json:"score1"`
	Score2    int       `json:"score2"`
	StartUtc  time.Time `json:"startUtc"`
	EndUtc    time.Time `json:"endUtc"`
	Log       []string  `json:"log,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
}

// Standing is one bot's accumulated record within an event.
type Standing struct {
	Wins       int      `json:"wins"`
	Losses     int      `json:"losses"`
	Draws      int      `json:"draws"`
	Points     int      `json:"points"`
	Opponents  []string `json:"opponents"`
	Eliminated bool     `json:"eliminated"`
}

// EventState is the coarse lifecycle state of a single-game-type event.
type EventState string

const (
	EventNotStarted EventState = "NotStarted"
	EventInProgress EventState = "InProgress"
	EventCompleted  EventState = "Completed"
	EventCancelled  EventState = "Cancelled"
)

// Stage names the current step inside InProgress: InitialGroups,
// FinalGroup, Tiebreaker-N, or Completed/Cancelled once the event has
// closed.
type Stage string

const (
	StageInitialGroups Stage = "InitialGroups"
	StageFinalGroup    Stage = "FinalGroup"
	StageCompleted     Stage = "Completed"
	StageCancelled     Stage = "Cancelled"
)

// EventInfo is the full immutable snapshot of one event (one game type
// played to a champion). Only internal/engine.Engine mutates the live
// copy; every other caller receives a deep-copied EventInfo.
type EventInfo struct {
	TournamentID uuid.UUID             `json:"tournamentId"`
	GameType     string                `json:"gameType"`
	State        EventState            `json:"state"`
	Stage        Stage                 `json:"stage"`
	Bots         []Bot                 `json:"bots"`
	Groups       []Group               `json:"groups"`
	Pending      []PendingMatch        `json:"pending"`
	MatchResults []MatchResult         `json:"matchResults"`
	Standings    map[string]Standing   `json:"standings"`
	Champion     *Bot                  `json:"champion,omitempty"`
	StartUtc     time.Time             `json:"startUtc"`
	EndUtc       *time.Time            `json:"endUtc,omitempty"`
	CurrentRound int                   `json:"currentRound"`
	TotalRounds  int                   `json:"totalRounds"`
	TiebreakerNo int                   `json:"tiebreakerNo"`
}

// EventConfig configures one event run by internal/engine.Engine. It is
// derived from SeriesConfig once per game type.
type EventConfig struct {
	GroupCount          int
	FinalistsPerGroup   int
	UseTiebreakers      bool
	TiebreakerGameType  string
	MoveTimeout         time.Duration
	MemoryLimitMB       int
}

// SeriesConfig is the configuration surface of spec §6, constructed by
// the caller of RunSeries.
type SeriesConfig struct {
	GameTypes          []string
	GroupCount         int
	FinalistsPerGroup  int
	UseTiebreakers     bool
	TiebreakerGameType string
	MaxParallelMatches int
	MoveTimeout        time.Duration
	MemoryLimitMB      int
}

// WithDefaults returns a copy of cfg with zero-valued GroupCount,
// FinalistsPerGroup, MaxParallelMatches, MoveTimeout and MemoryLimitMB
// filled in from spec §6's defaults table. UseTiebreakers and
// TiebreakerGameType are returned as given; a zero UseTiebreakers stays
// false.
func (c SeriesConfig) WithDefaults(cpuCount int) SeriesConfig {
	out := c
	if out.GroupCount == 0 {
		out.GroupCount = 10
	}
	if out.FinalistsPerGroup == 0 {
		out.FinalistsPerGroup = 1
	}
	if out.MaxParallelMatches == 0 {
		parallelism := cpuCount
		if parallelism < 2 {
			parallelism = 2
		}
		out.MaxParallelMatches = parallelism
	}
	if out.MoveTimeout == 0 {
		out.MoveTimeout = time.Second
	}
	if out.MemoryLimitMB == 0 {
		out.MemoryLimitMB = 512
	}
	return out
}

// LeaderboardEntry is one bot's cumulative cross-event standing within a
// running or completed series.
type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	Bot            Bot     `json:"bot"`
	TotalPoints    int     `json:"totalPoints"`
	TotalWins      int     `json:"totalWins"`
	TotalLosses    int     `json:"totalLosses"`
	TotalDraws     int     `json:"totalDraws"`
	TournamentsWon int     `json:"tournamentsWon"`
	Rating         int     `json:"rating"`
}

// SeriesInfo is the top-level snapshot exposed by internal/series.Manager.
type SeriesInfo struct {
	SeriesID        uuid.UUID           `json:"seriesId"`
	OrderedEvents   []EventInfo         `json:"orderedEvents"`
	SeriesStandings []LeaderboardEntry  `json:"seriesStandings"`
	SeriesChampion  *Bot                `json:"seriesChampion,omitempty"`
	StartUtc        time.Time           `json:"startUtc"`
	EndUtc          *time.Time          `json:"endUtc,omitempty"`
	Config          SeriesConfig        `json:"config"`
}

// DashboardState is the read-only live-query surface C7 exposes beyond
// the raw SeriesInfo snapshot: a flattened view convenient for a UI
// consumer to poll without walking OrderedEvents itself.
type DashboardState struct {
	SeriesID       uuid.UUID          `json:"seriesId"`
	CurrentEvent   *EventInfo         `json:"currentEvent,omitempty"`
	EventsComplete int                `json:"eventsComplete"`
	EventsTotal    int                `json:"eventsTotal"`
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
}
