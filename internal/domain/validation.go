package domain

import (
	"github.com/forgeline/arena/pkg/validator"
)

// Validate checks the Configuration error kind (spec §7): bad SeriesConfig
// must surface to the caller of RunSeries before any event starts.
func (c *SeriesConfig) Validate() error {
	errs := validator.ValidationErrors{}

	if len(c.GameTypes) == 0 {
		errs.Add("gameTypes", "at least one game type is required")
	}
	for i, gt := range c.GameTypes {
		if err := validator.ValidateRequired("gameTypes", gt); err != nil {
			errs = append(errs, err.(*validator.ValidationError))
			break
		}
		_ = i
	}

	if c.GroupCount < 0 {
		errs.Add("groupCount", "groupCount cannot be negative")
	}
	if c.FinalistsPerGroup < 0 {
		errs.Add("finalistsPerGroup", "finalistsPerGroup cannot be negative")
	}
	if c.MaxParallelMatches < 0 {
		errs.Add("maxParallelMatches", "maxParallelMatches cannot be negative")
	}
	if c.MoveTimeout < 0 {
		errs.Add("moveTimeout", "moveTimeout cannot be negative")
	}
	if c.MemoryLimitMB < 0 {
		errs.Add("memoryLimitMB", "memoryLimitMB cannot be negative")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate checks a Bot's immutable identity fields.
func (b *Bot) Validate() error {
	errs := validator.ValidationErrors{}

	if err := validator.ValidateRequired("id", b.ID); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}
	if err := validator.ValidateRequired("teamName", b.TeamName); err != nil {
		errs = append(errs, err.(*validator.ValidationError))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ValidateEventState checks an EventState against the enumerated set.
func ValidateEventState(s EventState) error {
	return validator.ValidateEnum("state", string(s), []string{
		string(EventNotStarted),
		string(EventInProgress),
		string(EventCompleted),
		string(EventCancelled),
	})
}

// ValidateOutcome checks an Outcome against the enumerated set.
func ValidateOutcome(o Outcome) error {
	return validator.ValidateEnum("outcome", string(o), []string{
		string(OutcomeUnknown),
		string(OutcomeP1Win),
		string(OutcomeP2Win),
		string(OutcomeDraw),
		string(OutcomeP1Err),
		string(OutcomeP2Err),
		string(OutcomeBothErr),
	})
}

// ClampGroupCount implements the spec's groupCount clamp rule:
// clamp(min(requested, len(bots)/2), 1, 10).
func ClampGroupCount(requested, botCount int) int {
	groupCount := requested
	if half := botCount / 2; half < groupCount {
		groupCount = half
	}
	if groupCount < 1 {
		groupCount = 1
	}
	if groupCount > 10 {
		groupCount = 10
	}
	return groupCount
}
