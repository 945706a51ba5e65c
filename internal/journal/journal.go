// Package journal implements C3, the Match Results Journal: an
// append-only, per-run CSV sink for (MatchResult, groupLabel) tuples used
// for audit and export. A journal write failure is logged and never
// propagated; it must not corrupt in-memory state or stop a series.
package journal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/pkg/errors"
	"github.com/forgeline/arena/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var header = []string{
	"GameType", "PlayerA", "PlayerB", "Group", "StartTimeUtc", "DurationMs",
	"MatchOutcome", "Bot1Score", "Bot2Score", "WinnerName", "SubActsJson",
}

// Journal serializes match-result appends to a single CSV file per run.
// One Journal instance is shared across a tournament; startRun rotates it
// onto a new file for the next run.
type Journal struct {
	mu       sync.Mutex
	basePath string
	log      *logger.Logger
	m        *journalMetrics

	file *os.File
	w    *csv.Writer
}

// journalMetrics narrows the metrics surface the journal depends on,
// letting tests stub it without pulling in the full pkg/metrics.Metrics.
type journalMetrics interface {
	RecordJournalFailure()
}

// New creates a Journal that writes run files under basePath, named
// "<base>_<runId>.csv". basePath's parent directory is created if it
// does not exist.
func New(basePath string, log *logger.Logger, m journalMetrics) (*Journal, error) {
	dir := filepath.Dir(basePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create journal directory")
	}
	return &Journal{basePath: basePath, log: log, m: m}, nil
}

// StartRun closes any file from a previous run and opens a fresh
// "<base>_<runId>.csv", writing the header immediately rather than on
// the first append, so a run with no appended records still leaves a
// header-only file.
func (j *Journal) StartRun(tournamentID uuid.UUID, gameType string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file != nil {
		j.w.Flush()
		_ = j.file.Close()
		j.file, j.w = nil, nil
	}

	runID := fmt.Sprintf("%s_%s", tournamentID.String(), gameType)
	path := fmt.Sprintf("%s_%s.csv", j.basePath, runID)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		j.recordFailure(err)
		return errors.Wrap(err, "open journal run file")
	}

	j.file = f
	j.w = csv.NewWriter(f)
	if err := j.w.Write(header); err != nil {
		j.recordFailure(err)
		return errors.Wrap(err, "write journal header")
	}
	j.w.Flush()

	j.log.Info("journal run started", zap.String("tournament_id", tournamentID.String()), zap.String("game_type", gameType), zap.String("path", path))
	return nil
}

// Append serializes one match result as a CSV line. Failures are logged
// and swallowed: per spec, a journal write failure never aborts the
// tournament.
func (j *Journal) Append(result domain.MatchResult, groupLabel string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil || j.w == nil {
		j.log.Error("journal append with no active run", zap.String("game_type", result.GameType))
		j.recordFailure(fmt.Errorf("no active run"))
		return
	}

	subActs, err := json.Marshal(result.Log)
	if err != nil {
		j.log.LogError("failed to marshal match log for journal", err)
		subActs = []byte("[]")
	}

	winnerName := ""
	if result.Winner != nil {
		winnerName = result.Winner.TeamName
	}

	duration := result.EndUtc.Sub(result.StartUtc)
	record := []string{
		result.GameType,
		result.Bot1.TeamName,
		result.Bot2.TeamName,
		groupLabel,
		result.StartUtc.UTC().Format(time.RFC3339Nano),
		fmt.Sprintf("%d", duration.Milliseconds()),
		fmt.Sprintf("%d", result.Outcome.JournalCode()),
		fmt.Sprintf("%d", result.Score1),
		fmt.Sprintf("%d", result.Score2),
		winnerName,
		string(subActs),
	}

	if err := j.w.Write(record); err != nil {
		j.log.LogError("failed to append match result to journal", err, zap.String("game_type", result.GameType))
		j.recordFailure(err)
		return
	}
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.log.LogError("journal flush failed", err)
		j.recordFailure(err)
	}
}

func (j *Journal) recordFailure(err error) {
	if j.m != nil {
		j.m.RecordJournalFailure()
	}
}

// Close flushes and closes the current run file, if any.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}
	j.w.Flush()
	err := j.file.Close()
	j.file, j.w = nil, nil
	return err
}
