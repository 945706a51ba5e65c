package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forgeline/arena/internal/domain"
	"github.com/forgeline/arena/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct{ failures int }

func (m *countingMetrics) RecordJournalFailure() { m.failures++ }

func newTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, "results")
	log, _ := logger.New("error", "json")
	j, err := New(base, log, &countingMetrics{})
	require.NoError(t, err)
	return j, base
}

func TestStartRun_CreatesNamedFileWithHeader(t *testing.T) {
	j, base := newTestJournal(t)
	tournamentID := uuid.New()

	require.NoError(t, j.StartRun(tournamentID, "sum-game"))
	require.NoError(t, j.Close())

	path := base + "_" + tournamentID.String() + "_sum-game.csv"
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, header, rows[0])
}

func TestAppend_WritesOneLinePerMatch(t *testing.T) {
	j, base := newTestJournal(t)
	tournamentID := uuid.New()
	require.NoError(t, j.StartRun(tournamentID, "sum-game"))

	a := domain.Bot{ID: "a", TeamName: "Alpha"}
	b := domain.Bot{ID: "b", TeamName: "Beta"}
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	result := domain.MatchResult{
		Bot1: a, Bot2: b, GameType: "sum-game",
		Outcome:  domain.OutcomeP1Win,
		Winner:   &a,
		Score1:   9, Score2: 3,
		StartUtc: start,
		EndUtc:   start.Add(250 * time.Millisecond),
		Log:      []string{"r1", "r2"},
	}
	j.Append(result, "Group A")
	require.NoError(t, j.Close())

	path := base + "_" + tournamentID.String() + "_sum-game.csv"
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "sum-game", row[0])
	assert.Equal(t, "Alpha", row[1])
	assert.Equal(t, "Beta", row[2])
	assert.Equal(t, "Group A", row[3])
	assert.Equal(t, "250", row[5])
	assert.Equal(t, "1", row[6]) // P1Win JournalCode
	assert.Equal(t, "9", row[7])
	assert.Equal(t, "3", row[8])
	assert.Equal(t, "Alpha", row[9])
	assert.Equal(t, `["r1","r2"]`, row[10])
}

func TestStartRun_RotatesToNewFileAndClosesPrevious(t *testing.T) {
	j, base := newTestJournal(t)
	t1 := uuid.New()
	t2 := uuid.New()

	require.NoError(t, j.StartRun(t1, "sum-game"))
	j.Append(domain.MatchResult{Bot1: domain.Bot{TeamName: "A"}, Bot2: domain.Bot{TeamName: "B"}, Outcome: domain.OutcomeDraw}, "Group A")

	require.NoError(t, j.StartRun(t2, "sum-game"))
	j.Append(domain.MatchResult{Bot1: domain.Bot{TeamName: "C"}, Bot2: domain.Bot{TeamName: "D"}, Outcome: domain.OutcomeDraw}, "Group A")
	require.NoError(t, j.Close())

	path1 := base + "_" + t1.String() + "_sum-game.csv"
	rows1, err := csv.NewReader(mustOpen(t, path1)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows1, 2)
	assert.Equal(t, "A", rows1[1][1])

	path2 := base + "_" + t2.String() + "_sum-game.csv"
	rows2, err := csv.NewReader(mustOpen(t, path2)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows2, 2)
	assert.Equal(t, "C", rows2[1][1])
}

func TestAppend_WithNoActiveRunRecordsFailureWithoutPanicking(t *testing.T) {
	j, _ := newTestJournal(t)
	assert.NotPanics(t, func() {
		j.Append(domain.MatchResult{Bot1: domain.Bot{TeamName: "A"}, Bot2: domain.Bot{TeamName: "B"}, Outcome: domain.OutcomeDraw}, "Group A")
	})
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}
