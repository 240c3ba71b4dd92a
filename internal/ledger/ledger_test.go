package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/model"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New(Config{Enabled: true, DBPath: filepath.Join(t.TempDir(), "ledger.db")}, logging.NewDevelopment("ledger-test"))
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(l.Stop)
	return l
}

func TestInsertAndCompleteRun(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	start := time.Now().UTC()

	l.InsertRunStart(ctx, model.RunRecord{RunID: "run-1", StartTS: start, TotalFiles: 3, SchemaKey: "document_metadata"})
	l.UpdateRunComplete(ctx, "run-1", start.Add(2*time.Second), 3, 0, model.Usage{TotalTokens: 100}, model.RunCompleted)

	runs, err := l.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, model.RunCompleted, runs[0].Status)
	assert.Equal(t, 3, runs[0].Successful)
}

func TestInsertRunStartIsIdempotent(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	l.InsertRunStart(ctx, model.RunRecord{RunID: "run-2", TotalFiles: 1, StartTS: time.Now()})
	l.InsertRunStart(ctx, model.RunRecord{RunID: "run-2", TotalFiles: 99, StartTS: time.Now()})

	runs, err := l.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].TotalFiles, "second insert for the same run_id must be ignored")
}

func TestUpdateCompleteOnUnknownRunIDIsDropped(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	l.UpdateRunComplete(ctx, "does-not-exist", time.Now(), 1, 0, model.Usage{}, model.RunCompleted)

	runs, err := l.RecentRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStatsAggregatesAcrossRuns(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	l.InsertRunStart(ctx, model.RunRecord{RunID: "run-a", TotalFiles: 2, StartTS: now})
	aUsage := model.Usage{TotalTokens: 50}
	aUsage.Add(model.Usage{Cached: true})
	l.UpdateRunComplete(ctx, "run-a", now, 2, 0, aUsage, model.RunCompleted)
	l.InsertRunStart(ctx, model.RunRecord{RunID: "run-b", TotalFiles: 1, StartTS: now})
	l.UpdateRunComplete(ctx, "run-b", now, 0, 1, model.Usage{TotalTokens: 10}, model.RunFailed)

	stats, err := l.Stats(ctx, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalRuns)
	assert.EqualValues(t, 1, stats.SuccessfulRuns)
	assert.EqualValues(t, 1, stats.FailedRuns)
	assert.EqualValues(t, 60, stats.TotalTokens)
	assert.EqualValues(t, 1, stats.TotalCacheHits)
}
