package idiommatcher

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenResultStore(filepath.Join(t.TempDir(), "db", "results.db"), &mockLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreSaveAndLoad(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	set := sampleDualSet()
	set.Matches[1].Rank = 2
	best := MatchSet{Layout: LayoutDualBestPerTarget, Matches: set.Matches[:1]}

	report := Report{SourceLanguage: "en", TargetLanguage: "ja", Mode: ModeDual,
		BestMatch: Summarize([]float64{0.86})}

	runID, err := store.SaveRun(ctx, RunRecord{
		SourceLanguage: "en",
		TargetLanguage: "ja",
		Mode:           ModeDual,
		Report:         report,
	}, map[string]MatchSet{"improved_ja_matches": set, "improved_ja_best_matches": best})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	loaded, err := store.Matches(ctx, runID, "improved_ja_matches")
	require.NoError(t, err)
	assert.Equal(t, set, loaded)

	loaded, err = store.Matches(ctx, runID, "improved_ja_best_matches")
	require.NoError(t, err)
	assert.Equal(t, best, loaded)

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "ja", runs[0].TargetLanguage)
	assert.InDelta(t, 0.86, runs[0].Report.BestMatch.Mean, 1e-12)
}

func TestSQLiteStoreRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, lang := range []string{"fr", "fi", "ja"} {
		_, err := store.SaveRun(ctx, RunRecord{
			ID:             "run-" + lang,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
			SourceLanguage: "en",
			TargetLanguage: lang,
			Mode:           ModeBasic,
		}, nil)
		require.NoError(t, err)
	}

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"run-ja", "run-fi", "run-fr"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
	assert.True(t, runs[2].CreatedAt.Equal(base))
}

func TestSQLiteStoreDuplicateRunID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := RunRecord{ID: "fixed", SourceLanguage: "en", TargetLanguage: "fr", Mode: ModeDual}
	_, err := store.SaveRun(ctx, run, map[string]MatchSet{"m": sampleDualSet()})
	require.NoError(t, err)

	_, err = store.SaveRun(ctx, run, map[string]MatchSet{"m": sampleDualSet()})
	assert.Error(t, err)

	// the failed transaction left nothing behind
	set, err := store.Matches(ctx, "fixed", "m")
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestSQLiteStoreUnknownRun(t *testing.T) {
	store := openTestStore(t)

	set, err := store.Matches(context.Background(), "nope", "improved_fr_matches")
	require.NoError(t, err)
	assert.Empty(t, set.Matches)
	assert.NotNil(t, set.Matches)
}

func TestSQLiteStoreCloseNil(t *testing.T) {
	var store *SQLiteStore
	assert.NoError(t, store.Close())
}
