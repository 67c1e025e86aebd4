package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storepilot/storepilot/pkg/models"
)

func TestSaveAndLatest(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)

	for i, summary := range []string{"first", "second", "third"} {
		now := base.AddDate(0, 0, i)
		path, err := Save(dir, "analysis", now, Report{
			Time:     now.Format("2006-01-02T15:04:05"),
			Task:     "orders",
			Analysis: models.AnalysisResult{"summary": summary},
		})
		require.NoError(t, err)
		assert.Equal(t, "analysis_"+now.Format(StampLayout)+".json", filepath.Base(path))
	}

	got, err := Latest(dir, "analysis", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Analysis.String("summary"))
	assert.Equal(t, "third", got[1].Analysis.String("summary"))
	assert.Equal(t, "2026-03-03T10:00:00", got[1].Time)

	all, err := Latest(dir, "analysis", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLatestIgnoresOtherPrefixes(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(dir, "summary", time.Now(), map[string]int{"orders": 1})
	require.NoError(t, err)

	got, err := Latest(dir, "analysis", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLatestRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "analysis_20260301_000000.json"), []byte("{"), 0o644))

	_, err := Latest(dir, "analysis", 1)
	assert.Error(t, err)
}
