package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

func TestRunRepository_Lifecycle(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	started := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	runID, err := repos.Run.InsertRun(ctx, "SUNAT mensajes", started)
	require.NoError(t, err)
	require.NotZero(t, runID)

	runs, err := repos.Run.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunInProgress, runs[0].Status)
	assert.Nil(t, runs[0].CompletedAt)

	require.NoError(t, repos.Run.CompleteRun(ctx, runID, domain.RunSuccess, 7, ""))

	runs, err = repos.Run.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunSuccess, runs[0].Status)
	assert.Equal(t, 7, runs[0].ItemsScraped)
	assert.Empty(t, runs[0].ErrorMessage)
	require.NotNil(t, runs[0].CompletedAt)
}

func TestRunRepository_FailureKeepsErrorMessage(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	runID, err := repos.Run.InsertRun(ctx, "SUNAT facebook", time.Now())
	require.NoError(t, err)

	require.NoError(t, repos.Run.CompleteRun(ctx, runID, domain.RunFailure, 0, "token vencido"))

	runs, err := repos.Run.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunFailure, runs[0].Status)
	assert.Equal(t, "token vencido", runs[0].ErrorMessage)
	assert.Zero(t, runs[0].ItemsScraped)
}

func TestRunRepository_ListRuns_OrderAndLimit(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	names := []string{"mensajes", "sala de prensa", "institucion", "facebook", "la republica"}
	for i, name := range names {
		runID, err := repos.Run.InsertRun(ctx, name, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, repos.Run.CompleteRun(ctx, runID, domain.RunSuccess, i, ""))
	}

	runs, err := repos.Run.ListRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "la republica", runs[0].ScraperName, "newest run first")
	assert.Equal(t, "facebook", runs[1].ScraperName)
	assert.Equal(t, "institucion", runs[2].ScraperName)
}
