package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/prevword/internal/bootstrap"
	"github.com/DeafMist/prevword/internal/config"
	"github.com/DeafMist/prevword/internal/fetch"
)

const page = `<html><body>
<h2>Wordle Answers 2024</h2>
<table>
  <tr><td>Jan 5</td><td>10</td><td>SASSY</td></tr>
  <tr><td>Jan 4</td><td>9</td><td>BUGGY</td></tr>
</table>
</body></html>`

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))
	return path
}

func baseConfig(t *testing.T, backend string) config.Common {
	return config.Common{
		SourceURL:    writePage(t),
		CacheBackend: backend,
		CachePath:    t.TempDir(),
		CacheKey:     "previousWordleWords",
		CachePolicy:  "exact",
	}
}

func fixedClock() time.Time {
	return time.Date(2024, time.January, 6, 9, 0, 0, 0, time.Local)
}

func TestBuildResolvesAcrossBackends(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			svc, err := bootstrap.Build(baseConfig(t, backend), nil,
				bootstrap.WithFetcher(fetch.FileFetcher{}),
				bootstrap.WithClock(fixedClock),
			)
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, svc.Close()) })

			ctx := context.Background()
			require.NoError(t, svc.Ping(ctx))

			res, err := svc.Resolver.Resolve(ctx, "")
			require.NoError(t, err)
			require.Equal(t, "2024-01-06", res.PuzzleDate)
			require.Equal(t, "SASSY", res.Word)
			require.False(t, res.FromCache)

			res, err = svc.Resolver.Resolve(ctx, "2024-01-06")
			require.NoError(t, err)
			require.True(t, res.FromCache)
		})
	}
}

func TestBuildStrategyOverride(t *testing.T) {
	cfg := baseConfig(t, config.BackendMemory)
	cfg.ExtractStrategy = "flowtext"

	svc, err := bootstrap.Build(cfg, nil, bootstrap.WithFetcher(fetch.FileFetcher{}))
	require.NoError(t, err)
	require.Equal(t, "flowtext", svc.Extractor.Strategy())
}

func TestBuildReadsRulesFile(t *testing.T) {
	rulesPath := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte("strategy: flowtext\n"), 0o644))

	cfg := baseConfig(t, config.BackendMemory)
	cfg.ExtractRulesFile = rulesPath

	svc, err := bootstrap.Build(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, "flowtext", svc.Extractor.Strategy())
}

func TestBuildRejectsBadConfig(t *testing.T) {
	cfg := baseConfig(t, config.BackendMemory)
	cfg.ExtractStrategy = "regex"
	_, err := bootstrap.Build(cfg, nil)
	require.Error(t, err)

	cfg = baseConfig(t, "redis")
	_, err = bootstrap.Build(cfg, nil)
	require.Error(t, err)

	cfg = baseConfig(t, config.BackendSQLite)
	cfg.CachePolicy = "ttl"
	_, err = bootstrap.Build(cfg, nil)
	require.Error(t, err)
}
