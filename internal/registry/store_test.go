package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/internal/reconcile"
)

type fixture struct {
	registryPath string
	externalPath string
	store        *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		registryPath: filepath.Join(dir, ".openclaw", "mcps.json"),
		externalPath: filepath.Join(dir, ".mcporter", "mcporter.json"),
	}
	logger := logging.ForTest(t)
	f.store = NewStore(f.registryPath,
		WithLogger(logger),
		WithSyncer(reconcile.NewSyncer(f.externalPath, reconcile.WithLogger(logger))),
	)
	return f
}

func (f *fixture) external(t *testing.T) map[string]any {
	t.Helper()
	data, err := os.ReadFile(f.externalPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	servers, _ := doc["mcpServers"].(map[string]any)
	return servers
}

func TestStore_LoadMissing(t *testing.T) {
	f := newFixture(t)
	reg, err := f.store.Load()
	require.NoError(t, err)
	assert.Empty(t, reg)
}

func TestStore_LoadMalformedIsNotReset(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"truncated", `{"fs":`},
		{"null entry", `{"keepme":null,"a":{"url":"https://a.example"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(f.registryPath), 0o700))
			require.NoError(t, os.WriteFile(f.registryPath, []byte(tt.data), 0o600))

			_, err := f.store.Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrParse))

			_, err = f.store.Update(context.Background(), func(reg Registry) error {
				return reg.Upsert("b", mcp.NewRemote("", "https://b.example"))
			})
			require.Error(t, err)

			data, err := os.ReadFile(f.registryPath)
			require.NoError(t, err)
			assert.Equal(t, tt.data, string(data))
		})
	}
}

func TestStore_SaveReconciles(t *testing.T) {
	f := newFixture(t)
	reg := Registry{}
	require.NoError(t, reg.Upsert("fs", mcp.NewStdio("", "node", []string{"fs.js"}, nil)))

	res, err := f.store.Save(context.Background(), reg)
	require.NoError(t, err)
	assert.False(t, res.Degraded())
	require.NotNil(t, res.Report)
	assert.True(t, res.Report.Written)

	info, err := os.Stat(f.registryPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerm), info.Mode().Perm())

	assert.Contains(t, f.external(t), "fs")
}

func TestStore_SaveDegradedStillSucceeds(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.externalPath), 0o755))
	require.NoError(t, os.WriteFile(f.externalPath, []byte("not json"), 0o644))

	reg := Registry{}
	require.NoError(t, reg.Upsert("fs", mcp.NewStdio("", "node", nil, nil)))

	res, err := f.store.Save(context.Background(), reg)
	require.NoError(t, err)
	assert.True(t, res.Degraded())
	assert.True(t, errors.Is(res.SyncErr, reconcile.ErrSyncDegraded))

	back, err := f.store.Load()
	require.NoError(t, err)
	assert.Contains(t, back, "fs")
}

func TestStore_SaveWithoutSyncer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcps.json")
	s := NewStore(path)

	res, err := s.Save(context.Background(), Registry{})
	require.NoError(t, err)
	assert.Nil(t, res.Report)
	assert.False(t, res.Degraded())
}

func TestStore_UpdateDisableThenSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Update(ctx, func(r Registry) error {
		return r.Upsert("fs", mcp.NewStdio("", "node", []string{"fs.js"}, nil))
	})
	require.NoError(t, err)
	assert.Contains(t, f.external(t), "fs")

	_, err = f.store.Update(ctx, func(r Registry) error {
		r["fs"].Enabled = false
		return nil
	})
	require.NoError(t, err)
	assert.NotContains(t, f.external(t), "fs")

	reg, err := f.store.Load()
	require.NoError(t, err)
	require.Contains(t, reg, "fs")
	assert.False(t, reg["fs"].Enabled)
}

func TestStore_UpdateCallbackErrorWritesNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Update(context.Background(), func(Registry) error {
		return errors.New("boom")
	})
	require.Error(t, err)

	_, err = os.Stat(f.registryPath)
	assert.True(t, os.IsNotExist(err))
}

func TestStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// separate Store values behave like separate processes
			s := NewStore(f.registryPath, WithSyncer(f.store.Syncer()))
			_, err := s.Update(ctx, func(r Registry) error {
				return r.Upsert(fmt.Sprintf("srv-%d", i), mcp.NewStdio("", "node", nil, nil))
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	reg, err := f.store.Load()
	require.NoError(t, err)
	assert.Len(t, reg, n)
	assert.Len(t, f.external(t), n)
}

func TestStore_UpdateLockTimeout(t *testing.T) {
	f := newFixture(t)
	s := NewStore(f.registryPath, WithLockTimeout(100*time.Millisecond))

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = f.store.Update(context.Background(), func(Registry) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	_, err := s.Update(context.Background(), func(Registry) error { return nil })
	close(release)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockTimeout))
}

func TestStore_Sync(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.registryPath), 0o700))
	require.NoError(t, os.WriteFile(f.registryPath, []byte(`{"web":{"url":"https://web.example"}}`), 0o600))

	res, err := f.store.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, res.Report.Plan.Added)
	assert.Equal(t, map[string]any{"url": "https://web.example"}, f.external(t)["web"])
}

func TestStore_DeleteRetiresProjection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(filepath.Dir(f.externalPath), 0o755))
	require.NoError(t, os.WriteFile(f.externalPath, []byte(`{"mcpServers":{"foreign":{"command":"y"}}}`), 0o644))

	_, err := f.store.Update(ctx, func(r Registry) error {
		return r.Upsert("fs", mcp.NewStdio("", "node", nil, nil))
	})
	require.NoError(t, err)
	require.Contains(t, f.external(t), "fs")

	removed, res, err := f.store.Delete(ctx, "fs")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"fs"}, res.Report.Plan.Removed)

	servers := f.external(t)
	assert.NotContains(t, servers, "fs")
	assert.Contains(t, servers, "foreign")

	reg, err := f.store.Load()
	require.NoError(t, err)
	assert.Empty(t, reg)

	removed, _, err = f.store.Delete(ctx, "fs")
	require.NoError(t, err)
	assert.False(t, removed)
}
