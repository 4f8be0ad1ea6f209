package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conduit-lang/schemaviewer/internal/cli/config"
	"github.com/conduit-lang/schemaviewer/internal/viewer"
	"github.com/conduit-lang/schemaviewer/internal/watch"
	"github.com/conduit-lang/schemaviewer/internal/web/cache"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const libraryManifest = `
apps:
  - label: library
    models:
      - name: Room
        fields:
          - {name: number, type: int}
      - name: Shelf
        fields:
          - {name: code, type: string, max_length: 8}
        relations:
          - {name: room, kind: foreign_key, to: Room, on_delete: cascade}
`

type reloadFixture struct {
	path     string
	reloader *reloader
	store    cache.Store
	conn     *websocket.Conn
}

func newReloadFixture(t *testing.T) *reloadFixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "library.yml")
	require.NoError(t, os.WriteFile(path, []byte(libraryManifest), 0o644))

	schemaCfg := config.Default().Schema
	schemaCfg.Manifests = []string{path}
	registry, err := buildRegistry(schemaCfg)
	require.NoError(t, err)

	store := cache.NewMemoryStore(cache.DefaultConfig())
	t.Cleanup(func() { store.Close() })

	reloads := watch.NewReloadServer(nil, zap.NewNop())
	t.Cleanup(reloads.Close)
	server := httptest.NewServer(http.HandlerFunc(reloads.HandleWebSocket))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return reloads.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	return &reloadFixture{
		path:  path,
		store: store,
		conn:  conn,
		reloader: &reloader{
			schema:  schemaCfg,
			handler: viewer.NewHandler(registry, viewer.Options{}),
			store:   store,
			reloads: reloads,
			logger:  zap.NewNop(),
		},
	}
}

func (f *reloadFixture) next(t *testing.T) watch.ReloadMessage {
	t.Helper()
	f.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg watch.ReloadMessage
	require.NoError(t, f.conn.ReadJSON(&msg))
	return msg
}

func TestReloader_Reload(t *testing.T) {
	f := newReloadFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, "entry", []byte("v"), 0))
	before := f.reloader.handler.Fingerprint()

	updated := strings.Replace(libraryManifest, "{name: number, type: int}", "{name: number, type: int}\n          - {name: floor, type: int}", 1)
	require.NoError(t, os.WriteFile(f.path, []byte(updated), 0o644))

	require.NoError(t, f.reloader.reload(ctx, []string{f.path}))

	after := f.reloader.handler.Fingerprint()
	assert.NotEqual(t, before, after)

	_, err := f.store.Get(ctx, "entry")
	assert.ErrorIs(t, err, cache.ErrMiss)

	msg := f.next(t)
	assert.Equal(t, watch.MessageReload, msg.Type)
	assert.Equal(t, after, msg.Fingerprint)
	assert.Positive(t, msg.Models)
}

func TestReloader_Unchanged(t *testing.T) {
	f := newReloadFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, "entry", []byte("v"), 0))
	before := f.reloader.handler.Fingerprint()

	require.NoError(t, f.reloader.reload(ctx, []string{f.path}))

	assert.Equal(t, before, f.reloader.handler.Fingerprint())
	_, err := f.store.Get(ctx, "entry")
	assert.NoError(t, err)
}

func TestReloader_KeepsPreviousSchemaOnFailure(t *testing.T) {
	f := newReloadFixture(t)
	ctx := context.Background()
	before := f.reloader.handler.Fingerprint()

	require.NoError(t, os.WriteFile(f.path, []byte(brokenManifest), 0o644))
	err := f.reloader.reload(ctx, []string{f.path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry check failed")
	assert.Equal(t, before, f.reloader.handler.Fingerprint())

	msg := f.next(t)
	assert.Equal(t, watch.MessageError, msg.Type)
	require.NotEmpty(t, msg.Errors)
	assert.Contains(t, msg.Errors[0], "library.Shelf.room")

	require.NoError(t, os.WriteFile(f.path, []byte("apps: ["), 0o644))
	require.Error(t, f.reloader.reload(ctx, []string{f.path}))
	assert.Equal(t, watch.MessageError, f.next(t).Type)
}

func TestStartWatcher(t *testing.T) {
	f := newReloadFixture(t)
	before := f.reloader.handler.Fingerprint()

	w, err := startWatcher(context.Background(), f.reloader)
	require.NoError(t, err)
	defer w.Stop()

	updated := strings.Replace(libraryManifest, "max_length: 8", "max_length: 16", 1)
	require.NoError(t, os.WriteFile(f.path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		return f.reloader.handler.Fingerprint() != before
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStartWatcher_RequiresManifests(t *testing.T) {
	_, err := startWatcher(context.Background(), &reloader{logger: zap.NewNop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one manifest")
}
