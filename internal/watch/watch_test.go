package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsSourceEvent(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: "api/models/User.js", Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: "api/models/User.js", Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: "api/models/User.js", Op: fsnotify.Remove}, true},
		{"chmod", fsnotify.Event{Name: "api/models/User.js", Op: fsnotify.Chmod}, false},
		{"other extension", fsnotify.Event{Name: "api/models/README.md", Op: fsnotify.Write}, false},
		{"hidden editor file", fsnotify.Event{Name: "api/models/.User.js", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSourceEvent(tt.event))
		})
	}
}

func TestNewWatchesExistingTrees(t *testing.T) {
	root := t.TempDir()
	models := filepath.Join(root, "api", "models")
	require.NoError(t, os.MkdirAll(filepath.Join(models, "nested"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(models, "node_modules", "x"), 0o755))

	w, err := New([]string{models, filepath.Join(root, "api", "services")}, nil, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer w.stop()

	assert.ElementsMatch(t, []string{models, filepath.Join(models, "nested")}, w.Watched())
}

func TestScheduleDebounces(t *testing.T) {
	batches := make(chan []string, 4)
	w, err := New(nil, func(_ context.Context, changed []string) error {
		batches <- changed
		return nil
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer w.stop()
	w.debouncePeriod = 20 * time.Millisecond

	ctx := context.Background()
	w.schedule(ctx, "b.js")
	w.schedule(ctx, "a.js")
	w.schedule(ctx, "b.js")

	select {
	case got := <-batches:
		assert.Equal(t, []string{"a.js", "b.js"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("regeneration was not triggered")
	}

	select {
	case extra := <-batches:
		t.Fatalf("expected a single batch, got another: %v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRunRegeneratesOnWrite(t *testing.T) {
	dir := t.TempDir()
	batches := make(chan []string, 4)
	w, err := New([]string{dir}, func(_ context.Context, changed []string) error {
		batches <- changed
		return nil
	}, zap.NewNop().Sugar())
	require.NoError(t, err)
	w.debouncePeriod = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	path := filepath.Join(dir, "User.js")
	require.NoError(t, os.WriteFile(path, []byte("module.exports = {};\n"), 0o644))

	select {
	case got := <-batches:
		assert.Equal(t, []string{path}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no regeneration after write")
	}

	cancel()
	require.NoError(t, <-done)
}
