package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemy-swift/alchemy-sub004/internal/watch"
)

func TestWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32

	w, err := watch.NewWatcher(dir, func(name string) bool {
		return strings.HasSuffix(name, ".yaml")
	}, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(err error) { t.Log(err) }) }()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	path := filepath.Join(dir, "0001_users.yaml")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("up: []\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := watch.NewWatcher(filepath.Join(t.TempDir(), "missing"), nil, func() error { return nil })
	assert.Error(t, err)
}
