package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitBatch(t *testing.T, ch <-chan Batch) Batch {
	t.Helper()
	select {
	case b, ok := <-ch:
		require.True(t, ok, "batch channel closed")
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
		return Batch{}
	}
}

// waitPath reads batches until one touches path.
func waitPath(t *testing.T, ch <-chan Batch, path string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case b, ok := <-ch:
			require.True(t, ok, "batch channel closed")
			if slices.Contains(b.Paths(), path) {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for a change to %s", path)
		}
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := NewDebouncer(50*time.Millisecond, time.Second, 1)
	defer d.Close()

	for _, p := range []string{"/a/x", "/a/y", "/a/x"} {
		d.Add(Event{Type: EventWrite, Path: p, Timestamp: time.Now()})
	}

	b := waitBatch(t, d.Batches())
	assert.Len(t, b.Events, 3)
	assert.Equal(t, []string{"/a/x", "/a/y"}, b.Paths())

	select {
	case extra := <-d.Batches():
		t.Fatalf("unexpected second batch: %v", extra.Paths())
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_MaxDelay(t *testing.T) {
	d := NewDebouncer(200*time.Millisecond, 300*time.Millisecond, 1)
	defer d.Close()

	start := time.Now()
	stop := time.After(600 * time.Millisecond)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	// Events keep arriving faster than the quiet period.
	done := make(chan Batch, 1)
	go func() { done <- <-d.Batches() }()
loop:
	for {
		select {
		case <-tick.C:
			d.Add(Event{Type: EventWrite, Path: "/busy"})
		case <-stop:
			break loop
		}
	}

	b := <-done
	assert.NotEmpty(t, b.Events)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDebouncer_Close(t *testing.T) {
	d := NewDebouncer(time.Hour, time.Hour, 1)
	d.Add(Event{Path: "/pending"})
	d.Close()
	d.Close()

	_, ok := <-d.Batches()
	assert.False(t, ok)

	// Adding after close is ignored.
	d.Add(Event{Path: "/late"})
}

func TestFSNotifyWatcher_Changes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "existing"), 0o755))

	w, err := NewFSNotifyWatcher(Config{Debounce: 50 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, w.Start(ctx, []string{root}))
	assert.Equal(t, []string{root, filepath.Join(root, "existing")}, w.WatchedPaths())

	file := filepath.Join(root, "existing", "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))
	waitPath(t, w.Batches(), file)

	// Directories created after Start are watched too.
	sub := filepath.Join(root, "fresh")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitPath(t, w.Batches(), sub)
	assert.Contains(t, w.WatchedPaths(), sub)

	nested := filepath.Join(sub, "b.txt")
	require.NoError(t, os.WriteFile(nested, []byte("b"), 0o644))
	waitPath(t, w.Batches(), nested)
}

func TestFSNotifyWatcher_MissingRoot(t *testing.T) {
	w, err := NewFSNotifyWatcher(DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	err = w.Start(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	changes := make(chan Batch, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, Config{Debounce: 50 * time.Millisecond}, zerolog.Nop(), []string{root}, func(_ context.Context, b Batch) {
			select {
			case changes <- b:
			default:
			}
			cancel()
		})
	}()

	// Keep touching the tree until the watcher has registered it.
	file := filepath.Join(root, "c.txt")
	var got Batch
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(5 * time.Second)
wait:
	for {
		select {
		case got = <-changes:
			break wait
		case <-tick.C:
			require.NoError(t, os.WriteFile(file, []byte(time.Now().String()), 0o644))
		case <-deadline:
			t.Fatal("no change reported")
		}
	}

	assert.Contains(t, got.Paths(), file)
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "create", EventCreate.String())
	assert.Equal(t, "chmod", EventChmod.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
