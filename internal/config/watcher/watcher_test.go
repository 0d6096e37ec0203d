package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) get() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestWatcher_CoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mc.toml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o600))

	w, err := New(WithDebounce(50*time.Millisecond), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer w.Close()

	var c collector
	w.OnChange(c.handle)
	require.NoError(t, w.Watch(path))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o600))
	}

	require.Eventually(t, func() bool { return len(c.get()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	events := c.get()
	require.Len(t, events, 1)
	assert.Equal(t, path, events[0].Path)
	assert.Equal(t, OpWrite, events[0].Op)
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mc.toml")

	w, err := New(WithDebounce(20 * time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	var c collector
	w.OnChange(c.handle)
	require.NoError(t, w.Watch(path))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	require.Eventually(t, func() bool { return len(c.get()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	for _, ev := range c.get() {
		assert.Equal(t, path, ev.Path)
	}
	assert.Equal(t, OpCreate, c.get()[0].Op, "a file created after Watch is reported as created")
}

func TestWatcher_HandlerPanicRecovered(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1"), 0o600))

	w, err := New(WithDebounce(10*time.Millisecond), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer w.Close()

	var c collector
	w.OnChange(func(Event) { panic("boom") })
	w.OnChange(c.handle)
	require.NoError(t, w.Watch(path))

	require.NoError(t, os.WriteFile(path, []byte("a: 2"), 0o600))
	assert.Eventually(t, func() bool { return len(c.get()) > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_Unwatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mc.toml")

	w, err := New(WithDebounce(10 * time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	var c collector
	w.OnChange(c.handle)
	require.NoError(t, w.Watch(path))
	require.NoError(t, w.Watch(path))
	require.NoError(t, w.Unwatch(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, c.get())
}

func TestWatcher_Closed(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.Watch(filepath.Join(t.TempDir(), "mc.toml")), ErrClosed)
	assert.Equal(t, "remove", OpRemove.String())
}
