package access

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/missioncontrol/internal/beans"
	"github.com/dshills/missioncontrol/internal/concurrent"
)

func TestController_Reentrant(t *testing.T) {
	c := NewController()

	outer, err := c.BeginCritical(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Depth())

	inner, err := c.BeginCritical(outer.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Depth())
	assert.Equal(t, outer.Caller(), inner.Caller())

	require.NoError(t, inner.Release())
	owner, held := c.Owner()
	assert.True(t, held, "releasing with depth > 0 keeps ownership")
	assert.Equal(t, outer.Caller(), owner)

	require.NoError(t, outer.Release())
	_, held = c.Owner()
	assert.False(t, held)
	assert.Equal(t, 0, c.Depth())
}

func TestController_DoubleRelease(t *testing.T) {
	c := NewController()

	token, err := c.BeginCritical(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, token.Release())

	err = token.Release()
	assert.ErrorIs(t, err, beans.ErrInvalidState)

	// The controller stays usable.
	again, err := c.BeginCritical(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestController_AccessDenied(t *testing.T) {
	c := NewController()

	_, err := c.BeginCritical(context.Background(), func(context.Context) bool { return false })
	assert.ErrorIs(t, err, beans.ErrAccessDenied)

	_, held := c.Owner()
	assert.False(t, held, "a denied caller never gets partial access")
}

func TestController_ExcludesOtherCallers(t *testing.T) {
	c := NewController()

	token, err := c.BeginCritical(context.Background(), nil)
	require.NoError(t, err)

	var entered atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		other, err := c.BeginCritical(context.Background(), nil)
		if err != nil {
			return
		}
		entered.Store(true)
		_ = other.Release()
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, entered.Load(), "second caller must wait")

	require.NoError(t, token.Release())
	<-done
	assert.True(t, entered.Load())
}

func TestController_BlockingHonoursContext(t *testing.T) {
	c := NewController()

	token, err := c.BeginCritical(context.Background(), nil)
	require.NoError(t, err)
	defer token.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.BeginCritical(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestController_FailFast(t *testing.T) {
	c := NewController(WithFailFast())

	token, err := c.BeginCritical(context.Background(), nil)
	require.NoError(t, err)
	defer token.Release()

	_, err = c.BeginCritical(context.Background(), nil)
	assert.ErrorIs(t, err, beans.ErrWouldBlock)

	// The owner still re-enters.
	inner, err := c.BeginCritical(token.Context(), nil)
	require.NoError(t, err)
	require.NoError(t, inner.Release())
}

func TestController_DoReleasesOnError(t *testing.T) {
	c := NewController()
	boom := errors.New("boom")

	err := c.Do(context.Background(), nil, func(ctx context.Context) error {
		assert.True(t, c.HeldBy(ctx))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, held := c.Owner()
	assert.False(t, held)
}

func TestController_DoReleasesOnPanic(t *testing.T) {
	c := NewController()

	assert.Panics(t, func() {
		_ = c.Do(context.Background(), nil, func(context.Context) error { panic("bad") })
	})

	_, held := c.Owner()
	assert.False(t, held)
}

func TestController_NamedCallerReenters(t *testing.T) {
	c := NewController()
	ctx := concurrent.WithCaller(context.Background(), concurrent.NewCaller())

	a, err := c.BeginCritical(ctx, nil)
	require.NoError(t, err)
	b, err := c.BeginCritical(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Depth())
	require.NoError(t, b.Release())
	require.NoError(t, a.Release())
}

func TestController_MutualExclusionUnderLoad(t *testing.T) {
	c := NewController()
	var inside atomic.Int32
	var violations atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Do(context.Background(), nil, func(context.Context) error {
					if inside.Add(1) != 1 {
						violations.Add(1)
					}
					inside.Add(-1)
					return nil
				})
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, violations.Load())
}
