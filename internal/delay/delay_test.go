package delay_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usfbank/surveyweb/internal/delay"
)

func TestGroup_After(t *testing.T) {
	clock := delay.NewManual()
	g := delay.NewGroup(clock.AfterFunc)

	var fired int
	g.After(300*time.Millisecond, func() { fired++ })
	require.Equal(t, 1, g.Pending())

	clock.Advance(299 * time.Millisecond)
	assert.Equal(t, 0, fired, "should not fire before the delay elapsed")

	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, g.Pending())
}

func TestGroup_Cancel(t *testing.T) {
	clock := delay.NewManual()
	g := delay.NewGroup(clock.AfterFunc)

	var fired int
	cancel := g.After(5*time.Second, func() { fired++ })
	cancel()
	cancel()

	clock.Advance(10 * time.Second)
	assert.Equal(t, 0, fired)
	assert.Equal(t, 0, g.Pending())
}

func TestGroup_Close(t *testing.T) {
	clock := delay.NewManual()
	g := delay.NewGroup(clock.AfterFunc)

	var fired int
	g.After(300*time.Millisecond, func() { fired++ })
	g.After(5*time.Second, func() { fired++ })
	g.Close()

	clock.Advance(time.Minute)
	assert.Equal(t, 0, fired, "no task should run after the owner was torn down")

	g.After(time.Millisecond, func() { fired++ })
	clock.Advance(time.Second)
	assert.Equal(t, 0, fired, "a closed group should not accept new tasks")
}

func TestGroup_RealTimer(t *testing.T) {
	g := delay.NewGroup(nil)
	defer g.Close()

	var fired atomic.Bool
	g.After(10*time.Millisecond, func() { fired.Store(true) })

	require.Eventually(t, fired.Load, time.Second, 5*time.Millisecond)
}
