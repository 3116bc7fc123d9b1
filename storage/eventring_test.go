package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/core"
)

func TestEventRingFIFOEviction(t *testing.T) {
	r := NewEventRing(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		r.Record(core.NewEvent("auth_log", fmt.Sprintf("line-%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Capacity())

	got := r.List(0, "")
	require.Len(t, got, 3)
	// Newest first; the two oldest were evicted in order.
	assert.Equal(t, "line-4", got[0].Raw)
	assert.Equal(t, "line-3", got[1].Raw)
	assert.Equal(t, "line-2", got[2].Raw)
}

func TestEventRingNeverExceedsCapacity(t *testing.T) {
	r := NewEventRing(10)
	for i := 0; i < 1000; i++ {
		r.Record(core.NewEvent("web_log", "x", time.Now()))
		assert.LessOrEqual(t, r.Len(), 10)
	}
}

func TestEventRingSourceFilterAndLimit(t *testing.T) {
	r := NewEventRing(100)
	base := time.Now()
	for i := 0; i < 10; i++ {
		r.Record(core.NewEvent("auth_log", fmt.Sprintf("auth-%d", i), base.Add(time.Duration(2*i)*time.Second)))
	}
	for i := 0; i < 3; i++ {
		r.Record(core.NewEvent("web_log", fmt.Sprintf("web-%d", i), base.Add(time.Duration(2*i+1)*time.Second)))
	}

	got := r.List(5, "auth_log")
	require.Len(t, got, 5)
	for i, ev := range got {
		assert.Equal(t, "auth_log", ev.Source)
		assert.Equal(t, fmt.Sprintf("auth-%d", 9-i), ev.Raw)
	}
}

func TestEventRingListLimitLargerThanContents(t *testing.T) {
	r := NewEventRing(50)
	r.Record(core.NewEvent("auth_log", "only", time.Now()))

	got := r.List(10, "")
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0].Raw)
}

func TestEventRingDefaultCapacity(t *testing.T) {
	r := NewEventRing(0)
	assert.Equal(t, DefaultRingCapacity, r.Capacity())
}
