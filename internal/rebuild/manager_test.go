package rebuild

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerSingleFlight(t *testing.T) {
	m := NewManager()

	require.True(t, m.TryBegin("p1"))
	assert.False(t, m.TryBegin("p1"))
	assert.True(t, m.Building("p1"))

	// Other projects are independent.
	assert.True(t, m.TryBegin("p2"))

	m.End("p1", nil)
	assert.False(t, m.Building("p1"))
	assert.True(t, m.TryBegin("p1"))
}

func TestManagerOnlyOneWinnerUnderContention(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	var winners sync.Map
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if m.TryBegin("p1") {
				winners.Store(n, true)
			}
		}(i)
	}
	wg.Wait()

	count := 0
	winners.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 1, count)

	state := m.State("p1")
	assert.Equal(t, int64(49), state.RejectCount)
}

func TestManagerRecordsOutcome(t *testing.T) {
	m := NewManager()

	require.True(t, m.TryBegin("p1"))
	m.End("p1", errors.New("embedding provider down"))

	state := m.State("p1")
	assert.Equal(t, "embedding provider down", state.LastError)
	assert.Equal(t, int64(1), state.BuildCount)
	assert.False(t, state.LastStarted.IsZero())
	assert.False(t, state.LastFinished.IsZero())

	// A later success clears the error.
	require.True(t, m.TryBegin("p1"))
	m.End("p1", nil)
	assert.Empty(t, m.State("p1").LastError)
}
