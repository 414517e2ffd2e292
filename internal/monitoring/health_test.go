package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChecker(t0 time.Time) (*HealthChecker, *time.Time) {
	clock := t0
	h := NewHealthChecker()
	h.now = func() time.Time { return clock }
	return h, &clock
}

// TestHealth_UnknownComponentIsStale reports STALE before any heartbeat
func TestHealth_UnknownComponentIsStale(t *testing.T) {
	h, _ := newTestChecker(time.Now())
	assert.Equal(t, StateStale, h.ComponentState("trainer"))
}

// TestHealth_HeartbeatKeepsComponentOK stays OK inside the stale window
func TestHealth_HeartbeatKeepsComponentOK(t *testing.T) {
	h, clock := newTestChecker(time.Now())
	h.Heartbeat("thinker")

	*clock = clock.Add(60 * time.Second)
	assert.Equal(t, StateOK, h.ComponentState("thinker"))

	*clock = clock.Add(90 * time.Second)
	assert.Equal(t, StateStale, h.ComponentState("thinker"))
}

// TestHealth_RecordErrorWarnsThenErrors escalates WARNING to ERROR at five errors
func TestHealth_RecordErrorWarnsThenErrors(t *testing.T) {
	h, _ := newTestChecker(time.Now())
	h.Heartbeat("trader")

	h.RecordError("trader", "entry buy failed")
	assert.Equal(t, StateWarning, h.ComponentState("trader"))

	for i := 0; i < 4; i++ {
		h.RecordError("trader", "entry buy failed")
	}
	assert.Equal(t, StateError, h.ComponentState("trader"))
}

// TestHealth_SnapshotCarriesLastErrorMessage surfaces the recorded text
func TestHealth_SnapshotCarriesLastErrorMessage(t *testing.T) {
	h, _ := newTestChecker(time.Now())
	h.Heartbeat("trader")
	h.RecordError("trader", "REJECTED: sell quantity below minQty for ETHUSDT")

	report := h.Snapshot()
	st, ok := report.Components["trader"]
	require.True(t, ok)
	assert.Equal(t, "REJECTED: sell quantity below minQty for ETHUSDT", st.LastErrorMsg)
	assert.Equal(t, 1, st.RecentErrors)
	assert.Equal(t, StateWarning, report.Status)
}

// TestHealth_ErrorsExpireOutsideWindow drops errors older than the window
func TestHealth_ErrorsExpireOutsideWindow(t *testing.T) {
	h, clock := newTestChecker(time.Now())
	h.Heartbeat("trainer")
	for i := 0; i < 5; i++ {
		h.RecordError("trainer", "venue timeout")
	}
	require.Equal(t, StateError, h.ComponentState("trainer"))

	*clock = clock.Add(301 * time.Second)
	h.Heartbeat("trainer")
	assert.Equal(t, StateOK, h.ComponentState("trainer"))
}
