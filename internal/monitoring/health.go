package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Health thresholds: a component with no heartbeat for staleAfter is
// STALE; one with errorWindowMax errors inside errorWindow is ERROR; a
// single recent error downgrades it to WARNING.
const (
	staleAfter     = 120 * time.Second
	errorWindow    = 300 * time.Second
	errorWindowMax = 5
)

var startTime = time.Now()

// Component health states.
const (
	StateOK      = "OK"
	StateWarning = "WARNING"
	StateError   = "ERROR"
	StateStale   = "STALE"
)

type componentState struct {
	lastBeat   time.Time
	lastError  time.Time
	errorTimes []time.Time
	lastMsg    string
}

// HealthChecker tracks heartbeats and errors per component and serves
// an aggregate JSON health endpoint.
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]*componentState
	now        func() time.Time
}

// ComponentStatus is the externally visible state of one component.
type ComponentStatus struct {
	State        string  `json:"state"`
	SecondsSince float64 `json:"seconds_since_heartbeat"`
	RecentErrors int     `json:"recent_errors"`
	LastErrorMsg string  `json:"last_error,omitempty"`
}

// HealthStatus is the aggregate health report.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentStatus `json:"components"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		components: make(map[string]*componentState),
		now:        time.Now,
	}
}

// Heartbeat records liveness for a component.
func (h *HealthChecker) Heartbeat(component string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state(component).lastBeat = h.now()
}

// RecordError notes an error against a component.
func (h *HealthChecker) RecordError(component, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.state(component)
	now := h.now()
	st.lastError = now
	st.lastMsg = msg
	st.errorTimes = append(st.errorTimes, now)
	st.trimErrors(now)
}

func (h *HealthChecker) state(component string) *componentState {
	st, ok := h.components[component]
	if !ok {
		st = &componentState{}
		h.components[component] = st
	}
	return st
}

func (st *componentState) trimErrors(now time.Time) {
	cutoff := now.Add(-errorWindow)
	kept := st.errorTimes[:0]
	for _, t := range st.errorTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	st.errorTimes = kept
}

// ComponentState classifies one component right now.
func (h *HealthChecker) ComponentState(component string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.components[component]
	if !ok {
		return StateStale
	}
	return h.classify(st)
}

func (h *HealthChecker) classify(st *componentState) string {
	now := h.now()
	st.trimErrors(now)
	if st.lastBeat.IsZero() || now.Sub(st.lastBeat) > staleAfter {
		return StateStale
	}
	if len(st.errorTimes) >= errorWindowMax {
		return StateError
	}
	if !st.lastError.IsZero() && now.Sub(st.lastError) <= errorWindow {
		return StateWarning
	}
	return StateOK
}

// Snapshot returns the full health report.
func (h *HealthChecker) Snapshot() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	report := HealthStatus{
		Status:     StateOK,
		Timestamp:  now,
		Uptime:     now.Sub(startTime).String(),
		Components: make(map[string]ComponentStatus, len(h.components)),
	}
	for name, st := range h.components {
		state := h.classify(st)
		since := 0.0
		if !st.lastBeat.IsZero() {
			since = now.Sub(st.lastBeat).Seconds()
		}
		report.Components[name] = ComponentStatus{
			State:        state,
			SecondsSince: since,
			RecentErrors: len(st.errorTimes),
			LastErrorMsg: st.lastMsg,
		}
		if worse(state, report.Status) {
			report.Status = state
		}
	}
	return report
}

func worse(a, b string) bool {
	rank := map[string]int{StateOK: 0, StateWarning: 1, StateStale: 2, StateError: 3}
	return rank[a] > rank[b]
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := h.Snapshot()
	switch report.Status {
	case StateError:
		w.WriteHeader(http.StatusInternalServerError)
	case StateStale, StateWarning:
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
