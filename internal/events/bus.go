// Package events provides an in-process pub/sub bus the runners use to
// feed metrics and logging without direct coupling. File-based IPC
// stays the transport between processes; this bus is in-process only.
package events

import (
	"sync"

	"github.com/powertrader/powertrader/pkg/types"
)

// Event kinds dispatched on the bus.
type Kind string

const (
	KindSignalUpdated     Kind = "signal_updated"
	KindTradeExecuted     Kind = "trade_executed"
	KindPositionOpened    Kind = "position_opened"
	KindPositionClosed    Kind = "position_closed"
	KindDCATriggered      Kind = "dca_triggered"
	KindTrainingCompleted Kind = "training_completed"
	KindHeartbeat         Kind = "heartbeat"
)

// SignalUpdated is emitted when the thinker generates a new signal.
type SignalUpdated struct {
	Coin      string
	Signal    types.Signal
	Timestamp float64
}

func (SignalUpdated) Kind() Kind { return KindSignalUpdated }

// TradeExecuted is emitted after an order fills.
type TradeExecuted struct {
	Trade    types.Trade
	Position types.Position
}

func (TradeExecuted) Kind() Kind { return KindTradeExecuted }

// PositionOpened is emitted on the initial entry buy.
type PositionOpened struct {
	Coin      string
	Position  types.Position
	Timestamp float64
}

func (PositionOpened) Kind() Kind { return KindPositionOpened }

// PositionClosed is emitted when a position is fully exited.
type PositionClosed struct {
	Coin      string
	PnlPct    float64
	Timestamp float64
}

func (PositionClosed) Kind() Kind { return KindPositionClosed }

// DCATriggered is emitted when a DCA buy fires.
type DCATriggered struct {
	Coin      string
	Stage     int
	Reason    string
	Amount    float64
	Timestamp float64
}

func (DCATriggered) Kind() Kind { return KindDCATriggered }

// TrainingCompleted is emitted when training finishes for a coin.
type TrainingCompleted struct {
	Coin              string
	TimeframesTrained int
	DurationSeconds   float64
	Timestamp         float64
}

func (TrainingCompleted) Kind() Kind { return KindTrainingCompleted }

// Heartbeat is emitted periodically by components to signal liveness.
type Heartbeat struct {
	Component string
	Timestamp float64
}

func (Heartbeat) Kind() Kind { return KindHeartbeat }

// Event is anything dispatchable on the bus.
type Event interface {
	Kind() Kind
}

// Handler receives published events.
type Handler func(Event)

// Bus is a thread-safe in-process pub/sub bus. Handlers run
// synchronously on the publishing goroutine, in registration order.
type Bus struct {
	mu       sync.Mutex
	handlers map[Kind][]Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// Subscribe registers handler for the given kind.
func (b *Bus) Subscribe(kind Kind, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], handler)
}

// Publish dispatches the event to every handler of its kind. A
// panicking handler does not stop the others.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[event.Kind()]...)
	b.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() { recover() }()
			h(event)
		}()
	}
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[Kind][]Handler)
}

// HasSubscribers reports whether the kind has at least one handler.
func (b *Bus) HasSubscribers(kind Kind) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[kind]) > 0
}
