// Package canhal transmits and receives CAN frames for an embedded robotics
// controller. Frames are tracked in a table keyed by arbitration id: the
// transmit side supports one-shot and periodic frames with field packing
// into the pending payload, the receive side caches the latest frame per id
// with a freshness/staleness policy. Field helpers cover unsigned integers
// and signed 8.8/16.16 fixed point.
package canhal

import (
	"strconv"
	"sync"
	"time"

	"github.com/FabianPetersen/can"
	"github.com/jpillora/maplock"
)

// Lock serializes compound operations per arbitration id. Distinct ids never
// contend.
var Lock = maplock.New()

// Bus is the transport the interface publishes to and subscribes on.
// *can.Bus satisfies it.
type Bus interface {
	Publish(frm can.Frame) error
	SubscribeFunc(fn can.HandlerFunc)
	ConnectAndPublish() error
	Disconnect() error
}

// Option configures an Interface.
type Option func(*Interface)

// WithStaleness sets how long a received frame counts as fresh.
func WithStaleness(d time.Duration) Option {
	return func(itf *Interface) {
		itf.staleness = d
	}
}

// WithTick sets the scheduler resolution for periodic transmission.
func WithTick(d time.Duration) Option {
	return func(itf *Interface) {
		itf.tick = d
	}
}

// An Interface owns one CAN bus, the transmit frame table and the receive
// cache.
type Interface struct {
	name string
	bus  Bus

	staleness time.Duration
	tick      time.Duration

	txMu sync.RWMutex
	tx   map[uint32]*txMessage

	rxMu sync.RWMutex
	rx   map[uint32]*rxMessage

	errs chan error

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New returns an interface on top of an existing bus. Start must be called
// before frames flow.
func New(bus Bus, opts ...Option) *Interface {
	itf := &Interface{
		name:      "can",
		bus:       bus,
		staleness: DefaultStaleness,
		tick:      DefaultTick,
		tx:        map[uint32]*txMessage{},
		rx:        map[uint32]*rxMessage{},
		errs:      make(chan error, 16),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(itf)
	}

	return itf
}

// Open opens the named SocketCAN device and starts the interface.
func Open(name string, opts ...Option) (*Interface, error) {
	bus, err := can.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, err
	}

	itf := New(bus, opts...)
	itf.name = name

	if err := itf.Start(); err != nil {
		return nil, err
	}

	return itf, nil
}

// Start subscribes the receive cache and launches the transmit scheduler.
func (itf *Interface) Start() error {
	itf.mu.Lock()
	defer itf.mu.Unlock()

	if itf.closed {
		return NotOpenError{}
	}
	if itf.started {
		return nil
	}
	itf.started = true

	itf.bus.SubscribeFunc(itf.handleFrame)

	itf.wg.Add(1)
	go itf.runScheduler()

	go func() {
		if err := itf.bus.ConnectAndPublish(); err != nil {
			itf.reportErr(err)
		}
	}()

	return nil
}

// Close stops the scheduler, cancels all periodic frames and disconnects the
// bus. Close is idempotent.
func (itf *Interface) Close() error {
	itf.mu.Lock()
	if itf.closed {
		itf.mu.Unlock()
		return nil
	}
	itf.closed = true
	started := itf.started
	itf.mu.Unlock()

	close(itf.done)
	if started {
		itf.wg.Wait()
	}

	return itf.bus.Disconnect()
}

// Errs delivers asynchronous transmit errors from the scheduler and the bus
// connection. The channel is never closed; reads should be paired with
// shutdown signaling.
func (itf *Interface) Errs() <-chan error {
	return itf.errs
}

func (itf *Interface) isClosed() bool {
	itf.mu.Lock()
	defer itf.mu.Unlock()
	return itf.closed
}

func (itf *Interface) reportErr(err error) {
	select {
	case itf.errs <- err:
	default:
	}
}

// lockKey returns the keyed-lock key for an arbitration id on this
// interface.
func (itf *Interface) lockKey(arbID uint32) string {
	return itf.name + ":" + strconv.FormatUint(uint64(arbID), 10)
}
