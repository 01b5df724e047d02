package canhal

import (
	"sync"

	"github.com/FabianPetersen/can"
)

// fakeBus records published frames and lets tests inject received ones.
type fakeBus struct {
	mu         sync.Mutex
	published  []can.Frame
	handlers   []can.HandlerFunc
	publishErr error
}

func (b *fakeBus) Publish(frm can.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.publishErr != nil {
		return b.publishErr
	}

	b.published = append(b.published, frm)
	return nil
}

func (b *fakeBus) SubscribeFunc(fn can.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, fn)
}

func (b *fakeBus) ConnectAndPublish() error {
	return nil
}

func (b *fakeBus) Disconnect() error {
	return nil
}

func (b *fakeBus) inject(frm can.Frame) {
	b.mu.Lock()
	handlers := append([]can.HandlerFunc{}, b.handlers...)
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(frm)
	}
}

func (b *fakeBus) frames() []can.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]can.Frame{}, b.published...)
}

func (b *fakeBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}
