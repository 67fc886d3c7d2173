package report

// dispatcher.go
import (
	"context"
	"sync"
	"sync/atomic"
)

// Handler получает разобранный отчёт. Должен отрабатывать быстро:
// в синхронном режиме он выполняется прямо в обработчике запроса.
type Handler func(*ViolationReport)

// Chain вызывает обработчики по очереди.
func Chain(hs ...Handler) Handler {
	return func(r *ViolationReport) {
		for _, h := range hs {
			if h != nil {
				h(r)
			}
		}
	}
}

// OverflowPolicy — что делать, когда очередь полна.
type OverflowPolicy int

const (
	// DropNewest отбрасывает пришедший отчёт.
	DropNewest OverflowPolicy = iota
	// DropOldest вытесняет самый старый отчёт из очереди.
	DropOldest
)

// Dispatcher передаёт отчёты обработчику. Без очереди — синхронно,
// с очередью — через буферизированный канал и одну горутину-воркер.
// Повторов нет: упавший или отброшенный отчёт теряется.
type Dispatcher struct {
	handler Handler
	policy  OverflowPolicy

	mu      sync.RWMutex
	queue   chan *ViolationReport
	closed  bool
	dropped atomic.Uint64
	done    chan struct{}
}

func NewDispatcher(h Handler) *Dispatcher {
	return &Dispatcher{handler: h}
}

// NewAsyncDispatcher: size <= 0 — синхронный режим.
func NewAsyncDispatcher(h Handler, size int, policy OverflowPolicy) *Dispatcher {
	if size <= 0 {
		return NewDispatcher(h)
	}
	d := &Dispatcher{
		handler: h,
		policy:  policy,
		queue:   make(chan *ViolationReport, size),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for r := range d.queue {
		d.handler(r)
	}
}

// Async — работает ли диспетчер через очередь.
func (d *Dispatcher) Async() bool { return d.queue != nil }

// Dispatch возвращает false, если отчёт отброшен (очередь полна или закрыта).
// При DropOldest новый отчёт принимается ценой старого, и счётчик потерь растёт.
func (d *Dispatcher) Dispatch(r *ViolationReport) bool {
	if d.queue == nil {
		d.handler(r)
		return true
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return false
	}

	select {
	case d.queue <- r:
		return true
	default:
	}

	if d.policy == DropNewest {
		d.dropped.Add(1)
		return false
	}

	for {
		select {
		case <-d.queue:
			d.dropped.Add(1)
		default:
		}
		select {
		case d.queue <- r:
			return true
		default:
		}
	}
}

// Dropped — сколько отчётов потеряно из-за переполнения или закрытия.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Close перестаёт принимать отчёты и ждёт, пока воркер дочитает очередь.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d.queue == nil {
		return nil
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
