package csp

// holder.go
import (
	"errors"
	"sync"
	"sync/atomic"
)

var ErrNilPolicy = errors.New("csp: nil policy")

// Listener вызывается после замены политики. Вызовы идут в горутине Replace,
// поэтому слушатель не должен блокироваться надолго.
type Listener func(old, cur *Policy)

// ListenerID — ключ для RemoveListener.
type ListenerID uint64

// Holder хранит текущую политику процесса и позволяет заменить её на лету.
// Читатели получают указатель одним атомарным чтением: запрос видит либо
// старую политику целиком, либо новую. Сами политики неизменяемы.
type Holder struct {
	cur     atomic.Pointer[Policy]
	updates atomic.Uint64

	mu        sync.Mutex // сериализует Replace и защищает listeners
	listeners map[ListenerID]Listener
	nextID    ListenerID
}

// NewHolder проверяет начальную политику теми же правилами, что и Build.
func NewHolder(p *Policy) (*Holder, error) {
	if p == nil {
		return nil, ErrNilPolicy
	}
	if _, err := Validate(p); err != nil {
		return nil, err
	}
	h := &Holder{listeners: make(map[ListenerID]Listener)}
	h.cur.Store(p)
	return h, nil
}

// Load — текущая политика.
func (h *Holder) Load() *Policy { return h.cur.Load() }

// Replace проверяет новую политику и, если она корректна, делает её текущей
// и уведомляет слушателей. При ошибке текущая политика остаётся прежней.
func (h *Holder) Replace(p *Policy) error {
	if p == nil {
		return ErrNilPolicy
	}
	if _, err := Validate(p); err != nil {
		return err
	}

	h.mu.Lock()
	old := h.cur.Swap(p)
	h.updates.Add(1)
	listeners := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		listeners = append(listeners, l)
	}
	h.mu.Unlock()

	for _, l := range listeners {
		l(old, p)
	}
	return nil
}

// Updates — сколько раз политика была заменена.
func (h *Holder) Updates() uint64 { return h.updates.Load() }

func (h *Holder) AddListener(l Listener) ListenerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.listeners[h.nextID] = l
	return h.nextID
}

// RemoveListener возвращает false, если такого слушателя нет.
func (h *Holder) RemoveListener(id ListenerID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[id]; !ok {
		return false
	}
	delete(h.listeners, id)
	return true
}
