package offline

import (
	"sync"
	"time"
)

// Registration хранит, зарегистрирован ли воркер для своей области.
type Registration struct {
	mu             sync.Mutex
	scope          string
	registered     bool
	registeredAt   time.Time
	unregisteredAt time.Time
}

// NewRegistration создает активную регистрацию.
func NewRegistration(scope string) *Registration {
	return &Registration{scope: scope, registered: true, registeredAt: time.Now()}
}

func (r *Registration) Scope() string { return r.scope }

// Active сообщает, зарегистрирован ли воркер.
func (r *Registration) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

// Register повторно регистрирует воркер.
func (r *Registration) Register() {
	r.mu.Lock()
	r.registered = true
	r.registeredAt = time.Now()
	r.mu.Unlock()
}

// Unregister снимает регистрацию; возвращает false, если ее уже не было.
func (r *Registration) Unregister() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.registered {
		return false
	}
	r.registered = false
	r.unregisteredAt = time.Now()
	return true
}

// LastChange возвращает текущее состояние и время его установки.
func (r *Registration) LastChange() (bool, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered {
		return true, r.registeredAt
	}
	return false, r.unregisteredAt
}
