package signal

import "sync"

// Value is an observable cell. Subscribers are called synchronously, in
// subscription order, after every Set.
type Value[T any] struct {
	mutex       sync.RWMutex
	current     T
	nextID      int
	subscribers map[int]func(T)
	order       []int
}

func New[T any](initial T) *Value[T] {
	return &Value[T]{current: initial, subscribers: make(map[int]func(T))}
}

func (value *Value[T]) Get() T {
	value.mutex.RLock()
	defer value.mutex.RUnlock()
	return value.current
}

func (value *Value[T]) Set(next T) {
	value.mutex.Lock()
	value.current = next
	callbacks := value.callbacksLocked()
	value.mutex.Unlock()

	for _, callback := range callbacks {
		callback(next)
	}
}

// Update applies fn to the current value under the lock and publishes the result.
func (value *Value[T]) Update(fn func(T) T) T {
	value.mutex.Lock()
	next := fn(value.current)
	value.current = next
	callbacks := value.callbacksLocked()
	value.mutex.Unlock()

	for _, callback := range callbacks {
		callback(next)
	}
	return next
}

func (value *Value[T]) callbacksLocked() []func(T) {
	callbacks := make([]func(T), 0, len(value.order))
	for _, id := range value.order {
		callbacks = append(callbacks, value.subscribers[id])
	}
	return callbacks
}

// Subscribe registers fn and returns a func that removes it. Calling the
// returned func more than once is harmless.
func (value *Value[T]) Subscribe(fn func(T)) func() {
	value.mutex.Lock()
	defer value.mutex.Unlock()

	id := value.nextID
	value.nextID++
	value.subscribers[id] = fn
	value.order = append(value.order, id)

	return func() {
		value.mutex.Lock()
		defer value.mutex.Unlock()
		if _, ok := value.subscribers[id]; !ok {
			return
		}
		delete(value.subscribers, id)
		for index, existing := range value.order {
			if existing == id {
				value.order = append(value.order[:index], value.order[index+1:]...)
				break
			}
		}
	}
}
