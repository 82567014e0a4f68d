package quiz

import (
	"sync"

	"github.com/google/uuid"
)

// Store keeps sessions in memory, keyed by a random id.
type Store struct {
	mutex    sync.RWMutex
	pools    Pools
	sessions map[string]*Session
}

func NewStore(pools Pools) *Store {
	return &Store{pools: pools, sessions: make(map[string]*Session)}
}

func (store *Store) Pools() Pools {
	return store.pools
}

func (store *Store) Create() (string, *Session) {
	id := uuid.New().String()
	session := NewSession(store.pools)

	store.mutex.Lock()
	store.sessions[id] = session
	store.mutex.Unlock()
	return id, session
}

func (store *Store) Get(id string) (*Session, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	session, ok := store.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (store *Store) Delete(id string) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	delete(store.sessions, id)
}
