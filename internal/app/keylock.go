package app

import (
	"fmt"
	"sync"

	"hotel_booking/internal/domain"
)

// keyLocks serializes the availability check-then-insert per
// (hotel, room class). Entries are never removed; the key space is
// bounded by the inventory, not by traffic.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLocks) acquire(hotelID int64, class domain.RoomClass) *sync.Mutex {
	key := fmt.Sprintf("%d:%s", hotelID, class)
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m
}
