// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pipeline

import "sync"

// InFlight allows one outstanding request per key.
type InFlight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewInFlight creates an empty guard.
func NewInFlight() *InFlight {
	return &InFlight{active: make(map[string]struct{})}
}

// Acquire claims key. It returns ErrInProgress when the key is held;
// otherwise the returned release func must be called exactly once.
func (f *InFlight) Acquire(key string) (release func(), err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[key]; busy {
		return nil, ErrInProgress
	}
	f.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.active, key)
			f.mu.Unlock()
		})
	}, nil
}

// Busy reports whether key is held.
func (f *InFlight) Busy(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, busy := f.active[key]
	return busy
}
