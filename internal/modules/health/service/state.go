package service

import (
	"sync"
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	mu    sync.RWMutex
	loops map[string]time.Time // имя цикла -> конец последней итерации
}

func NewState() *State {
	s := &State{
		startedAt: time.Now(),
		loops:     make(map[string]time.Time),
	}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

// TouchLoop отметка о завершённой итерации цикла.
func (s *State) TouchLoop(name string, at time.Time) {
	s.mu.Lock()
	s.loops[name] = at
	s.mu.Unlock()
}

func (s *State) LastLoop(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loops[name]
}

// Loops unix-время последней итерации по каждому циклу.
func (s *State) Loops() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(s.loops))
	for n, at := range s.loops {
		out[n] = at.Unix()
	}
	return out
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
