package runner

import (
	"sort"
	"sync"
	"time"
)

// CooldownRegistry время последнего успешного входа по символу.
// Просроченные записи игнорируются при чтении, Sweep только чистит память.
type CooldownRegistry struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	last   map[string]time.Time
}

func NewCooldownRegistry(window time.Duration) *CooldownRegistry {
	return &CooldownRegistry{
		window: window,
		now:    time.Now,
		last:   make(map[string]time.Time),
	}
}

// WithClock подменяет часы (для тестов).
func (c *CooldownRegistry) WithClock(now func() time.Time) *CooldownRegistry {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

func (c *CooldownRegistry) Window() time.Duration { return c.window }

func (c *CooldownRegistry) Mark(symbol string) {
	c.mu.Lock()
	c.last[symbol] = c.now()
	c.mu.Unlock()
}

// Remaining сколько ещё ждать; ok=false, если символ свободен.
func (c *CooldownRegistry) Remaining(symbol string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	at, ok := c.last[symbol]
	if !ok {
		return 0, false
	}
	elapsed := c.now().Sub(at)
	if elapsed >= c.window {
		return 0, false
	}
	return c.window - elapsed, true
}

// Sweep удаляет истёкшие записи, возвращает сколько удалено.
func (c *CooldownRegistry) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for s, at := range c.last {
		if now.Sub(at) >= c.window {
			delete(c.last, s)
			n++
		}
	}
	return n
}

// Symbols символы, которые сейчас в кулдауне.
func (c *CooldownRegistry) Symbols() []string {
	c.mu.Lock()
	now := c.now()
	out := make([]string, 0, len(c.last))
	for s, at := range c.last {
		if now.Sub(at) < c.window {
			out = append(out, s)
		}
	}
	c.mu.Unlock()

	sort.Strings(out)
	return out
}

// Len записи в памяти, включая ещё не вычищенные.
func (c *CooldownRegistry) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.last)
}
