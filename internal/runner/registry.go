package runner

import (
	"sort"
	"sync"
	"time"

	"ratio_bot/internal/models"
)

// PositionRegistry сопровождаемые позиции по символу плюс резервы открытий "в полёте".
// Мьютекс держится только на время работы с картами, никогда поверх сетевых вызовов.
type PositionRegistry struct {
	mu        sync.Mutex
	positions map[string]models.TrackedPosition
	reserved  map[string]time.Time
}

func NewPositionRegistry() *PositionRegistry {
	return &PositionRegistry{
		positions: make(map[string]models.TrackedPosition),
		reserved:  make(map[string]time.Time),
	}
}

// Reserve занимает символ под открытие. false, если символ уже сопровождается или зарезервирован.
func (r *PositionRegistry) Reserve(symbol string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.positions[symbol]; ok {
		return false
	}
	if _, ok := r.reserved[symbol]; ok {
		return false
	}
	r.reserved[symbol] = at
	return true
}

func (r *PositionRegistry) Release(symbol string) {
	r.mu.Lock()
	delete(r.reserved, symbol)
	r.mu.Unlock()
}

// ReservedExcept символы в резерве, кроме указанного.
func (r *PositionRegistry) ReservedExcept(symbol string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.reserved))
	for s := range r.reserved {
		if s != symbol {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Commit переводит резерв в сопровождаемую позицию одним шагом.
func (r *PositionRegistry) Commit(p models.TrackedPosition) {
	r.mu.Lock()
	delete(r.reserved, p.Symbol)
	r.positions[p.Symbol] = p
	r.mu.Unlock()
}

// SeedIfAbsent подхватывает позицию, если по символу нет ни записи, ни резерва.
func (r *PositionRegistry) SeedIfAbsent(p models.TrackedPosition) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.positions[p.Symbol]; ok {
		return false
	}
	if _, ok := r.reserved[p.Symbol]; ok {
		return false
	}
	r.positions[p.Symbol] = p
	return true
}

// Update пишет новое состояние, только если запись всё ещё та же (не удалена и не пересоздана).
func (r *PositionRegistry) Update(p models.TrackedPosition) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.positions[p.Symbol]
	if !ok || !cur.SeededAt.Equal(p.SeededAt) {
		return false
	}
	r.positions[p.Symbol] = p
	return true
}

func (r *PositionRegistry) Get(symbol string) (models.TrackedPosition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.positions[symbol]
	return p, ok
}

func (r *PositionRegistry) Has(symbol string) bool {
	_, ok := r.Get(symbol)
	return ok
}

// Remove удаляет запись вместе с флагом защиты (флаг живёт в Phase).
func (r *PositionRegistry) Remove(symbol string) (models.TrackedPosition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.positions[symbol]
	delete(r.positions, symbol)
	return p, ok
}

// Snapshot копия записей, отсортированная по символу.
func (r *PositionRegistry) Snapshot() []models.TrackedPosition {
	r.mu.Lock()
	out := make([]models.TrackedPosition, 0, len(r.positions))
	for _, p := range r.positions {
		out = append(out, p)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Prune выкидывает записи, которых нет среди открытых на бирже.
// Записи, заведённые после момента снимка (before), не трогаем.
func (r *PositionRegistry) Prune(open map[string]struct{}, before time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pruned []string
	for s, p := range r.positions {
		if _, ok := open[s]; ok {
			continue
		}
		if !p.SeededAt.Before(before) {
			continue
		}
		delete(r.positions, s)
		pruned = append(pruned, s)
	}
	sort.Strings(pruned)
	return pruned
}

func (r *PositionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.positions)
}
