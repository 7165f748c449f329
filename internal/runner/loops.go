package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ratio_bot/internal/metrics"
	"ratio_bot/pkg/logger"
)

// Loop периодическая задача: пауза Interval отсчитывается после конца итерации, догонять пропуски не пытаемся.
type Loop struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler держит циклы в errgroup; остановка через отмену контекста.
type Scheduler struct {
	loops []Loop
	hb    Heartbeat

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewScheduler(hb Heartbeat, loops ...Loop) *Scheduler {
	if hb == nil {
		hb = noopHeartbeat{}
	}
	return &Scheduler{loops: loops, hb: hb}
}

func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range s.loops {
		l := l
		g.Go(func() error {
			runLoop(gctx, l, s.hb)
			return nil
		})
	}
	s.cancel = cancel
	s.group = g
}

// Stop текущие итерации доделываются, потом циклы выходят.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, g := s.cancel, s.group
	s.cancel, s.group = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("loops did not stop: %w", ctx.Err())
	}
}

func runLoop(ctx context.Context, l Loop, hb Heartbeat) {
	logger.Info("[LOOP] ▶️ %s каждые %s", l.Name, l.Interval)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[LOOP] ⏹ %s остановлен", l.Name)
			return
		case <-timer.C:
		}

		if err := runIteration(ctx, l); err != nil && ctx.Err() == nil {
			logger.Warn("[LOOP] %s: %v", l.Name, err)
		}
		metrics.LoopIterations.WithLabelValues(l.Name).Inc()
		hb.TouchLoop(l.Name, time.Now())

		timer.Reset(l.Interval)
	}
}

// runIteration паника в итерации не должна ронять цикл.
func runIteration(ctx context.Context, l Loop) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return l.Run(ctx)
}
