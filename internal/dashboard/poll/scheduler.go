// Package poll drives the periodic fetch from the external API. The fixed
// interval is the only throttle; a failed tick is reported and the next one
// retries independently, with no backoff and no state carried over.
package poll

import (
	"context"
	"time"

	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/domain"
)

// Fetcher pulls the current order set from the source of truth.
type Fetcher func(ctx context.Context) ([]domain.Order, error)

// Result is one tick's outcome. Exactly one of Orders/Err is meaningful.
type Result struct {
	Orders []domain.Order
	Err    error
}

type Scheduler struct {
	interval time.Duration
	fetch    Fetcher
	log      *logger.Logger

	results chan Result
	stop    chan struct{}
	done    chan struct{}
}

func NewScheduler(interval time.Duration, fetch Fetcher, log *logger.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		fetch:    fetch,
		log:      log,
		results:  make(chan Result, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Results delivers one Result per completed fetch.
func (s *Scheduler) Results() <-chan Result { return s.results }

// Start begins ticking until Stop is called or ctx is canceled. The first
// fetch fires immediately so a freshly mounted view is not blank for a full
// interval.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	fctx, cancel := context.WithTimeout(ctx, s.interval)
	orders, err := s.fetch(fctx)
	cancel()

	if err != nil {
		s.log.Warn("poll_failed", map[string]any{"error": err.Error()})
	}

	// Never block the loop on a slow consumer; if the previous result is
	// still unread, replace it with the fresher one.
	res := Result{Orders: orders, Err: err}
	for {
		select {
		case s.results <- res:
			return
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		select {
		case <-s.results:
		default:
		}
	}
}

// Stop suspends the scheduler. Safe to call once; the view calls it on
// unmount.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}
