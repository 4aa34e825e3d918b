package favorites

import (
	"context"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/transitpal/internal/report"
	"github.com/danpilch/transitpal/internal/state"
	"github.com/danpilch/transitpal/internal/transit"
)

// Persister is a store subscriber that writes the favorites file whenever the
// favorites change. Writes happen on the persister's own goroutine; when several
// changes pile up only the latest list is written.
type Persister struct {
	path   string
	logger *logrus.Logger

	// last is only touched from NewState.
	last []transit.FavoriteKey

	pending  chan []transit.FavoriteKey
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPersister returns a persister that treats initial as already saved.
func NewPersister(path string, initial []transit.FavoriteKey, logger *logrus.Logger) *Persister {
	return &Persister{
		path:    path,
		logger:  logger,
		last:    slices.Clone(initial),
		pending: make(chan []transit.FavoriteKey, 1),
		stopCh:  make(chan struct{}),
	}
}

func (p *Persister) NewState(s state.State) {
	if slices.Equal(s.Favorites, p.last) {
		return
	}
	p.last = s.Favorites

	for {
		select {
		case p.pending <- s.Favorites:
			return
		default:
		}
		// Replace the unsaved list with the newer one.
		select {
		case <-p.pending:
		default:
		}
	}
}

func (p *Persister) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.run(ctx)
}

// Stop writes any pending change and waits for the writer to exit.
func (p *Persister) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()
}

func (p *Persister) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case keys := <-p.pending:
			p.save(keys)
		case <-ctx.Done():
			p.drain()
			return
		case <-p.stopCh:
			p.drain()
			return
		}
	}
}

func (p *Persister) drain() {
	select {
	case keys := <-p.pending:
		p.save(keys)
	default:
	}
}

func (p *Persister) save(keys []transit.FavoriteKey) {
	if err := Save(p.path, keys); err != nil {
		p.logger.WithFields(logrus.Fields{
			"path":  p.path,
			"error": err,
		}).Error("failed to save favorites")
		report.ReportError(err)
		return
	}
	p.logger.WithFields(logrus.Fields{
		"path":      p.path,
		"favorites": len(keys),
	}).Info("favorites saved")
}
