package popular

import (
	"context"
	"sync"
	"time"

	"github.com/nikbrunner/pm/internal/model"
)

// refreshTimeout bounds one poller refresh.
const refreshTimeout = 2 * time.Minute

// Poller refreshes the cache in the background.
type Poller struct {
	cache     *Cache
	interval  func() int // minutes
	unit      time.Duration
	onRefresh func(model.PromptsResponse)

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoller creates a poller forcing a refresh every interval() minutes.
// interval is read before each wait, so setting changes apply on the next round.
func NewPoller(cache *Cache, interval func() int) *Poller {
	return &Poller{
		cache:    cache,
		interval: interval,
		unit:     time.Minute,
		stopChan: make(chan struct{}),
	}
}

// OnRefresh registers a callback receiving every refreshed response.
// Must be called before Start.
func (p *Poller) OnRefresh(fn func(model.PromptsResponse)) {
	p.onRefresh = fn
}

// Start begins the polling loop. The first refresh happens after one interval.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			interval := clampInterval(p.interval())

			select {
			case <-p.stopChan:
				return
			case <-time.After(time.Duration(interval) * p.unit):
			}

			p.cache.logger.Debug("refreshing popular prompts", "interval", interval)

			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			resp := p.cache.Fetch(ctx, true)
			cancel()

			if p.onRefresh != nil {
				p.onRefresh(resp)
			}
		}
	}()
}

// Stop stops the poller gracefully.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	p.wg.Wait()
}

func clampInterval(n int) int {
	if n < model.MinSyncInterval {
		return model.MinSyncInterval
	}
	if n > model.MaxSyncInterval {
		return model.MaxSyncInterval
	}
	return n
}
