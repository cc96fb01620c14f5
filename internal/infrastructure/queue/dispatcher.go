package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
	"github.com/ibtissamelhani/induspress/internal/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// ErrClosed is returned by Record once Close has been called.
var ErrClosed = errors.New("event dispatcher closed")

// Dispatcher moves audit events off the request path. Events are sharded by
// article id over a fixed set of workers, so the trail of one article is
// written in commit order.
type Dispatcher struct {
	workers []chan domain.ArticleEvent
	sink    ports.EventRecorder
	log     zerolog.Logger
	wg      sync.WaitGroup

	// mu guards closed and the worker channels against send-after-close.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers that
// hand events to sink. If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink ports.EventRecorder, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.ArticleEvent, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ArticleEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled
// or after Close once their channel drains.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Record enqueues event on the worker responsible for its article. It blocks
// while that worker's buffer is full, until ctx is done. After Close it
// returns ErrClosed.
func (d *Dispatcher) Record(ctx context.Context, event domain.ArticleEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	idx := d.shardIndex(event.ArticleID)
	select {
	case d.workers[idx] <- event:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for the workers to drain. Calling
// it more than once is a no-op.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps an article id deterministically to a worker index.
func (d *Dispatcher) shardIndex(articleID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(articleID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ArticleEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.EventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			// Detached from the request that produced the event.
			if err := d.sink.Record(context.WithoutCancel(ctx), event); err != nil {
				d.log.Error().Err(err).
					Str("article_id", event.ArticleID).
					Int("worker_id", id).
					Msg("event recording failed")
			}
		}
	}
}

var _ ports.EventRecorder = (*Dispatcher)(nil)
