package ontology

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Searcher is the query side of the ontology client.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Disease, error)
}

// DefaultDebounce matches the original search-as-you-type delay.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer drives search-as-you-type: each keystroke resets a timer, and
// only the query standing when the timer fires is executed. Results of a
// query that has been superseded by a newer keystroke are discarded.
type Debouncer struct {
	searcher Searcher
	delay    time.Duration
	deliver  func(query string, results []Disease, err error)

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewDebouncer creates a debouncer that calls deliver with the outcome of
// each executed query. deliver runs on the timer goroutine.
func NewDebouncer(searcher Searcher, delay time.Duration, deliver func(query string, results []Disease, err error)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{
		searcher: searcher,
		delay:    delay,
		deliver:  deliver,
	}
}

// Input registers a keystroke's worth of query text. Queries shorter than
// MinQueryLength clear the results immediately without a network call.
func (d *Debouncer) Input(ctx context.Context, query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	generation := d.gen

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if len(strings.TrimSpace(query)) < MinQueryLength {
		go d.deliver(query, nil, nil)
		return
	}

	d.timer = time.AfterFunc(d.delay, func() {
		results, err := d.searcher.Search(ctx, query)

		d.mu.Lock()
		stale := d.gen != generation
		d.mu.Unlock()
		if stale {
			return
		}

		d.deliver(query, results, err)
	})
}

// Stop cancels any pending query.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
