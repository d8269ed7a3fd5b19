// Package dispatch delivers inbound work with per-chat ordering. Events for
// one chat run strictly in arrival order on a dedicated lane; different
// chats proceed concurrently. Lanes are created on demand and reclaimed
// after sitting idle.
package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/premiumbot/core/logger"
	"log/slog"
)

var (
	// ErrClosed is returned when enqueue is attempted after Close.
	ErrClosed = errors.New("dispatch: closed")
	// ErrLaneFull indicates the chat's lane is saturated and the job was dropped.
	ErrLaneFull = errors.New("dispatch: lane full")
)

// Options controls lane sizing and reclamation.
type Options struct {
	LaneSize int
	IdleTTL  time.Duration
}

// Dispatcher fans inbound jobs out to per-chat lanes.
type Dispatcher struct {
	opts Options

	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool

	wg      sync.WaitGroup
	stop    chan struct{}
	dropped atomic.Uint64
}

type lane struct {
	chatID int64
	jobs   chan func()
}

// New starts a dispatcher with sane defaults if options are zeroed.
func New(opts Options) *Dispatcher {
	if opts.LaneSize <= 0 {
		opts.LaneSize = 64
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = time.Minute
	}
	return &Dispatcher{
		opts:  opts,
		lanes: make(map[int64]*lane),
		stop:  make(chan struct{}),
	}
}

// Enqueue schedules fn on the chat's lane. Jobs for the same chat run in
// the order they were enqueued. Never blocks; a saturated lane drops the
// job with ErrLaneFull.
func (d *Dispatcher) Enqueue(chatID int64, fn func()) error {
	if fn == nil {
		return errors.New("dispatch: nil job")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	l, ok := d.lanes[chatID]
	if !ok {
		l = &lane{chatID: chatID, jobs: make(chan func(), d.opts.LaneSize)}
		d.lanes[chatID] = l
		d.wg.Add(1)
		go d.run(l)
	}

	select {
	case l.jobs <- fn:
		return nil
	default:
		d.dropped.Add(1)
		return ErrLaneFull
	}
}

// DroppedCount returns the number of jobs rejected due to lane saturation.
func (d *Dispatcher) DroppedCount() uint64 {
	return d.dropped.Load()
}

// Close stops accepting jobs, lets every lane drain, and waits for all
// lane goroutines to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.wg.Wait()
		return
	}
	d.closed = true
	close(d.stop)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run(l *lane) {
	defer d.wg.Done()
	idle := time.NewTimer(d.opts.IdleTTL)
	defer idle.Stop()

	for {
		select {
		case fn := <-l.jobs:
			fn()
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(d.opts.IdleTTL)
		case <-idle.C:
			if d.reclaim(l) {
				return
			}
			idle.Reset(d.opts.IdleTTL)
		case <-d.stop:
			d.drain(l)
			return
		}
	}
}

// reclaim removes an idle lane. Enqueue holds the same lock while pushing
// jobs, so a lane observed empty here cannot gain work before removal.
func (d *Dispatcher) reclaim(l *lane) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(l.jobs) > 0 {
		return false
	}
	delete(d.lanes, l.chatID)
	if logger.ShouldSampleDebug() {
		logger.Debug(logger.Background(), "dispatch", "lane.reclaim",
			slog.Int64("chat_id", l.chatID),
		)
	}
	return true
}

// drain runs jobs that were already accepted before Close.
func (d *Dispatcher) drain(l *lane) {
	for {
		select {
		case fn := <-l.jobs:
			fn()
		default:
			return
		}
	}
}
