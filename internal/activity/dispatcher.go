package activity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	maxBatch     = 64
	writeTimeout = 5 * time.Second
)

// Dispatcher buffers records and ships them to a Sink from a single
// background worker. Emit never blocks: when the buffer is full the record is
// dropped and counted.
type Dispatcher struct {
	sink       Sink
	logger     *zap.Logger
	in         chan Record
	quit       chan struct{}
	done       chan struct{}
	flushEvery time.Duration

	// mu orders Emit's send against Close, so every record that enters
	// in does so before quit is closed and is seen by the final drain.
	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	dropped   atomic.Int64
	failed    atomic.Int64
}

// NewDispatcher starts a dispatcher in front of sink.
func NewDispatcher(sink Sink, logger *zap.Logger, buffer int, flushEvery time.Duration) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	if flushEvery <= 0 {
		flushEvery = 250 * time.Millisecond
	}
	d := &Dispatcher{
		sink:       sink,
		logger:     logger.Named("activity"),
		in:         make(chan Record, buffer),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		flushEvery: flushEvery,
	}
	go d.run()
	return d
}

// Emit queues r for delivery.
func (d *Dispatcher) Emit(r Record) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return
	}
	select {
	case d.in <- r:
	default:
		if n := d.dropped.Add(1); n == 1 || n%100 == 0 {
			d.logger.Warn("activity buffer full, dropping records", zap.Int64("dropped", n))
		}
	}
}

// Dropped is the number of records discarded because the buffer was full or
// the dispatcher was closed.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Failed is the number of records the sink rejected.
func (d *Dispatcher) Failed() int64 { return d.failed.Load() }

// Close stops accepting records, flushes what is buffered and closes the
// sink. It returns ctx's error if the flush does not finish in time.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.quit)
		d.mu.Unlock()
	})
	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return d.sink.Close()
}

func (d *Dispatcher) run() {
	defer close(d.done)

	ticker := time.NewTicker(d.flushEvery)
	defer ticker.Stop()

	batch := make([]Record, 0, maxBatch)
	for {
		select {
		case r := <-d.in:
			batch = append(batch, r)
			if len(batch) >= maxBatch {
				batch = d.flush(batch)
			}
		case <-ticker.C:
			batch = d.flush(batch)
		case <-d.quit:
			for {
				select {
				case r := <-d.in:
					batch = append(batch, r)
					if len(batch) >= maxBatch {
						batch = d.flush(batch)
					}
				default:
					d.flush(batch)
					return
				}
			}
		}
	}
}

func (d *Dispatcher) flush(batch []Record) []Record {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := d.sink.Write(ctx, batch); err != nil {
		d.failed.Add(int64(len(batch)))
		d.logger.Error("activity write failed", zap.Error(err), zap.Int("records", len(batch)))
	}
	return batch[:0]
}
