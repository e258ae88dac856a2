// FILE: src/internal/store/store.go
package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"rsslogfeed/src/internal/core"

	"github.com/lixenwraith/log"
)

// Sink receives records evicted from the store. Persist is best-effort:
// the store logs failures and discards the record either way.
type Sink interface {
	Persist(ctx context.Context, rec core.LogRecord) error
}

// Config holds store tuning parameters
type Config struct {
	// TTL bounds how long a record stays buffered. <= 0 selects the default.
	TTL time.Duration

	// ArchiveTimeout bounds a single sink Persist call
	ArchiveTimeout time.Duration

	// SweepInterval drives the background sweep. 0 disables it; append
	// and query still sweep lazily.
	SweepInterval time.Duration
}

const (
	DefaultTTL            = 3 * 24 * time.Hour
	DefaultArchiveTimeout = 30 * time.Second
	DefaultSweepInterval  = time.Minute
)

// Store is the TTL-bounded, severity-partitioned record buffer. All
// structural changes are serialized under a single mutex; sink calls
// happen strictly outside it.
type Store struct {
	ttl            time.Duration
	archiveTimeout time.Duration
	sweepInterval  time.Duration
	sink           Sink
	logger         *log.Logger

	mu       sync.Mutex
	combined []core.LogRecord
	byLevel  [5][]core.LogRecord

	// Detached records awaiting archival, guarded by mu. Sweeps enqueue
	// under the structural lock, so queue order is eviction order; a
	// single archiver goroutine drains it, so the sink observes one
	// chronological stream no matter how many sweeps race.
	archiveQueue []core.LogRecord
	archiveWake  chan struct{}

	done chan struct{}
	wg   sync.WaitGroup

	// Statistics
	totalAppended   atomic.Uint64
	totalEvicted    atomic.Uint64
	archiveFailures atomic.Uint64
}

// New creates a started store. Shutdown must be called to stop the
// background archiver and sweep.
func New(cfg Config, sink Sink, logger *log.Logger) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = DefaultArchiveTimeout
	}

	s := &Store{
		ttl:            cfg.TTL,
		archiveTimeout: cfg.ArchiveTimeout,
		sweepInterval:  cfg.SweepInterval,
		sink:           sink,
		logger:         logger,
		archiveWake:    make(chan struct{}, 1),
		done:           make(chan struct{}),
	}

	s.wg.Add(1)
	go s.archiveLoop()

	if s.sweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop()
	}

	logger.Info("msg", "Record store initialized",
		"component", "store",
		"ttl", cfg.TTL.String(),
		"archive_timeout", cfg.ArchiveTimeout.String())

	return s
}

// Append adds a record to the combined sequence and its level partition,
// then sweeps. Records with a zero timestamp are stamped on arrival,
// under the lock, so the combined sequence stays time-ordered. Append
// never fails.
func (s *Store) Append(rec core.LogRecord) {
	s.mu.Lock()
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	s.combined = append(s.combined, rec)
	s.byLevel[rec.Level] = append(s.byLevel[rec.Level], rec)
	s.totalAppended.Add(1)
	evicted := s.sweepLocked(time.Now())
	s.mu.Unlock()

	if evicted {
		s.wakeArchiver()
	}
}

// Query returns a snapshot of all live records in arrival order. The
// snapshot is a copy: eviction never mutates it mid-iteration.
func (s *Store) Query() []core.LogRecord {
	return s.snapshot(nil)
}

// QueryLevel returns a snapshot of the live records in one level
// partition, in arrival order.
func (s *Store) QueryLevel(level core.Level) []core.LogRecord {
	return s.snapshot(&level)
}

func (s *Store) snapshot(level *core.Level) []core.LogRecord {
	s.mu.Lock()
	evicted := s.sweepLocked(time.Now())

	src := s.combined
	if level != nil {
		src = s.byLevel[*level]
	}
	out := make([]core.LogRecord, len(src))
	copy(out, src)
	s.mu.Unlock()

	if evicted {
		s.wakeArchiver()
	}
	return out
}

// Sweep detaches expired records and queues them for archival. Exposed
// so tests can force eviction without appending.
func (s *Store) Sweep() {
	s.mu.Lock()
	evicted := s.sweepLocked(time.Now())
	s.mu.Unlock()

	if evicted {
		s.wakeArchiver()
	}
}

// sweepLocked removes every record whose age has reached the TTL from
// the combined sequence and its partition, and enqueues it for the
// archiver. Detaching and enqueueing under the lock guarantees each
// record is queued exactly once, in eviction order.
func (s *Store) sweepLocked(now time.Time) bool {
	cutoff := now.Add(-s.ttl)

	// Arrival-ordered, so expired records form a prefix
	n := 0
	for n < len(s.combined) && !s.combined[n].Time.After(cutoff) {
		n++
	}
	if n == 0 {
		return false
	}

	s.archiveQueue = append(s.archiveQueue, s.combined[:n]...)
	s.combined = append(s.combined[:0], s.combined[n:]...)

	for _, lvl := range core.Levels() {
		part := s.byLevel[lvl]
		k := 0
		for k < len(part) && !part[k].Time.After(cutoff) {
			k++
		}
		if k > 0 {
			s.byLevel[lvl] = append(part[:0], part[k:]...)
		}
	}

	return true
}

func (s *Store) wakeArchiver() {
	select {
	case s.archiveWake <- struct{}{}:
	default:
	}
}

// archiveLoop is the single drainer of the archive queue. On shutdown
// it makes one final best-effort pass over whatever is still queued.
func (s *Store) archiveLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			s.drainArchiveQueue()
			return
		case <-s.archiveWake:
			s.drainArchiveQueue()
		}
	}
}

// drainArchiveQueue persists queued records oldest first, outside the
// structural lock. Failures are logged; eviction is already final.
func (s *Store) drainArchiveQueue() {
	for {
		s.mu.Lock()
		if len(s.archiveQueue) == 0 {
			s.mu.Unlock()
			return
		}
		batch := s.archiveQueue
		s.archiveQueue = nil
		s.mu.Unlock()

		for _, rec := range batch {
			ctx, cancel := context.WithTimeout(context.Background(), s.archiveTimeout)
			err := s.sink.Persist(ctx, rec)
			cancel()

			s.totalEvicted.Add(1)
			if err != nil {
				s.archiveFailures.Add(1)
				s.logger.Warn("msg", "Failed to archive evicted record",
					"component", "store",
					"client", rec.Client,
					"level", rec.Level.String(),
					"error", err)
			}
		}
	}
}

func (s *Store) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Shutdown stops the background goroutines after a final drain of the
// archive queue. Still-buffered records are dropped: in-memory entries
// are not durable by design.
func (s *Store) Shutdown() {
	close(s.done)
	s.wg.Wait()

	s.mu.Lock()
	remaining := len(s.combined)
	s.mu.Unlock()

	s.logger.Info("msg", "Record store stopped",
		"component", "store",
		"buffered_dropped", remaining)
}

// StoreStats contains statistics about the store
type StoreStats struct {
	Buffered        int
	BufferedByLevel map[string]int
	TotalAppended   uint64
	TotalEvicted    uint64
	ArchiveFailures uint64
}

// GetStats returns store statistics
func (s *Store) GetStats() StoreStats {
	s.mu.Lock()
	buffered := len(s.combined)
	byLevel := make(map[string]int, 5)
	for _, lvl := range core.Levels() {
		byLevel[lvl.String()] = len(s.byLevel[lvl])
	}
	s.mu.Unlock()

	return StoreStats{
		Buffered:        buffered,
		BufferedByLevel: byLevel,
		TotalAppended:   s.totalAppended.Load(),
		TotalEvicted:    s.totalEvicted.Load(),
		ArchiveFailures: s.archiveFailures.Load(),
	}
}
