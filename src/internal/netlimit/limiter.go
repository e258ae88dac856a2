// FILE: src/internal/netlimit/limiter.go
package netlimit

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// Limiter provides per-client request limiting for the ingest endpoint
type Limiter struct {
	clients         sync.Map // map[string]*clientLimiter
	requestsPerSec  float64
	burstSize       int
	cleanupInterval time.Duration
	logger          *log.Logger
	done            chan struct{}

	// Statistics
	totalRequests   atomic.Uint64
	blockedRequests atomic.Uint64
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// New creates a limiter. Returns nil when requestsPerSec <= 0; a nil
// limiter allows everything.
func New(requestsPerSec float64, burstSize int, logger *log.Logger) *Limiter {
	if requestsPerSec <= 0 {
		return nil
	}
	if burstSize <= 0 {
		burstSize = int(requestsPerSec)
	}

	l := &Limiter{
		requestsPerSec:  requestsPerSec,
		burstSize:       burstSize,
		cleanupInterval: time.Minute,
		logger:          logger,
		done:            make(chan struct{}),
	}

	go l.cleanupLoop()

	logger.Info("msg", "Net limiter initialized",
		"component", "netlimit",
		"requests_per_second", requestsPerSec,
		"burst_size", burstSize)

	return l
}

// Allow checks whether a request from the given remote address may
// proceed.
func (l *Limiter) Allow(remoteAddr string) bool {
	if l == nil {
		return true
	}

	l.totalRequests.Add(1)

	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// No port component, use the address as-is
		ip = remoteAddr
	}

	if l.getLimiter(ip).Allow() {
		return true
	}

	l.blockedRequests.Add(1)
	l.logger.Debug("msg", "Request rate limited",
		"component", "netlimit",
		"ip", ip)
	return false
}

func (l *Limiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now().UnixNano()

	if val, ok := l.clients.Load(ip); ok {
		client := val.(*clientLimiter)
		client.lastSeen.Store(now)
		return client.limiter
	}

	client := &clientLimiter{
		limiter: rate.NewLimiter(rate.Limit(l.requestsPerSec), l.burstSize),
	}
	client.lastSeen.Store(now)

	if existing, loaded := l.clients.LoadOrStore(ip, client); loaded {
		return existing.(*clientLimiter).limiter
	}
	return client.limiter
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.removeStaleClients()
		}
	}
}

func (l *Limiter) removeStaleClients() {
	threshold := time.Now().Add(-2 * l.cleanupInterval).UnixNano()

	l.clients.Range(func(key, value any) bool {
		if value.(*clientLimiter).lastSeen.Load() < threshold {
			l.clients.Delete(key)
		}
		return true
	})
}

// Stop shuts down the cleanup goroutine
func (l *Limiter) Stop() {
	if l == nil {
		return
	}
	close(l.done)
}

// GetStats returns limiter statistics
func (l *Limiter) GetStats() map[string]any {
	if l == nil {
		return map[string]any{"enabled": false}
	}

	active := 0
	l.clients.Range(func(_, _ any) bool {
		active++
		return true
	})

	return map[string]any{
		"enabled":          true,
		"total_requests":   l.totalRequests.Load(),
		"blocked_requests": l.blockedRequests.Load(),
		"active_clients":   active,
	}
}
