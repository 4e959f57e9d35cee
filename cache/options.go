package cache

import (
	"log/slog"
	"time"

	"github.com/hupe1980/visor/query"
	"github.com/hupe1980/visor/resource"
)

// DefaultTTL is the default idle time after which a finished entry expires.
const DefaultTTL = 30 * time.Minute

// EvictReason tells why an entry left the cache.
type EvictReason string

const (
	EvictExpired  EvictReason = "expired"
	EvictCapacity EvictReason = "capacity"
	EvictMemory   EvictReason = "memory"
	EvictManual   EvictReason = "manual"
	EvictRefresh  EvictReason = "refresh"
)

// Option configures a Manager.
type Option func(*Manager)

// WithTTL sets the idle TTL of finished entries. A value <= 0 disables expiry.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		m.ttl = d
	}
}

// WithMaxEntries bounds the number of entries. 0 means unbounded.
func WithMaxEntries(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.maxEntries = n
		}
	}
}

// WithResultReuse controls whether finished entries are served to new
// submissions. When disabled, a submission of a finished query replaces the
// entry and starts a new execution; running executions are still shared.
//
// The replacement keeps the session ID, so holders of that ID observe the
// new execution: Status goes back to a running state and GetResult returns
// ErrNotReady until it finishes. Callers that need the earlier result must
// read it before resubmitting.
func WithResultReuse(enabled bool) Option {
	return func(m *Manager) {
		m.noReuse = !enabled
	}
}

// WithResourceController charges result memory to rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(m *Manager) {
		m.rc = rc
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithEvictionHook registers fn to be called for every evicted entry.
// fn runs with the cache lock held and must not call back into the Manager.
func WithEvictionHook(fn func(id query.SessionID, reason EvictReason)) Option {
	return func(m *Manager) {
		m.onEvict = fn
	}
}
