package cache

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/visor/execution"
	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
	"github.com/hupe1980/visor/resource"
)

// Decision is the outcome of Begin.
type Decision uint8

const (
	// Cached means a ready result exists.
	Cached Decision = iota
	// Running means another caller is executing the query.
	Running
	// Start means the caller won the claim and must execute the query.
	Start
	// Failed means the last execution failed and is still cached.
	Failed
)

func (d Decision) String() string {
	switch d {
	case Cached:
		return "cached"
	case Running:
		return "running"
	case Start:
		return "start"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Decision(%d)", uint8(d))
	}
}

// Ticket is returned by Begin.
type Ticket struct {
	ID       query.SessionID
	Decision Decision
	// Tracker is the execution handle. Only the Start ticket may write to it.
	Tracker *execution.Tracker
}

type entry struct {
	id      query.SessionID
	def     query.Definition
	tracker *execution.Tracker
	result  *model.Result
	size    int64
	charged bool

	createdAt  time.Time
	lastAccess time.Time
	elem       *list.Element
}

// pinned reports whether an execution of e is in flight.
func (e *entry) pinned() bool {
	st := e.tracker.State()
	return st != execution.NotStarted && st.Running()
}

// Manager is the query cache and lock manager. It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	entries map[query.SessionID]*entry
	lru     *list.List // front is most recently used
	charged int64

	ttl        time.Duration
	maxEntries int
	noReuse    bool
	rc         *resource.Controller
	now        func() time.Time
	logger     *slog.Logger
	onEvict    func(query.SessionID, EvictReason)

	hits      atomic.Int64
	misses    atomic.Int64
	joins     atomic.Int64
	evictions atomic.Int64
}

// New creates a Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		entries: make(map[query.SessionID]*entry),
		lru:     list.New(),
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreateSession returns the ID of def, creating a NotStarted entry when
// none exists. It never starts an execution.
func (m *Manager) GetOrCreateSession(def query.Definition) (query.SessionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.getOrCreateLocked(def)
	if err != nil {
		return "", err
	}
	return e.id, nil
}

// Begin takes the cached / running / start decision for def as one atomic step.
//
// Exactly one caller receives Start for a NotStarted entry; it owns the
// returned tracker and must finish with AttachResult or Fail.
func (m *Manager) Begin(def query.Definition) (Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.getOrCreateLocked(def)
	if err != nil {
		return Ticket{}, err
	}

	if m.noReuse && e.tracker.State().Terminal() {
		m.removeLocked(e, EvictRefresh)
		if e, err = m.getOrCreateLocked(def); err != nil {
			return Ticket{}, err
		}
	}

	t := Ticket{ID: e.id, Tracker: e.tracker}
	switch st := e.tracker.State(); {
	case st == execution.ResultsReady:
		t.Decision = Cached
		m.hits.Add(1)
	case st.Failed():
		t.Decision = Failed
		m.hits.Add(1)
	case e.tracker.Claim():
		t.Decision = Start
		m.misses.Add(1)
	default:
		t.Decision = Running
		m.joins.Add(1)
	}

	m.logger.Debug("cache decision", "qsid", string(e.id), "decision", t.Decision.String())
	return t, nil
}

// LookupDefinition resolves id to its definition.
func (m *Manager) LookupDefinition(id query.SessionID) (query.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.getLocked(id)
	if err != nil {
		return query.Definition{}, err
	}
	return e.def, nil
}

// IsCached reports whether def has a ready result.
func (m *Manager) IsCached(def query.Definition) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.getLocked(query.Fingerprint(def))
	return err == nil && e.def == def && e.tracker.State() == execution.ResultsReady
}

// RunningStatus returns the execution status of def.
func (m *Manager) RunningStatus(def query.Definition) (execution.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.getLocked(query.Fingerprint(def))
	if err != nil {
		return execution.Status{}, err
	}
	if e.def != def {
		return execution.Status{}, ErrNotFound
	}
	return e.tracker.Status(), nil
}

// Status returns the execution status of id.
func (m *Manager) Status(id query.SessionID) (execution.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.getLocked(id)
	if err != nil {
		return execution.Status{}, err
	}
	return e.tracker.Status(), nil
}

// AttachResult stores res for id and marks the execution ResultsReady.
// Attaching to an entry that already has a result is a no-op.
func (m *Manager) AttachResult(id query.SessionID, res *model.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.result != nil {
		return nil
	}
	if st := e.tracker.Status(); st.State.Failed() {
		return &FailedError{ID: id, Message: st.Err}
	}

	e.result = res
	if err := e.tracker.Complete(); err != nil {
		e.result = nil
		return err
	}

	e.size = res.SizeBytes()
	e.charged = m.chargeLocked(e)
	m.touchLocked(e)
	m.enforceCapacityLocked(e)
	return nil
}

// Fail marks the execution of id as failed with msg.
func (m *Manager) Fail(id query.SessionID, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := e.tracker.Fail(msg); err != nil {
		return err
	}
	m.touchLocked(e)
	m.enforceCapacityLocked(e)
	return nil
}

// GetResult returns the result of id without blocking.
func (m *Manager) GetResult(id query.SessionID) (*model.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.getLocked(id)
	if err != nil {
		return nil, err
	}
	st := e.tracker.Status()
	switch {
	case st.State.Failed():
		return nil, &FailedError{ID: id, Message: st.Err}
	case e.result == nil:
		return nil, ErrNotReady
	default:
		return e.result, nil
	}
}

// Evict removes id. It reports whether an entry was removed.
// Entries with an execution in flight are pinned and not removed.
func (m *Manager) Evict(id query.SessionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.pinned() {
		return false
	}
	m.removeLocked(e, EvictManual)
	return true
}

// Len returns the number of entries, including expired ones not yet removed.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries     int   `json:"entries"`
	InFlight    int   `json:"in_flight"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Joins       int64 `json:"joins"`
	Evictions   int64 `json:"evictions"`
	MemoryBytes int64 `json:"memory_bytes"`
}

// Stats returns cache counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Entries:     len(m.entries),
		Hits:        m.hits.Load(),
		Misses:      m.misses.Load(),
		Joins:       m.joins.Load(),
		Evictions:   m.evictions.Load(),
		MemoryBytes: m.charged,
	}
	for _, e := range m.entries {
		if e.tracker.State().Running() {
			s.InFlight++
		}
	}
	return s
}

// Close drops all entries and releases their memory.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		m.releaseLocked(e)
	}
	m.entries = make(map[query.SessionID]*entry)
	m.lru.Init()
	return nil
}

func (m *Manager) getOrCreateLocked(def query.Definition) (*entry, error) {
	id := query.Fingerprint(def)
	m.expireLocked()

	if e, ok := m.entries[id]; ok {
		if e.def != def {
			return nil, fmt.Errorf("%w: %s", ErrCollision, id)
		}
		m.touchLocked(e)
		return e, nil
	}

	now := m.now()
	e := &entry{
		id:         id,
		def:        def,
		tracker:    execution.NewTracker(m.now),
		createdAt:  now,
		lastAccess: now,
	}
	e.elem = m.lru.PushFront(e)
	m.entries[id] = e
	m.enforceCapacityLocked(e)
	return e, nil
}

func (m *Manager) getLocked(id query.SessionID) (*entry, error) {
	m.expireLocked()

	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.touchLocked(e)
	return e, nil
}

func (m *Manager) touchLocked(e *entry) {
	e.lastAccess = m.now()
	m.lru.MoveToFront(e.elem)
}

// expireLocked removes unpinned entries idle longer than the TTL. The list is
// ordered by last access, so the scan stops at the first fresh entry.
func (m *Manager) expireLocked() {
	if m.ttl <= 0 {
		return
	}
	deadline := m.now().Add(-m.ttl)

	for el := m.lru.Back(); el != nil; {
		e := el.Value.(*entry)
		prev := el.Prev()
		if !e.pinned() {
			if e.lastAccess.After(deadline) {
				return
			}
			m.removeLocked(e, EvictExpired)
		}
		el = prev
	}
}

// enforceCapacityLocked evicts unpinned entries other than keep until the
// capacity bound holds.
func (m *Manager) enforceCapacityLocked(keep *entry) {
	if m.maxEntries <= 0 {
		return
	}
	for el := m.lru.Back(); el != nil && len(m.entries) > m.maxEntries; {
		e := el.Value.(*entry)
		prev := el.Prev()
		if e != keep && !e.pinned() {
			m.removeLocked(e, EvictCapacity)
		}
		el = prev
	}
}

// chargeLocked reserves memory for e, evicting least recently used finished
// entries while the budget is exhausted. A result that still does not fit is
// kept uncharged.
func (m *Manager) chargeLocked(e *entry) bool {
	if m.rc == nil {
		return false
	}
	el := m.lru.Back()
	for !m.rc.TryAcquireMemory(e.size) {
		for el != nil && (el.Value.(*entry) == e || !el.Value.(*entry).charged) {
			el = el.Prev()
		}
		if el == nil {
			return false
		}
		victim := el.Value.(*entry)
		el = el.Prev()
		m.removeLocked(victim, EvictMemory)
	}
	m.charged += e.size
	return true
}

func (m *Manager) releaseLocked(e *entry) {
	if e.charged {
		m.rc.ReleaseMemory(e.size)
		m.charged -= e.size
		e.charged = false
	}
}

func (m *Manager) removeLocked(e *entry, reason EvictReason) {
	m.releaseLocked(e)
	m.lru.Remove(e.elem)
	delete(m.entries, e.id)
	m.evictions.Add(1)

	m.logger.Debug("cache eviction", "qsid", string(e.id), "reason", string(reason))
	if m.onEvict != nil {
		m.onEvict(e.id, reason)
	}
}
