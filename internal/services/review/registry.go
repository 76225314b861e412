package review

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"check-review-gateway/internal/metrics"
	"check-review-gateway/internal/models"
)

// loadConcurrency bounds parallel check fetches when opening a session.
const loadConcurrency = 8

// CheckGetter fetches a single check from the processing service.
type CheckGetter interface {
	GetCheck(ctx context.Context, checkID int) (*models.Check, error)
}

// LoadChecks fetches the given checks concurrently, keeping the requested order.
func LoadChecks(ctx context.Context, getter CheckGetter, checkIDs []int) ([]models.Check, error) {
	checks := make([]models.Check, len(checkIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, id := range checkIDs {
		g.Go(func() error {
			check, err := getter.GetCheck(ctx, id)
			if err != nil {
				return err
			}
			checks[i] = *check
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load checks: %w", err)
	}
	return checks, nil
}

// CheckBatch rejects checks that were extracted from a different batch.
func CheckBatch(batchID int, checks []models.Check) error {
	for _, check := range checks {
		if check.BatchID != batchID {
			return fmt.Errorf("check %d is in batch %d, not %d: %w", check.ID, check.BatchID, batchID, ErrForeignCheck)
		}
	}
	return nil
}

// ExpectedFromBatch returns the batch's expected amount, or zero when unset.
func ExpectedFromBatch(batch *models.Batch) decimal.Decimal {
	if batch == nil || batch.ExpectedAmount == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*batch.ExpectedAmount)
}

// ValidateExpected rejects expected amounts whose exponent is out of range.
func ValidateExpected(expected decimal.Decimal) error {
	if !InRange(expected) {
		return fmt.Errorf("expected amount %s: %w", expected.String(), ErrAmountRange)
	}
	return nil
}

type registryEntry struct {
	session  *Session
	lastUsed atomic.Int64 // unix nanoseconds
}

func (e *registryEntry) touch(now time.Time) {
	e.lastUsed.Store(now.UnixNano())
}

// Registry holds open sessions. A session leaves the registry once its batch
// has been submitted, or once it has gone unused for longer than the idle TTL.
type Registry struct {
	sessions sync.Map // uuid.UUID -> *registryEntry
	idleTTL  time.Duration
	now      func() time.Time

	hooksMu  sync.RWMutex
	onRemove []func(uuid.UUID)
}

type RegistryOption func(*Registry)

// WithIdleTTL sets how long an unused session is kept. Zero keeps sessions
// until they are submitted.
func WithIdleTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		r.idleTTL = ttl
	}
}

func withClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnRemove registers fn to run whenever a session leaves the registry.
func (r *Registry) OnRemove(fn func(uuid.UUID)) {
	r.hooksMu.Lock()
	r.onRemove = append(r.onRemove, fn)
	r.hooksMu.Unlock()
}

// Add registers a session that has not yet been used.
func (r *Registry) Add(s *Session) {
	s.mu.Lock()
	s.onDone = func() { r.Remove(s.ID) }
	s.mu.Unlock()

	entry := &registryEntry{session: s}
	entry.touch(r.now())
	if _, loaded := r.sessions.LoadOrStore(s.ID, entry); !loaded {
		metrics.ActiveSessions.Inc()
	}
}

// Get returns an open session and marks it as used.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	entry := val.(*registryEntry)
	entry.touch(r.now())
	return entry.session, nil
}

func (r *Registry) Remove(id uuid.UUID) {
	if _, loaded := r.sessions.LoadAndDelete(id); !loaded {
		return
	}
	metrics.ActiveSessions.Dec()

	r.hooksMu.RLock()
	hooks := r.onRemove
	r.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(id)
	}
}

// Sweep removes sessions unused for longer than the idle TTL and returns how
// many were removed. Sessions with a submission in flight are kept.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL).UnixNano()

	var idle []*Session
	r.sessions.Range(func(_, val any) bool {
		entry := val.(*registryEntry)
		if entry.lastUsed.Load() < cutoff && entry.session.State() != StateSubmitting {
			idle = append(idle, entry.session)
		}
		return true
	})
	for _, s := range idle {
		s.Flush()
		r.Remove(s.ID)
	}
	return len(idle)
}

// StartSweeper sweeps idle sessions every interval until the returned stop
// function is called. Stop waits for a running sweep to finish.
func (r *Registry) StartSweeper(interval time.Duration, logger zerolog.Logger) (stop func()) {
	if r.idleTTL <= 0 || interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					logger.Info().Int("evicted", n).Int("open", r.Len()).Msg("idle review sessions evicted")
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// Len is the number of open sessions.
func (r *Registry) Len() int {
	n := 0
	r.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Flush waits for outstanding autosaves of every open session.
func (r *Registry) Flush() {
	r.sessions.Range(func(_, val any) bool {
		val.(*registryEntry).session.Flush()
		return true
	})
}
