// Package review hosts a batch review: the reviewer's in-memory copy of the
// batch's checks, the running total against the expected amount, field
// autosave, manual contact matching, and the two-phase submission.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"check-review-gateway/internal/metrics"
	"check-review-gateway/internal/models"
	"check-review-gateway/internal/services/matching"
)

const DefaultModifiedHold = time.Second

// Backend is the part of the check-processing API a session calls.
type Backend interface {
	UpdateCheck(ctx context.Context, checkID int, fields map[string]any) (*models.Check, error)
	SearchContacts(ctx context.Context, name, zip string) (*models.ContactSearchResponse, error)
	SubmitBatch(ctx context.Context, batchID int, force bool) (*models.SubmitResponse, error)
}

// Item is the canonical state of one check under review.
type Item struct {
	ID           int
	PageNumber   int
	Amount       decimal.Decimal
	Fields       map[string]string
	ContactID    string
	ContactName  string
	MatchSource  string
	NeedsReview  bool
	IsMoneyOrder bool
	Modified     bool
}

func newItem(check models.Check) *Item {
	item := &Item{
		ID:           check.ID,
		PageNumber:   check.PageNumber,
		Fields:       make(map[string]string, len(models.EditableFields)),
		ContactID:    models.Str(check.HubspotContactID),
		ContactName:  models.Str(check.HubspotContactName),
		NeedsReview:  check.NeedsReview,
		IsMoneyOrder: check.IsMoneyOrder,
	}
	if item.ContactID != "" {
		item.MatchSource = "auto"
	}

	amount := ""
	if check.Amount != nil {
		amount = strconv.FormatFloat(*check.Amount, 'f', 2, 64)
	}
	item.set("amount", amount)
	item.set("check_date", models.Str(check.CheckDate))
	item.set("check_number", models.Str(check.CheckNumber))
	item.set("name", models.Str(check.Name))
	item.set("address_line1", models.Str(check.AddressLine1))
	item.set("address_line2", models.Str(check.AddressLine2))
	item.set("city", models.Str(check.City))
	item.set("state", models.Str(check.State))
	item.set("zip_code", models.Str(check.ZipCode))
	return item
}

func (i *Item) set(field, value string) {
	i.Fields[field] = value
	if field == "amount" {
		i.Amount = ParseAmount(value)
	}
}

func (i *Item) clone() Item {
	c := *i
	c.Fields = make(map[string]string, len(i.Fields))
	for k, v := range i.Fields {
		c.Fields[k] = v
	}
	return c
}

func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID           int               `json:"id"`
		PageNumber   int               `json:"page_number"`
		Amount       string            `json:"amount"`
		Fields       map[string]string `json:"fields"`
		ContactID    string            `json:"hubspot_contact_id,omitempty"`
		ContactName  string            `json:"hubspot_contact_name,omitempty"`
		MatchSource  string            `json:"match_source,omitempty"`
		NeedsReview  bool              `json:"needs_review"`
		IsMoneyOrder bool              `json:"is_money_order"`
		Modified     bool              `json:"modified"`
	}{
		ID:           i.ID,
		PageNumber:   i.PageNumber,
		Amount:       i.Amount.StringFixed(2),
		Fields:       i.Fields,
		ContactID:    i.ContactID,
		ContactName:  i.ContactName,
		MatchSource:  i.MatchSource,
		NeedsReview:  i.NeedsReview,
		IsMoneyOrder: i.IsMoneyOrder,
		Modified:     i.Modified,
	})
}

// Settings tune a session.
type Settings struct {
	// ModifiedHold is how long an edited field stays marked modified.
	ModifiedHold time.Duration
	// RecheckOnConfirm re-prompts when the total changed between the mismatch
	// warning and the reviewer's confirmation.
	RecheckOnConfirm bool
	// IndexPath is where the reviewer is sent after a successful submission.
	IndexPath string
}

type Option func(*Session)

func WithPresenter(p Presenter) Option {
	return func(s *Session) {
		s.presenter = p
	}
}

func WithAuditRecorder(r AuditRecorder) Option {
	return func(s *Session) {
		s.audit = r
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithSettings(settings Settings) Option {
	return func(s *Session) {
		if settings.ModifiedHold > 0 {
			s.settings.ModifiedHold = settings.ModifiedHold
		}
		if settings.IndexPath != "" {
			s.settings.IndexPath = settings.IndexPath
		}
		s.settings.RecheckOnConfirm = settings.RecheckOnConfirm
	}
}

// Session is one reviewer's pass over a batch. BatchID and Expected are fixed
// for its lifetime.
type Session struct {
	ID       uuid.UUID
	BatchID  int
	Expected decimal.Decimal

	backend   Backend
	presenter Presenter
	audit     AuditRecorder
	logger    zerolog.Logger
	settings  Settings

	mu      sync.Mutex
	items   map[int]*Item
	order   []int
	state   SubmissionState
	pending *Mismatch
	control Control
	onDone  func()

	saves sync.WaitGroup
}

// NewSession builds a session from the checks loaded for the batch and renders
// the initial total.
func NewSession(batchID int, expected decimal.Decimal, checks []models.Check, backend Backend, opts ...Option) *Session {
	s := &Session{
		ID:        uuid.New(),
		BatchID:   batchID,
		Expected:  expected,
		backend:   backend,
		presenter: NopPresenter{},
		logger:    zerolog.Nop(),
		settings: Settings{
			ModifiedHold: DefaultModifiedHold,
			IndexPath:    "/",
		},
		items:   make(map[int]*Item, len(checks)),
		state:   StateIdle,
		control: idleControl(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.audit == nil {
		s.audit = NewLogAuditRecorder(s.logger)
	}
	s.logger = s.logger.With().Str("session_id", s.ID.String()).Int("batch_id", batchID).Logger()

	sorted := append([]models.Check(nil), checks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PageNumber < sorted[j].PageNumber
	})
	for _, check := range sorted {
		if _, dup := s.items[check.ID]; dup {
			continue
		}
		s.items[check.ID] = newItem(check)
		s.order = append(s.order, check.ID)
	}

	s.presenter.SubmitControl(s.control)
	s.presenter.RenderTotal(s.Evaluate())
	return s
}

// Evaluate recomputes the total from the current amounts.
func (s *Session) Evaluate() Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluateLocked()
}

func (s *Session) evaluateLocked() Evaluation {
	total := decimal.Zero
	for _, id := range s.order {
		total = total.Add(s.items[id].Amount)
	}
	return Evaluate(total, s.Expected)
}

// Items returns copies of the items in page order.
func (s *Session) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, s.items[id].clone())
	}
	return items
}

func (s *Session) Item(itemID int) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return Item{}, fmt.Errorf("check %d: %w", itemID, ErrItemNotFound)
	}
	return item.clone(), nil
}

// SaveField applies an edit to the in-memory item and sends it upstream in the
// background. The modified marker clears after the hold time whatever the
// upstream answer; autosave failures are only logged.
func (s *Session) SaveField(ctx context.Context, itemID int, field, value string) error {
	if !models.EditableFields[field] {
		return fmt.Errorf("%q: %w", field, ErrUnknownField)
	}

	s.mu.Lock()
	if s.state == StateDone {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	item, ok := s.items[itemID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("check %d: %w", itemID, ErrItemNotFound)
	}
	item.set(field, value)
	item.Modified = true
	rendered := item.clone()
	var ev *Evaluation
	if field == "amount" {
		e := s.evaluateLocked()
		ev = &e
	}
	s.saves.Add(1)
	s.mu.Unlock()

	s.presenter.RenderItem(rendered)
	if ev != nil {
		s.presenter.RenderTotal(*ev)
	}

	time.AfterFunc(s.settings.ModifiedHold, func() { s.clearModified(itemID) })

	go func() {
		defer s.saves.Done()
		start := time.Now()
		_, err := s.backend.UpdateCheck(context.WithoutCancel(ctx), itemID, map[string]any{field: value})
		metrics.ObserveUpstream("update_check", start)
		if err != nil {
			metrics.AutosavesTotal.WithLabelValues("failed").Inc()
			s.logger.Warn().Err(err).Int("check_id", itemID).Str("field", field).Msg("autosave failed")
			return
		}
		metrics.AutosavesTotal.WithLabelValues("saved").Inc()
	}()
	return nil
}

func (s *Session) clearModified(itemID int) {
	s.mu.Lock()
	item, ok := s.items[itemID]
	if !ok || !item.Modified {
		s.mu.Unlock()
		return
	}
	item.Modified = false
	rendered := item.clone()
	s.mu.Unlock()

	s.presenter.RenderItem(rendered)
}

// Flush waits for in-flight autosaves.
func (s *Session) Flush() {
	s.saves.Wait()
}

// SearchContacts looks up candidate contacts for one item. Empty name or zip
// default to the item's current values.
func (s *Session) SearchContacts(ctx context.Context, itemID int, name, zip string) ([]matching.Candidate, error) {
	item, err := s.Item(itemID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = item.Fields["name"]
	}
	if zip == "" {
		zip = item.Fields["zip_code"]
	}

	start := time.Now()
	resp, err := s.backend.SearchContacts(ctx, name, zip)
	metrics.ObserveUpstream("search_contacts", start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContactSearch, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrContactSearch, resp.Error)
	}
	return matching.Rank(resp.Contacts), nil
}

// SelectContact binds an item to a contact chosen by the reviewer and clears
// its needs-review flag.
func (s *Session) SelectContact(ctx context.Context, itemID int, contactID, contactName string) (Item, error) {
	if _, err := s.Item(itemID); err != nil {
		return Item{}, err
	}

	start := time.Now()
	_, err := s.backend.UpdateCheck(ctx, itemID, map[string]any{
		"hubspot_contact_id": contactID,
		"needs_review":       false,
	})
	metrics.ObserveUpstream("update_check", start)
	if err != nil {
		s.logger.Error().Err(err).Int("check_id", itemID).Str("contact_id", contactID).Msg("failed to select contact")
		return Item{}, fmt.Errorf("select contact for check %d: %w", itemID, err)
	}

	s.mu.Lock()
	item := s.items[itemID]
	item.ContactID = contactID
	item.ContactName = contactName
	item.NeedsReview = false
	item.MatchSource = "manual"
	rendered := item.clone()
	s.mu.Unlock()

	s.presenter.RenderItem(rendered)
	return rendered, nil
}

// View is a point-in-time rendering of the session.
type View struct {
	ID         uuid.UUID       `json:"id"`
	BatchID    int             `json:"batch_id"`
	State      SubmissionState `json:"state"`
	Evaluation Evaluation      `json:"evaluation"`
	Control    Control         `json:"control"`
	Pending    *Mismatch       `json:"pending_confirmation,omitempty"`
	Items      []Item          `json:"items"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, s.items[id].clone())
	}
	var pending *Mismatch
	if s.pending != nil {
		p := *s.pending
		pending = &p
	}
	return View{
		ID:         s.ID,
		BatchID:    s.BatchID,
		State:      s.state,
		Evaluation: s.evaluateLocked(),
		Control:    s.control,
		Pending:    pending,
		Items:      items,
	}
}
