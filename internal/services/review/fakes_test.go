package review

import (
	"context"
	"errors"
	"sync"

	"check-review-gateway/internal/models"
)

type submitCall struct {
	BatchID int
	Force   bool
}

type updateCall struct {
	CheckID int
	Fields  map[string]any
}

type fakeBackend struct {
	mu sync.Mutex

	submitResp *models.SubmitResponse
	submitErr  error
	submits    []submitCall

	updateErr error
	updates   []updateCall

	searchResp *models.ContactSearchResponse
	searchErr  error
	searches   [][2]string
}

func (f *fakeBackend) UpdateCheck(_ context.Context, checkID int, fields map[string]any) (*models.Check, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{CheckID: checkID, Fields: fields})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &models.Check{ID: checkID}, nil
}

func (f *fakeBackend) SearchContacts(_ context.Context, name, zip string) (*models.ContactSearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, [2]string{name, zip})
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchResp == nil {
		return &models.ContactSearchResponse{}, nil
	}
	return f.searchResp, nil
}

func (f *fakeBackend) SubmitBatch(_ context.Context, batchID int, force bool) (*models.SubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, submitCall{BatchID: batchID, Force: force})
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.submitResp == nil {
		return &models.SubmitResponse{Success: true}, nil
	}
	return f.submitResp, nil
}

func (f *fakeBackend) submitCalls() []submitCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submitCall(nil), f.submits...)
}

func (f *fakeBackend) updateCalls() []updateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]updateCall(nil), f.updates...)
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:5000: connect: connection refused")

type memoryAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (m *memoryAudit) RecordSubmission(_ context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryAudit) all() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEntry(nil), m.entries...)
}

func amountPtr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func checksWithAmounts(amounts ...float64) []models.Check {
	checks := make([]models.Check, 0, len(amounts))
	for i, a := range amounts {
		checks = append(checks, models.Check{
			ID:         100 + i,
			PageNumber: i + 1,
			Amount:     amountPtr(a),
			Name:       strPtr("Donor"),
			ZipCode:    strPtr("02139"),
		})
	}
	return checks
}
