package handler

import (
	"context"
	"fmt"
	"io"
	"sync"

	"check-review-gateway/internal/checkapi"
	"check-review-gateway/internal/models"
)

type fakeUpstream struct {
	mu sync.Mutex

	checks  map[int]models.Check
	batches []models.Batch
	listErr error

	submitResp *models.SubmitResponse
	submitErr  error
	submits    []bool

	updates []map[string]any

	contacts *models.ContactSearchResponse

	uploadResp  *models.UploadResponse
	uploadCodes []string
	uploadBytes []byte

	events    []models.ProcessingStatus
	streamErr error

	deleted []int
}

func newFakeUpstream() *fakeUpstream {
	amount := func(v float64) *float64 { return &v }
	name := "Jane Doe"
	zip := "02139"
	return &fakeUpstream{
		checks: map[int]models.Check{
			1: {ID: 1, BatchID: 12, PageNumber: 1, Amount: amount(40), Name: &name, ZipCode: &zip},
			2: {ID: 2, BatchID: 12, PageNumber: 2, Amount: amount(60), Name: &name, ZipCode: &zip},
			3: {ID: 3, BatchID: 13, PageNumber: 1, Amount: amount(25), Name: &name, ZipCode: &zip},
		},
		batches: []models.Batch{
			{ID: 12, Filename: "march.pdf", Status: "processed", TotalChecks: 2, ExpectedAmount: amount(150)},
			{ID: 13, Filename: "april.pdf", Status: "processed", TotalChecks: 2},
		},
	}
}

func (f *fakeUpstream) GetCheck(_ context.Context, checkID int) (*models.Check, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	check, ok := f.checks[checkID]
	if !ok {
		return nil, fmt.Errorf("get check %d: %w", checkID, checkapi.ErrNotFound)
	}
	return &check, nil
}

func (f *fakeUpstream) UpdateCheck(_ context.Context, checkID int, fields map[string]any) (*models.Check, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, fields)
	check := f.checks[checkID]
	return &check, nil
}

func (f *fakeUpstream) SearchContacts(_ context.Context, _, _ string) (*models.ContactSearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contacts == nil {
		return &models.ContactSearchResponse{}, nil
	}
	return f.contacts, nil
}

func (f *fakeUpstream) SubmitBatch(_ context.Context, _ int, force bool) (*models.SubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, force)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.submitResp == nil {
		return &models.SubmitResponse{Success: true, DealsCreated: 2}, nil
	}
	return f.submitResp, nil
}

func (f *fakeUpstream) Upload(_ context.Context, _ string, file io.Reader, appealCode string) (*models.UploadResponse, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCodes = append(f.uploadCodes, appealCode)
	f.uploadBytes = data
	if f.uploadResp == nil {
		return &models.UploadResponse{Success: true, BatchID: 14, Redirect: "/review/14"}, nil
	}
	return f.uploadResp, nil
}

func (f *fakeUpstream) ListBatches(_ context.Context) ([]models.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches, f.listErr
}

func (f *fakeUpstream) FindBatch(ctx context.Context, batchID int) (*models.Batch, error) {
	batches, err := f.ListBatches(ctx)
	if err != nil {
		return nil, err
	}
	for i := range batches {
		if batches[i].ID == batchID {
			return &batches[i], nil
		}
	}
	return nil, fmt.Errorf("batch %d: %w", batchID, checkapi.ErrNotFound)
}

func (f *fakeUpstream) DeleteBatch(_ context.Context, batchID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, batchID)
	return nil
}

func (f *fakeUpstream) StreamStatus(_ context.Context, _ int, fn func(models.ProcessingStatus) bool) error {
	for _, ev := range f.events {
		if !fn(ev) || ev.Terminal() {
			return nil
		}
	}
	return f.streamErr
}

func (f *fakeUpstream) submitCalls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.submits...)
}

func (f *fakeUpstream) updateCalls() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.updates...)
}
