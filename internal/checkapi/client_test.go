package checkapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"check-review-gateway/internal/models"
)

func TestClient_GetCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/check/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":7,"batch_id":3,"page_number":2,"amount":12.5,"name":"Jane Doe","zip_code":"02139","needs_review":true}`)
	}))
	defer server.Close()

	check, err := NewClient(server.URL).GetCheck(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, check.ID)
	assert.Equal(t, 3, check.BatchID)
	require.NotNil(t, check.Amount)
	assert.InDelta(t, 12.5, *check.Amount, 1e-9)
	assert.Equal(t, "Jane Doe", models.Str(check.Name))
	assert.True(t, check.NeedsReview)
}

func TestClient_GetCheck_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"Check not found"}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).GetCheck(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_UpdateCheck_SendsPartialBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"hubspot_contact_id": "c-1", "needs_review": false}, body)

		_, _ = io.WriteString(w, `{"id":4,"hubspot_contact_id":"c-1","needs_review":false}`)
	}))
	defer server.Close()

	check, err := NewClient(server.URL).UpdateCheck(context.Background(), 4, map[string]any{
		"hubspot_contact_id": "c-1",
		"needs_review":       false,
	})
	require.NoError(t, err)
	assert.Equal(t, "c-1", models.Str(check.HubspotContactID))
	assert.False(t, check.NeedsReview)
}

func TestClient_UpdateCheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"database unavailable"}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).UpdateCheck(context.Background(), 4, map[string]any{"name": "x"})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "database unavailable", statusErr.Message)
}

func TestClient_SearchContacts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search_contacts", r.URL.Path)
		assert.Equal(t, "Jane O'Doe", r.URL.Query().Get("name"))
		assert.Equal(t, "02139", r.URL.Query().Get("zip"))
		_, _ = io.WriteString(w, `{"contacts":[{"id":"1","name":"Jane O'Doe","zip":"02139","confidence":0.93}]}`)
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).SearchContacts(context.Background(), "Jane O'Doe", "02139")
	require.NoError(t, err)
	require.Len(t, resp.Contacts, 1)
	assert.Equal(t, "1", resp.Contacts[0].ID)
	assert.InDelta(t, 0.93, resp.Contacts[0].Confidence, 1e-9)
	assert.Empty(t, resp.Error)
}

func TestClient_SearchContacts_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"HubSpot not configured"}`)
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).SearchContacts(context.Background(), "x", "")
	require.NoError(t, err)
	assert.Equal(t, "HubSpot not configured", resp.Error)
}

func TestClient_SubmitBatch_Unforced_NoBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/submit/12", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		assert.Empty(t, r.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"success":true,"deals_created":5,"errors":[]}`)
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).SubmitBatch(context.Background(), 12, false)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 5, resp.DealsCreated)
	assert.Empty(t, resp.Errors)
}

func TestClient_SubmitBatch_Forced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"force_submit": true}, body)
		_, _ = io.WriteString(w, `{"success":true,"deals_created":1,"errors":["Check #3: Missing amount"]}`)
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).SubmitBatch(context.Background(), 12, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Check #3: Missing amount"}, resp.Errors)
}

func TestClient_SubmitBatch_LogicalFailureIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"Batch not found"}`)
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).SubmitBatch(context.Background(), 12, false)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Batch not found", resp.Error)
}

func TestClient_SubmitBatch_TransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>gateway timeout</html>`)
	}))

	_, err := NewClient(server.URL).SubmitBatch(context.Background(), 1, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse json")

	server.Close()
	_, err = NewClient(server.URL).SubmitBatch(context.Background(), 1, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http request")
}

func TestClient_Upload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}

		file, header, err := r.FormFile("pdf_file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)

		assert.Equal(t, "scan.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4", string(content))
		assert.Equal(t, "035", r.FormValue("appeal_code"))

		_, _ = io.WriteString(w, `{"success":true,"batch_id":8,"redirect":"/processing/8"}`)
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Upload(context.Background(), "/tmp/scan.pdf", strings.NewReader("%PDF-1.4"), "035")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 8, resp.BatchID)
	assert.Equal(t, "/processing/8", resp.Redirect)
}

func TestClient_ListAndFindBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/batches", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":1,"filename":"a.pdf","appeal_code":"020","status":"ready","total_checks":3,"expected_amount":150.25},{"id":2,"filename":"b.pdf","appeal_code":"035","status":"processing","expected_amount":null}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	batches, err := client.ListBatches(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Nil(t, batches[1].ExpectedAmount)

	batch, err := client.FindBatch(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, batch.ExpectedAmount)
	assert.InDelta(t, 150.25, *batch.ExpectedAmount, 1e-9)

	_, err = client.FindBatch(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_DeleteBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/batch/5", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer server.Close()

	require.NoError(t, NewClient(server.URL).DeleteBatch(context.Background(), 5))
}

func TestClient_StreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/status/9", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		events := []models.ProcessingStatus{
			{Status: "converting", Message: "Converting PDF to images..."},
			{Status: "processing", CurrentPage: 1, TotalPages: 2, ChecksFound: 1},
			{Status: "complete", TotalPages: 2, ChecksFound: 2, Message: "Processing complete!"},
			{Status: "unreachable"},
		}
		for _, ev := range events {
			data, _ := json.Marshal(ev)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		}
	}))
	defer server.Close()

	var seen []string
	err := NewClient(server.URL).StreamStatus(context.Background(), 9, func(s models.ProcessingStatus) bool {
		seen = append(seen, s.Status)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"converting", "processing", "complete"}, seen)
}

func TestClient_StreamStatus_StopEarly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "data: {\"status\":\"converting\"}\n\ndata: {\"status\":\"processing\"}\n\n")
	}))
	defer server.Close()

	calls := 0
	err := NewClient(server.URL).StreamStatus(context.Background(), 1, func(models.ProcessingStatus) bool {
		calls++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("batch.pdf"))
	assert.True(t, IsPDF("scans/BATCH.PDF"))
	assert.False(t, IsPDF("batch.pdf.txt"))
	assert.False(t, IsPDF("batch"))
}
