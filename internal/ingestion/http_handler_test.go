package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rs/zerolog"
)

func multipartUpload(t *testing.T, target string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := writer.CreateFormFile(formField, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req.WithContext(sessionContext(tenantA, false))
}

func TestHandlerIngestsUploadedFiles(t *testing.T) {
	var calls []string
	store := &stubStore{calls: &calls}
	handler := NewHTTPHandler(NewService(store, &stubLedger{calls: &calls}, nil, nil, zerolog.Nop()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, multipartUpload(t, "/api/ingest", map[string]string{
		"one.xml": fmt.Sprintf(validDocument, "1"),
		"bad.xml": "not xml at all <",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.ParsedDocuments != 1 || summary.FailedDocuments != 1 || summary.TenantRowsWritten != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Tenant != tenantA {
		t.Fatalf("expected tenant from session, got %s", summary.Tenant)
	}
}

func TestHandlerPreviewDoesNotPersist(t *testing.T) {
	var calls []string
	handler := NewHTTPHandler(NewService(&stubStore{calls: &calls}, &stubLedger{calls: &calls}, nil, nil, zerolog.Nop()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, multipartUpload(t, "/api/ingest?preview=true", map[string]string{"one.xml": fmt.Sprintf(validDocument, "1")}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(calls) != 0 {
		t.Fatalf("expected no writes, got %v", calls)
	}
}

func TestHandlerLedgerFailureReturnsPartialSummary(t *testing.T) {
	var calls []string
	ledger := &stubLedger{calls: &calls, err: fmt.Errorf("%w: timeout", domain.ErrStorageFailure)}
	handler := NewHTTPHandler(NewService(&stubStore{calls: &calls}, ledger, nil, nil, zerolog.Nop()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, multipartUpload(t, "/api/ingest", map[string]string{"one.xml": fmt.Sprintf(validDocument, "1")}))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body struct {
		Error   string  `json:"error"`
		Summary Summary `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Summary.TenantRowsWritten != 1 {
		t.Fatalf("expected committed tenant rows in body, got %+v", body.Summary)
	}
}

func TestHandlerRejectsInvalidTenant(t *testing.T) {
	var calls []string
	handler := NewHTTPHandler(NewService(&stubStore{calls: &calls}, &stubLedger{calls: &calls}, nil, nil, zerolog.Nop()))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("tenant", "cte; DROP TABLE x")
	part, _ := writer.CreateFormFile(formField, "one.xml")
	_, _ = part.Write([]byte(fmt.Sprintf(validDocument, "1")))
	_ = writer.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = req.WithContext(sessionContext(tenantA, true))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(calls) != 0 {
		t.Fatalf("expected no writes, got %v", calls)
	}
}

func TestHandlerRequiresFiles(t *testing.T) {
	var calls []string
	handler := NewHTTPHandler(NewService(&stubStore{calls: &calls}, &stubLedger{calls: &calls}, nil, nil, zerolog.Nop()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, multipartUpload(t, "/api/ingest", map[string]string{}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
