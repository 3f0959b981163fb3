package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dpo-global/issuance-backend/internal/ingest"
	pkgerrors "github.com/dpo-global/issuance-backend/pkg/errors"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

type testDispatcher struct {
	dispatchFn func(ctx context.Context, raw []byte) error
}

func (t *testDispatcher) Dispatch(ctx context.Context, raw []byte) error {
	if t.dispatchFn != nil {
		return t.dispatchFn(ctx, raw)
	}
	return nil
}

func TestIngestLedgerEventApplies(t *testing.T) {
	var seen []byte
	dispatcher := &testDispatcher{
		dispatchFn: func(_ context.Context, raw []byte) error {
			seen = raw
			return nil
		},
	}
	handler := IngestLedgerEvent(dispatcher, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	body := `{"event":"UnitsIssued","offering":"REGD-2026-01","amount":"500"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/ledger/events", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if string(seen) != body {
		t.Fatalf("dispatcher received %q", string(seen))
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["status"] != "applied" || envelope.Data["event"] != "UnitsIssued" {
		t.Fatalf("unexpected body %v", envelope.Data)
	}
}

func TestIngestLedgerEventAcknowledgesUnknown(t *testing.T) {
	dispatcher := &testDispatcher{
		dispatchFn: func(context.Context, []byte) error {
			return ingest.ErrUnknownEvent
		},
	}
	handler := IngestLedgerEvent(dispatcher, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	req := httptest.NewRequest(http.MethodPost, "/v1/ledger/events", strings.NewReader(`{"event":"DividendDeclared"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["status"] != "ignored" {
		t.Fatalf("expected ignored got %q", envelope.Data["status"])
	}
	if envelope.Data["event"] != "DividendDeclared" {
		t.Fatalf("unexpected event %q", envelope.Data["event"])
	}
}

func TestIngestLedgerEventRejectsEmptyBody(t *testing.T) {
	handler := IngestLedgerEvent(&testDispatcher{}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	req := httptest.NewRequest(http.MethodPost, "/v1/ledger/events", strings.NewReader(""))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestIngestLedgerEventSurfacesDispatchError(t *testing.T) {
	dispatcher := &testDispatcher{
		dispatchFn: func(context.Context, []byte) error {
			return pkgerrors.New(pkgerrors.CodeValidation, "commitment amount must be a non-negative integer")
		},
	}
	handler := IngestLedgerEvent(dispatcher, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	req := httptest.NewRequest(http.MethodPost, "/v1/ledger/events", strings.NewReader(`{"event":"CommitmentRecorded","amount":"-1"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestIngestLedgerEventNilDispatcher(t *testing.T) {
	handler := IngestLedgerEvent(nil, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	req := httptest.NewRequest(http.MethodPost, "/v1/ledger/events", strings.NewReader(`{"event":"UnitsIssued"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
