package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
	"github.com/nats-io/nats.go"
)

func TestEventRoundTrip(t *testing.T) {
	payload, err := encodeEvent("doc-42", time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}
	id, err := decodeEvent(payload)
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if id != "doc-42" {
		t.Fatalf("unexpected id: %q", id)
	}
}

func TestEncodeEventRejectsEmptyID(t *testing.T) {
	if _, err := encodeEvent("  ", time.Now()); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDecodeEventRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"doc-42", `{"document_id":""}`} {
		if _, err := decodeEvent([]byte(raw)); err == nil {
			t.Fatalf("decodeEvent(%q) expected error", raw)
		}
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded(fmt.Errorf("nats publish: %w", nats.ErrNoServers))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}

	permanent := errors.New("bad subject")
	if got := wrapTemporaryIfNeeded(permanent); domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("permanent error must not be temporary: %v", got)
	}

	if class := classifyNATSError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("canceled publish must not retry: %+v", class)
	}
}
