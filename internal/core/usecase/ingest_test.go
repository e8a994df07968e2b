package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

type ingestRepoFake struct {
	created *domain.Document
	err     error
}

func (f *ingestRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.err != nil {
		return f.err
	}
	copyDoc := *doc
	f.created = &copyDoc
	return nil
}

func (f *ingestRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	return nil, errors.New("not implemented")
}
func (f *ingestRepoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return errors.New("not implemented")
}
func (f *ingestRepoFake) SaveAnalysis(context.Context, string, *domain.Analysis) error {
	return errors.New("not implemented")
}
func (f *ingestRepoFake) ListRecent(context.Context, int) ([]domain.Document, error) {
	return nil, errors.New("not implemented")
}

type ingestStorageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *ingestStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *ingestStorageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type ingestQueueFake struct {
	documentID string
	err        error
}

func (f *ingestQueueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.documentID = documentID
	return nil
}

func (f *ingestQueueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func TestIngestUploadSuccess(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "invoice 1.pdf", "application/pdf", bytes.NewBufferString("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected document id")
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("expected status uploaded, got %s", doc.Status)
	}
	if repo.created == nil {
		t.Fatalf("expected repo.Create call")
	}
	if queue.documentID != doc.ID {
		t.Fatalf("expected queued doc id %s, got %s", doc.ID, queue.documentID)
	}
	if !strings.Contains(storage.savedKey, "_invoice_1.pdf") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "%PDF-1.4" {
		t.Fatalf("expected saved pdf body, got %s", storage.savedBody)
	}
}

func TestIngestUploadQueueError(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{err: errors.New("queue down")}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	_, err := uc.Upload(context.Background(), "invoice.txt", "text/plain", bytes.NewBufferString("TOTAL 1.00"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish ingestion event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestIngestUploadRequiresFilename(t *testing.T) {
	repo := &ingestRepoFake{}
	uc := NewIngestDocumentUseCase(repo, &ingestStorageFake{}, &ingestQueueFake{})

	_, err := uc.Upload(context.Background(), "  ", "text/plain", bytes.NewBufferString("TOTAL 1.00"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if repo.created != nil {
		t.Fatalf("expected no repo.Create call")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd":  "passwd",
		"Sysco Invoice.pdf": "Sysco_Invoice.pdf",
		"счёт.pdf":          "____.pdf",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIngestUploadDetectsMimeTypeFromContent(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		body     string
		want     string
	}{
		{name: "pdf sent as octet stream", declared: "application/octet-stream", body: "%PDF-1.7\n...", want: "application/pdf"},
		{name: "text sent as pdf", declared: "application/pdf", body: "INVOICE 42\nTOTAL 10.00", want: "text/plain"},
		{name: "text without declared type", declared: "", body: "Счёт TOTAL 10.00", want: "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &ingestRepoFake{}
			storage := &ingestStorageFake{}
			uc := NewIngestDocumentUseCase(repo, storage, &ingestQueueFake{})

			doc, err := uc.Upload(context.Background(), "invoice", tt.declared, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("Upload() error = %v", err)
			}
			if doc.MimeType != tt.want || repo.created.MimeType != tt.want {
				t.Fatalf("MimeType = %q, want %q", doc.MimeType, tt.want)
			}
			if storage.savedBody != tt.body {
				t.Fatalf("stored body = %q, want %q", storage.savedBody, tt.body)
			}
		})
	}
}

func TestIngestUploadRejectsUnsupportedContent(t *testing.T) {
	bodies := map[string][]byte{
		"png":        {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00, 0x00},
		"empty":      {},
		"whitespace": []byte(" \n\t "),
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			repo := &ingestRepoFake{}
			storage := &ingestStorageFake{}
			queue := &ingestQueueFake{}
			uc := NewIngestDocumentUseCase(repo, storage, queue)

			_, err := uc.Upload(context.Background(), "scan.png", "image/png", bytes.NewReader(body))
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if storage.savedKey != "" || repo.created != nil || queue.documentID != "" {
				t.Fatalf("rejected upload must not be stored, recorded or queued")
			}
		})
	}
}

func TestIsTextHeadToleratesCutRune(t *testing.T) {
	head := []byte("TOTAL 10.00 ё")
	if !isTextHead(head[:len(head)-1]) {
		t.Fatalf("expected text with a truncated trailing rune to be accepted")
	}
	if isTextHead([]byte{0xff, 0xfe, 0xfd, 0xfc, 'a'}) {
		t.Fatalf("expected invalid UTF-8 to be rejected")
	}
}
