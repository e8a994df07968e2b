package ports

import (
	"context"
	"io"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveAnalysis(ctx context.Context, id string, analysis *domain.Analysis) error
	ListRecent(ctx context.Context, limit int) ([]domain.Document, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// PlainTextExtractor decodes documents that are already text.
type PlainTextExtractor interface {
	ExtractPlain(ctx context.Context, raw []byte) (string, error)
}

// DirectTextExtractor reads the embedded text layer of a PDF.
type DirectTextExtractor interface {
	ExtractDirect(ctx context.Context, raw []byte) (string, error)
}

// LayoutTextExtractor rebuilds lines from positioned glyphs.
type LayoutTextExtractor interface {
	ExtractLayout(ctx context.Context, raw []byte) (string, error)
}

// PageCounter reports the number of pages in a PDF.
type PageCounter interface {
	PageCount(ctx context.Context, raw []byte) (int, error)
}

// OCRExtractor renders one page (1-based) and recognizes its text.
// Implementations return domain.ErrToolUnavailable when the OCR toolchain
// is not installed.
type OCRExtractor interface {
	RecognizePage(ctx context.Context, raw []byte, page int) (string, error)
}

// AnalysisObserver receives every completed analysis.
type AnalysisObserver interface {
	ObserveAnalysis(analysis *domain.Analysis)
}

// ReportWriter encodes documents into a report file.
type ReportWriter interface {
	WriteInvoices(w io.Writer, docs []domain.Document) error
}
