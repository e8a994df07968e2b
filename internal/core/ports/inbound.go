package ports

import (
	"context"
	"io"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

// DocumentIngestor is the inbound contract for invoice upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// InvoiceAnalyzer runs acquisition, vendor classification, totals extraction
// and total selection synchronously.
type InvoiceAnalyzer interface {
	Analyze(ctx context.Context, in domain.AnalysisInput) (*domain.Analysis, error)
}

// ReportService renders recent analyses as a spreadsheet.
type ReportService interface {
	WriteInvoiceReport(ctx context.Context, w io.Writer, limit int) error
}
