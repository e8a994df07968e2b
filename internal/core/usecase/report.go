package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/invoice-totals/internal/core/ports"
)

const (
	defaultReportLimit = 100
	maxReportLimit     = 1000
)

type ReportUseCase struct {
	repo   ports.DocumentRepository
	writer ports.ReportWriter
}

func NewReportUseCase(repo ports.DocumentRepository, writer ports.ReportWriter) *ReportUseCase {
	return &ReportUseCase{repo: repo, writer: writer}
}

func (uc *ReportUseCase) WriteInvoiceReport(ctx context.Context, w io.Writer, limit int) error {
	docs, err := uc.repo.ListRecent(ctx, normalizeReportLimit(limit))
	if err != nil {
		return fmt.Errorf("list recent documents: %w", err)
	}
	if err := uc.writer.WriteInvoices(w, docs); err != nil {
		return fmt.Errorf("write invoice report: %w", err)
	}
	return nil
}

func normalizeReportLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultReportLimit
	case limit > maxReportLimit:
		return maxReportLimit
	default:
		return limit
	}
}
