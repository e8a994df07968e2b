package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/invoice-totals/internal/config"
	"github.com/kirillkom/invoice-totals/internal/core/domain"
	"github.com/kirillkom/invoice-totals/internal/core/ports"
	"github.com/kirillkom/invoice-totals/internal/observability/metrics"
)

const (
	serviceName         = "api"
	defaultUploadLimit  = 32 << 20
	defaultAnalyzeLimit = 2 << 20
	analyzeEnvelope     = 256 << 10
)

type Router struct {
	cfg      config.Config
	ingest   ports.DocumentIngestor
	analyzer ports.InvoiceAnalyzer
	docs     ports.DocumentReader
	reports  ports.ReportService
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
}

// NewRouter accepts nil collaborators; their endpoints answer 503.
func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	analyzer ports.InvoiceAnalyzer,
	docs ports.DocumentReader,
	reports ports.ReportService,
) *Router {
	return &Router{
		cfg:      cfg,
		ingest:   ingest,
		analyzer: analyzer,
		docs:     docs,
		reports:  reports,
		logger:   slog.Default(),
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) WithLogger(logger *slog.Logger) *Router {
	if logger != nil {
		rt.logger = logger
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/invoices", rt.uploadInvoice)
	api.HandleFunc("GET /v1/invoices/{id}", rt.getInvoiceByID)
	api.HandleFunc("POST /v1/analyze", rt.analyzeText)
	api.HandleFunc("GET /v1/reports/invoices.xlsx", rt.invoiceReport)

	var limited http.Handler = api
	limited = backpressureMiddleware(limited, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWait, rt.recordRejected)
	limited = rateLimitMiddleware(limited, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.recordRejected)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", limited)

	var h http.Handler = mux
	if rt.metrics != nil {
		h = rt.metrics.Middleware(serviceName, h)
	}
	h = accessLogMiddleware(rt.logger, h)
	return requestIDMiddleware(h)
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadInvoice(w http.ResponseWriter, r *http.Request) {
	if rt.ingest == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ingestion is not configured"})
		return
	}

	limit := rt.cfg.APIMaxUploadBytes
	if limit <= 0 {
		limit = defaultUploadLimit
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file exceeds upload limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, fileHeader.Size)
	}

	doc, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getInvoiceByID(w http.ResponseWriter, r *http.Request) {
	if rt.docs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "invoice store is not configured"})
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invoice id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type analyzeRequest struct {
	Text             string            `json:"text"`
	LineItems        []domain.LineItem `json:"line_items"`
	VendorTotalCents domain.Cents      `json:"vendor_total_cents"`
}

func (rt *Router) analyzeText(w http.ResponseWriter, r *http.Request) {
	if rt.analyzer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analyzer is not configured"})
		return
	}

	limit := rt.cfg.APIAnalyzeMaxTextBytes
	if limit <= 0 {
		limit = defaultAnalyzeLimit
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(limit+analyzeEnvelope)))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read request body"})
		return
	}

	if err := validateAnalyzeRequest(raw); err != nil {
		rt.writeError(w, r, err)
		return
	}
	var req analyzeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Text) > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "text exceeds limit"})
		return
	}

	analysis, err := rt.analyzer.Analyze(r.Context(), domain.AnalysisInput{
		Text:             req.Text,
		LineItems:        req.LineItems,
		VendorTotalCents: req.VendorTotalCents,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (rt *Router) invoiceReport(w http.ResponseWriter, r *http.Request) {
	if rt.reports == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "reports are not configured"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	var buf bytes.Buffer
	if err := rt.reports.WriteInvoiceReport(r.Context(), &buf, limit); err != nil {
		rt.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
