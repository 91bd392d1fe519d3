package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"vigil/internal/pipeline/metrics"
	"vigil/internal/scan"
	urlscan "vigil/internal/scan/url"
	"vigil/internal/stream"
	"vigil/internal/threshold"
	dErrors "vigil/pkg/domain-errors"
)

// TextScanner is the subset of the text scanning service the worker uses.
type TextScanner interface {
	Scan(ctx context.Context, subjectType, subjectID, surface, body string) (*scan.Record, threshold.Decision, error)
}

// URLScanner is the subset of the URL scanning service the worker uses.
type URLScanner interface {
	Scan(ctx context.Context, subjectType, subjectID, rawURL string) (*scan.Record, threshold.Decision, *urlscan.Classification, error)
}

// TextScanHandler runs the text scanner over ingress event bodies and
// emits verdicts to the results stream.
type TextScanHandler struct {
	scanner   TextScanner
	transport stream.Log
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     func() time.Time
}

// NewTextScanHandler creates a text scan handler.
func NewTextScanHandler(scanner TextScanner, transport stream.Log, m *metrics.Metrics, logger *slog.Logger) *TextScanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextScanHandler{
		scanner:   scanner,
		transport: transport,
		metrics:   m,
		logger:    logger,
		clock:     time.Now,
	}
}

// Handle is the HandleFunc for the text scan worker.
func (h *TextScanHandler) Handle(ctx context.Context, entry stream.Entry) error {
	var ev IngressEvent
	if err := json.Unmarshal(entry.Payload, &ev); err != nil {
		return fmt.Errorf("decode ingress event: %w", err)
	}
	if ev.Body == "" {
		return nil
	}

	rec, decision, err := h.scanner.Scan(ctx, ev.SubjectType, ev.SubjectID, ev.Surface, ev.Body)
	if err != nil {
		return err
	}

	return emitResult(ctx, h.transport, ScanResult{
		EventID:         ev.EventID,
		SubjectType:     ev.SubjectType,
		SubjectID:       ev.SubjectID,
		Scanner:         scan.KindText,
		Scores:          rec.Scores,
		Signals:         ev.Signals,
		Status:          string(decision.Status),
		Level:           decision.Level,
		SuggestedAction: string(decision.SuggestedAction),
		CreatedAt:       h.clock().UTC(),
	})
}

// URLScanHandler resolves and classifies the URLs attached to ingress
// events, emitting one verdict per URL to the results stream.
type URLScanHandler struct {
	scanner   URLScanner
	transport stream.Log
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     func() time.Time
}

// NewURLScanHandler creates a URL scan handler.
func NewURLScanHandler(scanner URLScanner, transport stream.Log, m *metrics.Metrics, logger *slog.Logger) *URLScanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &URLScanHandler{
		scanner:   scanner,
		transport: transport,
		metrics:   m,
		logger:    logger,
		clock:     time.Now,
	}
}

// Handle is the HandleFunc for the URL scan worker. A failure on one URL
// retries the whole entry; re-emitted verdicts for earlier URLs are
// absorbed by enforcement idempotency downstream.
func (h *URLScanHandler) Handle(ctx context.Context, entry stream.Entry) error {
	var ev IngressEvent
	if err := json.Unmarshal(entry.Payload, &ev); err != nil {
		return fmt.Errorf("decode ingress event: %w", err)
	}

	for _, raw := range ev.URLs {
		rec, decision, cls, err := h.scanner.Scan(ctx, ev.SubjectType, ev.SubjectID, raw)
		if err != nil {
			return err
		}
		err = emitResult(ctx, h.transport, ScanResult{
			EventID:         ev.EventID,
			SubjectType:     ev.SubjectType,
			SubjectID:       ev.SubjectID,
			Scanner:         scan.KindURL,
			Scores:          rec.Scores,
			Signals:         ev.Signals,
			Verdict:         cls.Verdict,
			Status:          string(decision.Status),
			Level:           decision.Level,
			SuggestedAction: string(decision.SuggestedAction),
			CreatedAt:       h.clock().UTC(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// emitResult appends a scan result to the results stream. Append failures
// are retryable so the source entry is reprocessed rather than lost.
func emitResult(ctx context.Context, transport stream.Log, res ScanResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode scan result: %w", err)
	}
	if _, err := transport.Append(ctx, stream.Results, payload); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "append scan result")
	}
	return nil
}
