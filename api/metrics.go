package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	notificationsEventName   = "insights.notifications.request"
	notificationsEventDomain = "insights"
	notificationsRoute       = "/api/insights/notifications"
)

// notificationsRequestMetrics captures per-stage timings of a notifications
// request and emits one observability event plus one span per request.
type notificationsRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	authDuration     time.Duration
	generateDuration time.Duration
	encodeDuration   time.Duration
	returned         int
	errorStage       string
}

func newNotificationsRequestMetrics(ctx context.Context, logger *log.Logger) (*notificationsRequestMetrics, context.Context) {
	m := &notificationsRequestMetrics{logger: logger, start: time.Now()}
	spanCtx, span := otel.Tracer("insights-engine/api").Start(ctx, notificationsEventName)
	m.span = span
	return m, spanCtx
}

func (m *notificationsRequestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *notificationsRequestMetrics) ObserveGenerate(d time.Duration) {
	if d > 0 {
		m.generateDuration = d
	}
}

func (m *notificationsRequestMetrics) ObserveEncode(d time.Duration) {
	if d > 0 {
		m.encodeDuration = d
	}
}

func (m *notificationsRequestMetrics) SetReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.returned = count
}

func (m *notificationsRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

func (m *notificationsRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	totalMs := durationToMillis(time.Since(m.start))
	attrs := map[string]any{
		"http.route":                      notificationsRoute,
		"http.status_code":                status,
		"insights.notifications.total_ms": totalMs,
		"insights.notifications.returned": m.returned,
	}
	if m.authDuration > 0 {
		attrs["insights.notifications.auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.generateDuration > 0 {
		attrs["insights.notifications.generate_ms"] = durationToMillis(m.generateDuration)
	}
	if m.encodeDuration > 0 {
		attrs["insights.notifications.encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		attrs["insights.notifications.error_stage"] = m.errorStage
	}

	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("http.route", notificationsRoute),
			attribute.Int("http.status_code", status),
			attribute.Float64("insights.notifications.total_ms", totalMs),
			attribute.Int("insights.notifications.returned", m.returned),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("insights.notifications.error_stage", m.errorStage))
		}
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	severity := "INFO"
	if err != nil || m.errorStage != "" {
		severity = "WARN"
	}
	fields := log.Fields{
		"event.name":    notificationsEventName,
		"event.domain":  notificationsEventDomain,
		"attributes":    attrs,
		"severity_text": severity,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.logger.WithFields(fields).Info("observability.event")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
