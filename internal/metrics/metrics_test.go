package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestCountersAreRegistered(t *testing.T) {
	t.Parallel()

	m := New(func() int { return 3 })
	m.Events.WithLabelValues("text", OutcomeOK).Inc()
	m.Events.WithLabelValues("text", OutcomeOK).Inc()
	m.RemindersSent.WithLabelValues("stale").Inc()

	var out dto.Metric
	if err := m.Events.WithLabelValues("text", OutcomeOK).Write(&out); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	if got := out.GetCounter().GetValue(); got != 2 {
		t.Fatalf("events counter = %v, want 2", got)
	}
	out.Reset()
	if err := m.ActiveSessions.Write(&out); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if got := out.GetGauge().GetValue(); got != 3 {
		t.Fatalf("sessions gauge = %v, want 3", got)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	t.Parallel()

	m := New(nil)
	m.ReminderErrors.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "hgbot_reminder_errors_total 1") {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
	if !strings.Contains(body, "hgbot_sessions 0") {
		t.Fatalf("metrics output missing sessions gauge")
	}
}
