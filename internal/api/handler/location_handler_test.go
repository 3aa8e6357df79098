package handler

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/shiptrack/tracking-system/internal/core/ports"
)

type recordingQueue struct {
	reports []ports.LocationReport
}

func (q *recordingQueue) Enqueue(report ports.LocationReport) {
	q.reports = append(q.reports, report)
}

func TestLocationHandler_Report_Accepted(t *testing.T) {
	q := &recordingQueue{}
	h := NewLocationHandler(q)

	c, rec := newTestContext(t, http.MethodPost, "/api/v1/locations",
		`{"tracking_numbers":["ST-0001","ST-0002"],"latitude":52.37,"longitude":4.89}`)
	c.Set("username", "driver7")

	if err := h.Report(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	if len(q.reports) != 1 {
		t.Fatalf("got %d enqueued reports, want 1", len(q.reports))
	}
	report := q.reports[0]
	if len(report.TrackingNumbers) != 2 {
		t.Errorf("tracking numbers = %v", report.TrackingNumbers)
	}
	if report.DriverID != "driver7" {
		t.Errorf("driver id = %q, want identity from auth claims", report.DriverID)
	}
	if report.Position.Lat != 52.37 || report.Position.Lng != 4.89 {
		t.Errorf("position = %+v", report.Position)
	}
	if report.ObservedAt.IsZero() {
		t.Error("observed_at not stamped")
	}
}

func TestLocationHandler_Report_MissingCoordinates(t *testing.T) {
	q := &recordingQueue{}
	h := NewLocationHandler(q)

	c, _ := newTestContext(t, http.MethodPost, "/api/v1/locations",
		`{"tracking_numbers":["ST-0001"]}`)

	err := h.Report(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("err = %v, want 422", err)
	}
	if len(q.reports) != 0 {
		t.Fatal("invalid report must not be enqueued")
	}
}

func TestLocationHandler_Report_EmptyTrackingNumbers(t *testing.T) {
	q := &recordingQueue{}
	h := NewLocationHandler(q)

	c, _ := newTestContext(t, http.MethodPost, "/api/v1/locations",
		`{"tracking_numbers":[],"latitude":52.37,"longitude":4.89}`)

	err := h.Report(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("err = %v, want 422", err)
	}
}
