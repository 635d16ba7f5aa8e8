package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"gmaps-scraper/internal/logging"
	"gmaps-scraper/internal/logging/adapters"
	"gmaps-scraper/pkg/models"
)

// recorder is a webhook endpoint that keeps every request body
type recorder struct {
	mu       sync.Mutex
	bodies   [][]byte
	ctypes   []string
	statusOf func(n int) int // status for the n-th request (1-based)
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	r.bodies = append(r.bodies, body)
	r.ctypes = append(r.ctypes, req.Header.Get("Content-Type"))
	n := len(r.bodies)
	r.mu.Unlock()

	status := http.StatusOK
	if r.statusOf != nil {
		status = r.statusOf(n)
	}
	w.WriteHeader(status)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func newTestClient(t *testing.T) (*Client, *[]time.Duration) {
	t.Helper()

	c := NewClient(&ClientConfig{Timeout: 2 * time.Second, IndividualDelay: 100 * time.Millisecond}, logging.NewMultiLogger())
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) { sleeps = append(sleeps, d) }
	return c, &sleeps
}

func sampleRecords(n int) models.ResultSet {
	records := models.ResultSet{}
	for i := 0; i < n; i++ {
		records = append(records, models.Record{
			"title":      fmt.Sprintf("Cafe %d", i),
			"address":    fmt.Sprintf("%d Main St", i),
			"totalScore": 4.5,
		})
	}
	return records
}

func TestBulk_OnePostWithWholeSet(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		rec := &recorder{}
		srv := httptest.NewServer(rec)

		c, _ := newTestClient(t)
		records := sampleRecords(n)

		outcome := c.Deliver(context.Background(), records, srv.URL, models.DeliveryModeBulk)
		srv.Close()

		if !outcome.Success {
			t.Fatalf("n=%d: outcome = %+v", n, outcome)
		}
		if want := fmt.Sprintf("Successfully sent %d records in bulk to webhook", n); outcome.Message != want {
			t.Errorf("n=%d: message = %q, want %q", n, outcome.Message, want)
		}
		if rec.count() != 1 {
			t.Fatalf("n=%d: %d POSTs, want 1", n, rec.count())
		}
		if rec.ctypes[0] != "application/json" {
			t.Errorf("Content-Type = %q", rec.ctypes[0])
		}

		var payload models.BulkPayload
		if err := json.Unmarshal(rec.bodies[0], &payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload.TotalResults != n {
			t.Errorf("total_results = %d, want %d", payload.TotalResults, n)
		}
		if !reflect.DeepEqual(payload.Data, records) {
			t.Errorf("data = %v, want %v", payload.Data, records)
		}
		if payload.Timestamp != "2024-05-01T12:00:00Z" {
			t.Errorf("timestamp = %q", payload.Timestamp)
		}
	}
}

func TestBulk_EmptySetSendsEmptyList(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c, _ := newTestClient(t)
	c.Bulk(context.Background(), nil, srv.URL)

	if !strings.Contains(string(rec.bodies[0]), `"data":[]`) {
		t.Errorf("body = %s, want an empty data list", rec.bodies[0])
	}
}

func TestBulk_NonSuccessStatusFails(t *testing.T) {
	rec := &recorder{statusOf: func(int) int { return http.StatusInternalServerError }}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c, _ := newTestClient(t)
	outcome := c.Deliver(context.Background(), sampleRecords(3), srv.URL, models.DeliveryModeBulk)

	if outcome.Success {
		t.Fatal("expected failure")
	}
	if !strings.HasPrefix(outcome.Message, "Webhook error: ") || !strings.Contains(outcome.Message, "500") {
		t.Errorf("message = %q", outcome.Message)
	}
	if rec.count() != 1 {
		t.Errorf("%d POSTs, want exactly 1", rec.count())
	}
}

func TestBulk_TimeoutFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c, _ := newTestClient(t)
	c.timeout = 20 * time.Millisecond

	outcome := c.Bulk(context.Background(), sampleRecords(1), srv.URL)
	if outcome.Success {
		t.Fatal("expected failure on timeout")
	}
	if !strings.Contains(outcome.Message, "deadline exceeded") {
		t.Errorf("message = %q, want the timeout cause", outcome.Message)
	}
}

func TestBulk_UnreachableURLFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := newTestClient(t)
	outcome := c.Bulk(context.Background(), sampleRecords(1), url)
	if outcome.Success || !strings.HasPrefix(outcome.Message, "Webhook error: ") {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestIndividual_OnePostPerRecord(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c, sleeps := newTestClient(t)
	records := sampleRecords(4)

	outcome := c.Deliver(context.Background(), records, srv.URL, models.DeliveryModeIndividual)

	if !outcome.Success || outcome.Message != "Successfully sent all 4 records individually to webhook" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if rec.count() != 4 {
		t.Fatalf("%d POSTs, want 4", rec.count())
	}
	for i, body := range rec.bodies {
		var payload models.IndividualPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		if payload.RecordNumber != i+1 || payload.TotalRecords != 4 {
			t.Errorf("payload %d: record_number=%d total_records=%d", i, payload.RecordNumber, payload.TotalRecords)
		}
		if payload.Data.Title() != records[i].Title() {
			t.Errorf("payload %d: data = %v", i, payload.Data)
		}
	}

	if len(*sleeps) != 3 {
		t.Errorf("%d pauses, want 3", len(*sleeps))
	}
	for _, d := range *sleeps {
		if d != 100*time.Millisecond {
			t.Errorf("pause = %v, want 100ms", d)
		}
	}
}

func TestIndividual_EmptySetSendsNothing(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c, _ := newTestClient(t)
	outcome := c.Individual(context.Background(), models.ResultSet{}, srv.URL)

	if rec.count() != 0 {
		t.Errorf("%d POSTs, want 0", rec.count())
	}
	if !outcome.Success || outcome.Sent != 0 || outcome.Failed != 0 {
		t.Errorf("outcome = %+v", outcome)
	}
	if outcome.Message != "Successfully sent all 0 records individually to webhook" {
		t.Errorf("message = %q", outcome.Message)
	}
}

func TestIndividual_PartialFailureContinues(t *testing.T) {
	rec := &recorder{statusOf: func(n int) int {
		if n == 2 {
			return http.StatusBadGateway
		}
		return http.StatusAccepted
	}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c, _ := newTestClient(t)
	outcome := c.Individual(context.Background(), sampleRecords(3), srv.URL)

	if rec.count() != 3 {
		t.Fatalf("%d POSTs, want 3", rec.count())
	}
	if !outcome.Success {
		t.Error("individual delivery reported overall failure")
	}
	if outcome.Message != "Sent 2 records successfully, 1 failed" {
		t.Errorf("message = %q", outcome.Message)
	}
	if outcome.Sent != 2 || outcome.Failed != 1 {
		t.Errorf("counts = %d/%d", outcome.Sent, outcome.Failed)
	}
}

func TestIndividual_AllFailStillSucceeds(t *testing.T) {
	rec := &recorder{statusOf: func(int) int { return http.StatusNotFound }}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c, _ := newTestClient(t)
	outcome := c.Individual(context.Background(), sampleRecords(2), srv.URL)

	if !outcome.Success || outcome.Message != "Sent 0 records successfully, 2 failed" {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestBulkPayload_RoundTripKeepsOrder(t *testing.T) {
	records := models.ResultSet{
		{"title": "Zeta", "phone": "+1 555"},
		{"title": "Alpha", "website": nil},
		{"title": "Mu", "reviewsCount": 12.0, "open": true},
	}

	data, err := json.Marshal(models.BulkPayload{Timestamp: "t", TotalResults: len(records), Data: records})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded models.BulkPayload
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(decoded.Data, records) {
		t.Errorf("round trip = %v, want %v", decoded.Data, records)
	}
}

func TestDeliver_UnknownMode(t *testing.T) {
	c, _ := newTestClient(t)
	outcome := c.Deliver(context.Background(), sampleRecords(1), "http://127.0.0.1:1", "carrier-pigeon")
	if outcome.Success {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestBulk_RedirectionStatusDelivers(t *testing.T) {
	for _, status := range []int{http.StatusMultipleChoices, http.StatusNotModified} {
		rec := &recorder{statusOf: func(int) int { return status }}
		srv := httptest.NewServer(rec)

		c, _ := newTestClient(t)
		outcome := c.Deliver(context.Background(), sampleRecords(2), srv.URL, models.DeliveryModeBulk)
		srv.Close()

		if !outcome.Success {
			t.Errorf("status %d: outcome = %+v, want success", status, outcome)
		}
		if outcome.Message != "Successfully sent 2 records in bulk to webhook" {
			t.Errorf("status %d: message = %q", status, outcome.Message)
		}
	}
}

func TestIndividual_RedirectionStatusDelivers(t *testing.T) {
	for _, status := range []int{http.StatusMultipleChoices, http.StatusNotModified} {
		rec := &recorder{statusOf: func(int) int { return status }}
		srv := httptest.NewServer(rec)

		c, _ := newTestClient(t)
		outcome := c.Deliver(context.Background(), sampleRecords(2), srv.URL, models.DeliveryModeIndividual)
		srv.Close()

		if outcome.Sent != 2 || outcome.Failed != 0 {
			t.Errorf("status %d: counts = %d/%d, want 2/0", status, outcome.Sent, outcome.Failed)
		}
		if outcome.Message != "Successfully sent all 2 records individually to webhook" {
			t.Errorf("status %d: message = %q", status, outcome.Message)
		}
	}
}

func TestIndividual_CancelledContextLoggedOnce(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	buf := &bytes.Buffer{}
	logger := logging.NewMultiLogger()
	if err := logger.AddAdapter(adapters.NewStdoutAdapter("buffer", adapters.StdoutConfig{Format: "json", Writer: buf})); err != nil {
		t.Fatalf("AddAdapter: %v", err)
	}

	c, _ := newTestClient(t)
	c.logger = logger

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := c.Individual(ctx, sampleRecords(3), srv.URL)

	if !outcome.Success || outcome.Failed != 3 {
		t.Errorf("outcome = %+v", outcome)
	}
	if rec.count() != 0 {
		t.Errorf("%d POSTs reached the server after cancellation", rec.count())
	}
	if n := strings.Count(buf.String(), "Webhook delivery context ended"); n != 1 {
		t.Errorf("cancellation logged %d times, want 1:\n%s", n, buf.String())
	}
}
