package apify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"gmaps-scraper/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Apify.BaseURL = srv.URL
	cfg.Apify.APIToken = "test-token"
	cfg.Apify.PollWait = 0
	cfg.Apify.WaitTimeout = 5 * time.Second
	cfg.Apify.PageRate = 0

	c := NewClient(cfg)
	c.retryBackoff = time.Millisecond
	return c
}

func writeData(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": v})
}

func TestStartRun_SendsInputAndToken(t *testing.T) {
	var gotInput map[string]interface{}
	var gotAuth, gotPath string

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotInput)
		writeData(w, Run{ID: "run-1", Status: StatusReady, DefaultDatasetID: "ds-1"})
	}))

	run, err := c.StartRun(context.Background(), "compass/crawler-google-places", map[string]interface{}{
		"locationQuery": "Austin, TX",
	})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	if gotPath != "/acts/compass~crawler-google-places/runs" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotInput["locationQuery"] != "Austin, TX" {
		t.Errorf("input not forwarded: %v", gotInput)
	}
	if run.ID != "run-1" || run.DefaultDatasetID != "ds-1" {
		t.Errorf("run = %+v", run)
	}
}

func TestWaitForRun_PollsUntilTerminal(t *testing.T) {
	var polls int32

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&polls, 1)
		status := StatusRunning
		if n >= 3 {
			status = StatusSucceeded
		}
		writeData(w, Run{ID: "run-1", Status: status, DefaultDatasetID: "ds-1"})
	}))

	run, err := c.WaitForRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("WaitForRun: %v", err)
	}
	if run.Status != StatusSucceeded {
		t.Errorf("status = %q", run.Status)
	}
	if got := atomic.LoadInt32(&polls); got != 3 {
		t.Errorf("polls = %d, want 3", got)
	}
}

func TestWaitForRun_RetriesTransientFailures(t *testing.T) {
	var calls int32

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeData(w, Run{ID: "run-1", Status: StatusSucceeded})
	}))

	if _, err := c.WaitForRun(context.Background(), "run-1"); err != nil {
		t.Fatalf("WaitForRun: %v", err)
	}
}

func TestWaitForRun_DoesNotRetryAuthFailure(t *testing.T) {
	var calls int32

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"type":"token-not-valid","message":"Authentication token is not valid."}}`)
	}))

	_, err := c.WaitForRun(context.Background(), "run-1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Type != "token-not-valid" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestIterateItems_PagesInOrder(t *testing.T) {
	const total = 5

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		items := []map[string]interface{}{}
		for i := offset; i < total && i < offset+limit; i++ {
			items = append(items, map[string]interface{}{"title": fmt.Sprintf("place-%d", i)})
		}
		json.NewEncoder(w).Encode(items)
	}))
	c.pageSize = 2

	var titles []string
	err := c.IterateItems(context.Background(), "ds-1", func(item map[string]interface{}) error {
		titles = append(titles, item["title"].(string))
		return nil
	})
	if err != nil {
		t.Fatalf("IterateItems: %v", err)
	}

	if len(titles) != total {
		t.Fatalf("got %d items, want %d", len(titles), total)
	}
	for i, title := range titles {
		if want := fmt.Sprintf("place-%d", i); title != want {
			t.Errorf("item %d = %q, want %q", i, title, want)
		}
	}
}

func TestIterateItems_KeepsNumbersExact(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"reviewsCount": 12345678901234567}]`)
	}))

	var got interface{}
	c.IterateItems(context.Background(), "ds-1", func(item map[string]interface{}) error {
		got = item["reviewsCount"]
		return nil
	})

	if n, ok := got.(json.Number); !ok || n.String() != "12345678901234567" {
		t.Errorf("reviewsCount = %#v, want json.Number", got)
	}
}

func TestGetUser(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me" {
			http.NotFound(w, r)
			return
		}
		writeData(w, User{ID: "u1", Username: "maps-team"})
	}))

	user, err := c.GetUser(context.Background())
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Username != "maps-team" {
		t.Errorf("username = %q", user.Username)
	}
}

func TestAPIError_RedactsSecrets(t *testing.T) {
	err := newAPIError(http.StatusBadRequest, []byte(`{"error":{"type":"invalid-input","message":"bad token apify_api_abcdef123456"}}`))
	if err.Message != "bad token <redacted_token>" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Temporary() {
		t.Error("400 reported as temporary")
	}
}
