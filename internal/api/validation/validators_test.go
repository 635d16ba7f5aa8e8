package validation

import (
	"testing"

	"gmaps-scraper/pkg/models"
)

func TestDeliveryMode(t *testing.T) {
	v := New()

	ok := models.WebhookRequest{URL: "https://hooks.example/x", Mode: models.DeliveryModeIndividual}
	if err := v.Struct(&ok); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	noMode := models.WebhookRequest{URL: "https://hooks.example/x"}
	if err := v.Struct(&noMode); err != nil {
		t.Errorf("empty mode rejected: %v", err)
	}

	bad := models.WebhookRequest{URL: "https://hooks.example/x", Mode: "stream"}
	if err := v.Struct(&bad); err == nil {
		t.Error("unknown mode accepted")
	}

	badURL := models.WebhookRequest{URL: "not a url"}
	if err := v.Struct(&badURL); err == nil {
		t.Error("invalid url accepted")
	}
}

func TestExportFormat(t *testing.T) {
	v := New()

	for _, format := range []string{"json", "csv", "xlsx"} {
		if err := v.Var(format, "export_format"); err != nil {
			t.Errorf("%s rejected: %v", format, err)
		}
	}
	if err := v.Var("pdf", "export_format"); err == nil {
		t.Error("pdf accepted")
	}
}

func TestScrapeRequestBounds(t *testing.T) {
	v := New()

	limit := func(n int) *int { return &n }

	tests := []struct {
		name  string
		req   models.ScrapeRequest
		valid bool
	}{
		{"defaults", models.ScrapeRequest{Query: "coffee", Location: "Austin"}, true},
		{"max 500", models.ScrapeRequest{Query: "coffee", Location: "Austin", MaxResults: limit(500)}, true},
		{"zero", models.ScrapeRequest{Query: "coffee", Location: "Austin", MaxResults: limit(0)}, false},
		{"over", models.ScrapeRequest{Query: "coffee", Location: "Austin", MaxResults: limit(501)}, false},
		{"no location", models.ScrapeRequest{Query: "coffee"}, false},
		{"reviews cap", models.ScrapeRequest{Query: "coffee", Location: "Austin", Options: &models.OptionSet{MaxReviews: 101}}, false},
	}
	for _, tt := range tests {
		err := v.Struct(&tt.req)
		if (err == nil) != tt.valid {
			t.Errorf("%s: err = %v, valid = %v", tt.name, err, tt.valid)
		}
	}
}
