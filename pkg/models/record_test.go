package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func sampleSet() ResultSet {
	return ResultSet{
		{"title": "Tartine Bakery", "address": "600 Guerrero St", "totalScore": json.Number("4.5"), "phone": "+1 415 487 2600", "zeta": 1.0},
		{"name": "Arsicault", "address": "397 Arguello Blvd", "totalScore": 0.0, "website": ""},
		{"title": "b. patisserie", "address": "2821 California St", "website": "https://bpatisserie.example", "alpha": true},
	}
}

func TestRecord_Float(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   float64
		wantOK bool
	}{
		{"float64", 4.5, 4.5, true},
		{"int", 3, 3, true},
		{"json number", json.Number("4.7"), 4.7, true},
		{"numeric string", " 12 ", 12, true},
		{"bad string", "n/a", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Record{"v": tt.value}.Float("v")
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Float() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRecord_TitleFallsBackToName(t *testing.T) {
	if got := (Record{"name": "Arsicault"}).Title(); got != "Arsicault" {
		t.Errorf("Title() = %q", got)
	}
	if got := (Record{"title": "Tartine", "name": "x"}).Title(); got != "Tartine" {
		t.Errorf("Title() = %q", got)
	}
}

func TestResultSet_Filter(t *testing.T) {
	rs := sampleSet()

	if got := rs.Filter("  "); len(got) != len(rs) {
		t.Errorf("empty filter returned %d records", len(got))
	}

	// address match, case-insensitive
	got := rs.Filter("GUERRERO")
	if len(got) != 1 || got[0].Title() != "Tartine Bakery" {
		t.Errorf("Filter(GUERRERO) = %v", got)
	}

	// title match
	got = rs.Filter("patisserie")
	if len(got) != 1 || got[0].Address() != "2821 California St" {
		t.Errorf("Filter(patisserie) = %v", got)
	}

	if got := rs.Filter("nothing here"); len(got) != 0 {
		t.Errorf("Filter(nothing here) = %v", got)
	}
}

func TestResultSet_Stats(t *testing.T) {
	stats := sampleSet().Stats()
	want := ResultStats{Total: 3, WithRatings: 1, WithPhone: 1, WithWebsite: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}

	if empty := (ResultSet{}).Stats(); empty != (ResultStats{}) {
		t.Errorf("empty Stats() = %+v", empty)
	}
}

func TestResultSet_TableRows(t *testing.T) {
	rows := sampleSet().TableRows()
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d", len(rows))
	}

	first := rows[0]
	if len(first) != len(TableColumns) {
		t.Errorf("row has %d columns, want %d", len(first), len(TableColumns))
	}
	if first[FieldWebsite] != MissingValue || first[FieldReviewsCount] != MissingValue {
		t.Errorf("missing fields not substituted: %v", first)
	}
	if first[FieldTotalScore] != json.Number("4.5") {
		t.Errorf("totalScore = %v", first[FieldTotalScore])
	}
	if _, ok := first["zeta"]; ok {
		t.Error("non-table column leaked into row")
	}
}

func TestResultSet_Keys(t *testing.T) {
	got := sampleSet().Keys()
	want := []string{"title", "address", "totalScore", "phone", "website", "zeta", "name", "alpha"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		value interface{}
		want  string
	}{
		{nil, ""},
		{"text", "text"},
		{4.0, "4"},
		{json.Number("4.50"), "4.50"},
		{true, "true"},
		{[]interface{}{"Cafe", "Bakery"}, `["Cafe","Bakery"]`},
		{map[string]interface{}{"lat": 1.5}, `{"lat":1.5}`},
	}

	for _, tt := range tests {
		if got := FormatCell(tt.value); got != tt.want {
			t.Errorf("FormatCell(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestOptionSet_RejectsUnknownKeys(t *testing.T) {
	var opts OptionSet
	err := json.Unmarshal([]byte(`{"scrapeContacts":true,"maxCrawledPlaces":10}`), &opts)
	if err == nil || !strings.Contains(err.Error(), "invalid options") {
		t.Fatalf("Unmarshal error = %v", err)
	}

	if err := json.Unmarshal([]byte(`{"scrapeContacts":true,"maxReviews":5}`), &opts); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if !opts.ScrapeContacts || opts.MaxReviews != 5 {
		t.Errorf("opts = %+v", opts)
	}
}

func TestScrapeRequest_Limit(t *testing.T) {
	var req ScrapeRequest
	if req.Limit() != DefaultMaxResults {
		t.Errorf("Limit() = %d", req.Limit())
	}
	n := 120
	req.MaxResults = &n
	if req.Limit() != 120 {
		t.Errorf("Limit() = %d", req.Limit())
	}
}

func TestDeliveryMode_IsValid(t *testing.T) {
	for mode, want := range map[DeliveryMode]bool{"bulk": true, "individual": true, "": false, "batch": false} {
		if mode.IsValid() != want {
			t.Errorf("%q.IsValid() = %v", mode, !want)
		}
	}
}
