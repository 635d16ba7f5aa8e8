package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Well-known fields of a Google Maps place record
const (
	FieldTitle        = "title"
	FieldName         = "name"
	FieldAddress      = "address"
	FieldTotalScore   = "totalScore"
	FieldReviewsCount = "reviewsCount"
	FieldPhone        = "phone"
	FieldWebsite      = "website"
)

// TableColumns is the column projection used for the results table
var TableColumns = []string{
	FieldTitle,
	FieldAddress,
	FieldTotalScore,
	FieldReviewsCount,
	FieldPhone,
	FieldWebsite,
}

// MissingValue is rendered in table rows for absent or null fields
const MissingValue = "N/A"

// Record represents one scraped business entity. The schema is open-ended:
// fields are passed through exactly as the remote dataset returned them.
type Record map[string]interface{}

// ResultSet is the ordered collection of records returned by one fetch
type ResultSet []Record

// Get returns the raw value for key and whether it is present and non-null
func (r Record) Get(key string) (interface{}, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// StringField returns the value for key rendered as a string, or "" if absent
func (r Record) StringField(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return formatValue(v)
}

// Title returns the business name, falling back to "name" when "title" is absent
func (r Record) Title() string {
	if title := r.StringField(FieldTitle); title != "" {
		return title
	}
	return r.StringField(FieldName)
}

// Address returns the business address
func (r Record) Address() string {
	return r.StringField(FieldAddress)
}

// Phone returns the business phone number
func (r Record) Phone() string {
	return r.StringField(FieldPhone)
}

// Website returns the business website
func (r Record) Website() string {
	return r.StringField(FieldWebsite)
}

// TotalScore returns the rating score if the record carries a numeric one
func (r Record) TotalScore() (float64, bool) {
	return r.Float(FieldTotalScore)
}

// ReviewsCount returns the number of reviews if present
func (r Record) ReviewsCount() (int64, bool) {
	f, ok := r.Float(FieldReviewsCount)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Float returns a numeric field as float64. Values decoded with
// json.Decoder.UseNumber arrive as json.Number and are handled as well.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}

	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Truthy reports whether the field is present with a non-empty, non-zero value
func (r Record) Truthy(key string) bool {
	v, ok := r.Get(key)
	if !ok {
		return false
	}

	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}

// Keys returns the union of field names across the set. Table columns come
// first, the remaining fields follow in first-seen order with the keys of each
// record sorted, since map iteration order is random.
func (rs ResultSet) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, column := range TableColumns {
		for _, record := range rs {
			if _, ok := record[column]; ok {
				seen[column] = true
				keys = append(keys, column)
				break
			}
		}
	}
	for _, record := range rs {
		for _, k := range sortedKeys(record) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// Filter returns the records whose title or address contains term,
// case-insensitively. An empty term returns the set unchanged.
func (rs ResultSet) Filter(term string) ResultSet {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rs
	}

	filtered := make(ResultSet, 0, len(rs))
	for _, record := range rs {
		if strings.Contains(strings.ToLower(record.StringField(FieldTitle)), term) ||
			strings.Contains(strings.ToLower(record.StringField(FieldAddress)), term) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// Stats computes the quick statistics shown next to the search form
func (rs ResultSet) Stats() ResultStats {
	stats := ResultStats{Total: len(rs)}
	for _, record := range rs {
		if record.Truthy(FieldTotalScore) {
			stats.WithRatings++
		}
		if record.Truthy(FieldPhone) {
			stats.WithPhone++
		}
		if record.Truthy(FieldWebsite) {
			stats.WithWebsite++
		}
	}
	return stats
}

// TableRows projects every record onto TableColumns, substituting MissingValue
// for absent fields
func (rs ResultSet) TableRows() []TableRow {
	rows := make([]TableRow, 0, len(rs))
	for _, record := range rs {
		row := make(TableRow, len(TableColumns))
		for _, column := range TableColumns {
			if v, ok := record.Get(column); ok {
				row[column] = v
			} else {
				row[column] = MissingValue
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// TableRow is one projected row of the results table
type TableRow map[string]interface{}

// ResultStats summarizes a result set
type ResultStats struct {
	Total       int `json:"total"`
	WithRatings int `json:"with_ratings"`
	WithPhone   int `json:"with_phone"`
	WithWebsite int `json:"with_website"`
}

// FormatCell renders a field value for tabular text output. Nested values are
// JSON encoded so they survive a round trip through CSV or a spreadsheet.
func FormatCell(v interface{}) string {
	if v == nil {
		return ""
	}
	return formatValue(v)
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []interface{}, map[string]interface{}:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func sortedKeys(record Record) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
