package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultMaxResults is used when a scrape request does not set max_results
const DefaultMaxResults = 50

// ScrapeRequest represents the search form submission
type ScrapeRequest struct {
	Query      string     `json:"query" validate:"required"`
	Location   string     `json:"location" validate:"required"`
	MaxResults *int       `json:"max_results,omitempty" validate:"omitempty,min=1,max=500"`
	Options    *OptionSet `json:"options,omitempty"`
	WebhookURL string     `json:"webhook_url,omitempty" validate:"omitempty,url"`
}

// Limit returns max_results or DefaultMaxResults when it was not sent
func (r *ScrapeRequest) Limit() int {
	if r.MaxResults == nil {
		return DefaultMaxResults
	}
	return *r.MaxResults
}

// OptionSetOrDefault returns the options or the all-defaults set
func (r *ScrapeRequest) OptionSetOrDefault() OptionSet {
	if r.Options == nil {
		return OptionSet{}
	}
	return *r.Options
}

// OptionSet holds the scraping toggles forwarded to the actor. The JSON names
// match the actor's input schema.
type OptionSet struct {
	SkipClosedPlaces              bool `json:"skipClosedPlaces"`
	ScrapePlaceDetailPage         bool `json:"scrapePlaceDetailPage"`
	ScrapeContacts                bool `json:"scrapeContacts"`
	IncludeWebResults             bool `json:"includeWebResults"`
	MaxReviews                    int  `json:"maxReviews" validate:"min=0,max=100"`
	MaxImages                     int  `json:"maxImages" validate:"min=0,max=20"`
	MaximumLeadsEnrichmentRecords int  `json:"maximumLeadsEnrichmentRecords" validate:"min=0,max=100"`
}

// UnmarshalJSON rejects option keys the actor integration does not recognize
func (o *OptionSet) UnmarshalJSON(data []byte) error {
	type optionSetAlias OptionSet // avoid recursion

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var alias optionSetAlias
	if err := dec.Decode(&alias); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	*o = OptionSet(alias)
	return nil
}

// WebhookRequest asks for the session's results to be delivered to a webhook
type WebhookRequest struct {
	URL  string       `json:"url" validate:"required,url"`
	Mode DeliveryMode `json:"mode" validate:"omitempty,delivery_mode"`
}

// CreateSessionRequest optionally names the client creating a session
type CreateSessionRequest struct {
	Label string `json:"label,omitempty" validate:"omitempty,max=128"`
}
