package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"gmaps-scraper/internal/apify"
	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/logging"
	"gmaps-scraper/pkg/models"
	"gmaps-scraper/pkg/redact"
	"gmaps-scraper/pkg/utils"
)

// ErrMissingToken is returned when the fetcher is built without an API token
var ErrMissingToken = errors.New("APIFY_API_TOKEN is not configured")

// Fetcher runs one Google Maps search and returns every record it produced
type Fetcher interface {
	Fetch(ctx context.Context, query, location string, maxResults int, options models.OptionSet) (models.ResultSet, error)
}

// FetchError is any failure reaching or completing the remote scrape job
type FetchError struct {
	Op  string // start, wait, run or dataset
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.Op, redact.Secrets(e.Err.Error()))
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// actorClient is the part of the Apify client the fetcher needs
type actorClient interface {
	StartRun(ctx context.Context, actorID string, input interface{}) (*apify.Run, error)
	WaitForRun(ctx context.Context, runID string) (*apify.Run, error)
	IterateItems(ctx context.Context, datasetID string, fn func(item map[string]interface{}) error) error
}

// fetchInput is validated before anything is sent to the actor
type fetchInput struct {
	Query      string           `validate:"required"`
	Location   string           `validate:"required"`
	MaxResults int              `validate:"min=1,max=500"`
	Options    models.OptionSet
}

// ApifyFetcher runs the Google Places crawler actor
type ApifyFetcher struct {
	client   actorClient
	actorID  string
	validate *validator.Validate
	logger   logging.Logger
}

// NewApifyFetcher creates a fetcher from configuration. A missing API token
// is a fatal configuration error.
func NewApifyFetcher(cfg *config.Config) (*ApifyFetcher, error) {
	if !cfg.HasAPIToken() {
		return nil, ErrMissingToken
	}
	return newFetcher(apify.NewClient(cfg), cfg.Apify.ActorID), nil
}

func newFetcher(client actorClient, actorID string) *ApifyFetcher {
	return &ApifyFetcher{
		client:   client,
		actorID:  actorID,
		validate: validator.New(),
		logger:   logging.GetGlobalLogger().WithField(logging.FieldComponent, "fetcher"),
	}
}

// BuildRunInput builds the actor input document. Fields outside the option
// set are fixed for every search.
func BuildRunInput(query, location string, maxResults int, options models.OptionSet) map[string]interface{} {
	return map[string]interface{}{
		"searchStringsArray":        []string{query},
		"locationQuery":             location,
		"maxCrawledPlacesPerSearch": maxResults,
		"language":                  "en",
		"searchMatching":            "all",
		"placeMinimumStars":         "",
		"website":                   "allPlaces",

		"skipClosedPlaces":              options.SkipClosedPlaces,
		"scrapePlaceDetailPage":         options.ScrapePlaceDetailPage,
		"scrapeContacts":                options.ScrapeContacts,
		"includeWebResults":             options.IncludeWebResults,
		"maxReviews":                    options.MaxReviews,
		"maxImages":                     options.MaxImages,
		"maximumLeadsEnrichmentRecords": options.MaximumLeadsEnrichmentRecords,

		"scrapeTableReservationProvider": false,
		"scrapeDirectories":              false,
		"maxQuestions":                   0,
		"reviewsSort":                    "newest",
		"reviewsFilterString":            "",
		"reviewsOrigin":                  "all",
		"scrapeReviewsPersonalData":      true,
		"scrapeImageAuthors":             false,
		"allPlacesNoSearchAction":        "",
	}
}

// Fetch starts the actor, blocks until the run finishes and collects every
// dataset item in order. On failure no records are returned.
func (f *ApifyFetcher) Fetch(ctx context.Context, query, location string, maxResults int, options models.OptionSet) (models.ResultSet, error) {
	input := fetchInput{
		Query:      strings.TrimSpace(query),
		Location:   strings.TrimSpace(location),
		MaxResults: maxResults,
		Options:    options,
	}
	if err := f.validate.Struct(input); err != nil {
		return nil, utils.NewValidationError(err.Error())
	}

	startTime := time.Now()
	logger := f.logger.WithFields(map[string]interface{}{
		"query":       input.Query,
		"location":    input.Location,
		"max_results": maxResults,
	})
	logger.Info("Starting Google Maps scrape")

	run, err := f.client.StartRun(ctx, f.actorID, BuildRunInput(input.Query, input.Location, maxResults, options))
	if err != nil {
		return nil, &FetchError{Op: "start", Err: err}
	}

	run, err = f.client.WaitForRun(ctx, run.ID)
	if err != nil {
		return nil, &FetchError{Op: "wait", Err: err}
	}
	if run.Status != apify.StatusSucceeded {
		return nil, &FetchError{Op: "run", Err: &apify.RunError{
			RunID:         run.ID,
			Status:        run.Status,
			StatusMessage: run.StatusMessage,
		}}
	}

	records := models.ResultSet{}
	err = f.client.IterateItems(ctx, run.DefaultDatasetID, func(item map[string]interface{}) error {
		records = append(records, models.Record(item))
		return nil
	})
	if err != nil {
		return nil, &FetchError{Op: "dataset", Err: err}
	}

	logger.Info("Google Maps scrape completed", map[string]interface{}{
		"run_id":          run.ID,
		"records":         len(records),
		"processing_time": utils.FormatDuration(time.Since(startTime)),
	})

	return records, nil
}
