package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m3rciful/suggestbot/core/logger"
	"github.com/m3rciful/suggestbot/core/netutil"
)

const (
	// DefaultBaseURL is the public OMDb endpoint.
	DefaultBaseURL = "https://www.omdbapi.com/"
	defaultTimeout = 10 * time.Second

	omdbNotFound = "Movie not found!"
)

// ErrUpstream wraps every failure reported by the catalog backend.
var ErrUpstream = errors.New("catalog: upstream failure")

// Client searches the catalog and looks up single items.
type Client interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
	Lookup(ctx context.Context, id string) (DetailRecord, error)
}

// Config holds OMDb connection settings.
type Config struct {
	BaseURL        string `yaml:"base_url" envconfig:"CATALOG_BASE_URL"`
	APIKey         string `yaml:"api_key" envconfig:"CATALOG_API_KEY"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"CATALOG_TIMEOUT_SECONDS"`
}

// Normalize fills defaults and validates the configuration.
func (c *Config) Normalize() error {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("catalog.base_url: %w", err)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("catalog.api_key is required")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("catalog.timeout_seconds must be >= 0")
	}
	return nil
}

// OMDb is a Client backed by the OMDb HTTP API. It never retries.
type OMDb struct {
	base   string
	apiKey string
	http   *http.Client
}

// NewOMDb builds an OMDb client. A nil httpClient gets a pooled client with
// the configured timeout and no transport retries.
func NewOMDb(cfg Config, httpClient *http.Client) *OMDb {
	if httpClient == nil {
		timeout := defaultTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		httpClient = netutil.NewClient(netutil.ClientOptions{Timeout: timeout})
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &OMDb{base: base, apiKey: cfg.APIKey, http: httpClient}
}

var _ Client = (*OMDb)(nil)

type omdbEnvelope struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

type omdbSearch struct {
	omdbEnvelope
	Search []struct {
		ImdbID string `json:"imdbID"`
		Title  string `json:"Title"`
		Year   string `json:"Year"`
		Poster string `json:"Poster"`
	} `json:"Search"`
	TotalResults string `json:"totalResults"`
}

type omdbDetail struct {
	omdbEnvelope
	ImdbID   string `json:"imdbID"`
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Runtime  string `json:"Runtime"`
	Genre    string `json:"Genre"`
	Director string `json:"Director"`
	Actors   string `json:"Actors"`
	Plot     string `json:"Plot"`
	Poster   string `json:"Poster"`
}

// Search runs a title search. No matches is an empty, successful result.
func (c *OMDb) Search(ctx context.Context, query string) ([]SearchResult, error) {
	start := time.Now()
	var body omdbSearch
	if err := c.get(ctx, url.Values{"s": {query}}, &body); err != nil {
		logger.Warn(ctx, "catalog", "catalog.search",
			slog.String("status", "fail"),
			slog.String("query", query),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil, err
	}
	if !strings.EqualFold(body.Response, "True") {
		if body.Error == omdbNotFound {
			logger.Debug(ctx, "catalog", "catalog.search",
				slog.String("status", "ok"),
				slog.String("query", query),
				slog.Int("count", 0),
			)
			return []SearchResult{}, nil
		}
		return nil, fmt.Errorf("%w: search: %s", ErrUpstream, body.Error)
	}

	// Cursor edges compare by ID, so an ID may appear only once.
	results := make([]SearchResult, 0, len(body.Search))
	seen := make(map[string]struct{}, len(body.Search))
	for _, item := range body.Search {
		if strings.TrimSpace(item.ImdbID) == "" {
			continue
		}
		if _, dup := seen[item.ImdbID]; dup {
			continue
		}
		seen[item.ImdbID] = struct{}{}
		results = append(results, SearchResult{
			ID:       item.ImdbID,
			Title:    cleanText(item.Title),
			Year:     parseNumber(item.Year),
			ImageRef: cleanText(item.Poster),
		})
	}
	logger.Debug(ctx, "catalog", "catalog.search",
		slog.String("status", "ok"),
		slog.String("query", query),
		slog.Int("count", len(results)),
		slog.Duration("duration", logger.Took(start)),
	)
	return results, nil
}

// Lookup fetches the full record for id.
func (c *OMDb) Lookup(ctx context.Context, id string) (DetailRecord, error) {
	start := time.Now()
	var body omdbDetail
	if err := c.get(ctx, url.Values{"i": {id}, "plot": {"short"}}, &body); err != nil {
		return DetailRecord{}, err
	}
	if !strings.EqualFold(body.Response, "True") {
		return DetailRecord{}, fmt.Errorf("%w: lookup %s: %s", ErrUpstream, id, body.Error)
	}
	rec := DetailRecord{
		ID:             body.ImdbID,
		Title:          cleanText(body.Title),
		Year:           parseNumber(body.Year),
		RuntimeMinutes: parseNumber(body.Runtime),
		Genres:         dedupe(parseList(body.Genre)),
		Directors:      parseList(body.Director),
		Actors:         parseList(body.Actors),
		Synopsis:       cleanText(body.Plot),
		ImageRef:       cleanText(body.Poster),
	}
	if rec.ID == "" {
		rec.ID = id
	}
	logger.Debug(ctx, "catalog", "catalog.lookup",
		slog.String("status", "ok"),
		slog.String("item_id", id),
		slog.Duration("duration", logger.Took(start)),
	)
	return rec, nil
}

func (c *OMDb) get(ctx context.Context, params url.Values, dst any) error {
	u, err := url.Parse(c.base)
	if err != nil {
		return fmt.Errorf("%w: base url: %v", ErrUpstream, err)
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	q.Set("apikey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error carries the full URL including the api key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return nil
}
