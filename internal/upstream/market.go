package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ratul/farmer-helper/internal/apperror"
)

// defaultMarketLimit caps how many price records one query returns when the
// caller doesn't ask for a specific count.
const defaultMarketLimit = 100

// MarketConfig configures the government market-data client.
type MarketConfig struct {
	BaseURL string // the data.gov.in resource endpoint for mandi prices
	APIKey  string
	Timeout time.Duration
}

// DefaultMarketConfig returns the production resource endpoint for the
// daily commodity arrival/price dataset.
func DefaultMarketConfig(apiKey string) MarketConfig {
	return MarketConfig{
		BaseURL: "https://api.data.gov.in/resource/35985678-0d79-46b4-9ed6-6f13308a1d24",
		APIKey:  apiKey,
	}
}

// MarketClient queries commodity price records, filterable by state,
// district, commodity, and arrival date.
type MarketClient struct {
	cfg    MarketConfig
	http   *http.Client
	logger *slog.Logger
}

// NewMarketClient creates a MarketClient.
func NewMarketClient(cfg MarketConfig, logger *slog.Logger) *MarketClient {
	return &MarketClient{
		cfg:    cfg,
		http:   newHTTPClient(cfg.Timeout),
		logger: logger,
	}
}

// MarketQuery are the optional filters for a price lookup.
// A zero Limit means defaultMarketLimit.
type MarketQuery struct {
	State       string
	District    string
	Commodity   string
	ArrivalDate string
	Limit       int
}

// MarketReport is the reshaped dataset answer: the raw records passed through
// untouched (the dataset's column set is not ours to stabilize), plus the
// count and the most recent arrival date for the dashboard header.
type MarketReport struct {
	Count      int              `json:"count"`
	LatestDate string           `json:"latestDate,omitempty"`
	Records    []map[string]any `json:"records"`
}

// Prices fetches price records matching the query, newest arrivals first.
func (c *MarketClient) Prices(ctx context.Context, query MarketQuery) (*MarketReport, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultMarketLimit
	}

	q := url.Values{}
	q.Set("api-key", c.cfg.APIKey)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sort[Arrival_Date]", "desc")
	if query.State != "" {
		q.Set("filters[State]", query.State)
	}
	if query.District != "" {
		q.Set("filters[District]", query.District)
	}
	if query.Commodity != "" {
		q.Set("filters[Commodity]", query.Commodity)
	}
	if query.ArrivalDate != "" {
		q.Set("filters[Arrival_Date]", query.ArrivalDate)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: building market request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("market data provider unreachable", slog.String("error", err.Error()))
		return nil, apperror.Upstream("Failed to fetch market data", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    decodeUpstreamError(resp.Body, "Failed to fetch market data"),
		}
	}

	var data struct {
		Records []map[string]any `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, apperror.Upstream("Failed to fetch market data", fmt.Errorf("decoding response: %w", err))
	}

	report := &MarketReport{
		Count:   len(data.Records),
		Records: data.Records,
	}
	if len(data.Records) > 0 {
		if date, ok := data.Records[0]["Arrival_Date"].(string); ok {
			report.LatestDate = date
		}
	}

	return report, nil
}
