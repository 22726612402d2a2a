package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ratul/farmer-helper/internal/apperror"
)

// WeatherConfig configures the weather provider client.
type WeatherConfig struct {
	BaseURL string // override in tests; DefaultWeatherConfig points at OpenWeatherMap
	APIKey  string
	Timeout time.Duration
}

// DefaultWeatherConfig returns the production provider endpoint.
// The API key always comes from configuration.
func DefaultWeatherConfig(apiKey string) WeatherConfig {
	return WeatherConfig{
		BaseURL: "https://api.openweathermap.org/data/2.5",
		APIKey:  apiKey,
	}
}

// WeatherClient fetches current conditions for a location name and reshapes
// the provider's response into the compact form the frontend renders.
type WeatherClient struct {
	cfg    WeatherConfig
	http   *http.Client
	logger *slog.Logger
}

// NewWeatherClient creates a WeatherClient.
func NewWeatherClient(cfg WeatherConfig, logger *slog.Logger) *WeatherClient {
	return &WeatherClient{
		cfg:    cfg,
		http:   newHTTPClient(cfg.Timeout),
		logger: logger,
	}
}

// WeatherReport is the reshaped weather answer. Temperatures are metric.
type WeatherReport struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    float64 `json:"humidity"`
	Condition   string  `json:"condition"`
	WindSpeed   float64 `json:"wind_speed"`
	Country     string  `json:"country"`
}

// owmResponse mirrors the slice of the OpenWeatherMap payload we consume.
type owmResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// Current looks up current weather by location name (e.g. "Pune").
func (c *WeatherClient) Current(ctx context.Context, location string) (*WeatherReport, error) {
	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.cfg.APIKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: building weather request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("weather provider unreachable", slog.String("error", err.Error()))
		return nil, apperror.Upstream("Failed to fetch weather data", err)
	}
	defer resp.Body.Close()

	// The provider reports unknown locations and bad keys as non-2xx with a
	// "message" field; forward its status and message.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    decodeUpstreamError(resp.Body, "Failed to fetch weather data"),
		}
	}

	var data owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, apperror.Upstream("Failed to fetch weather data", fmt.Errorf("decoding response: %w", err))
	}

	report := &WeatherReport{
		Location:    data.Name,
		Temperature: data.Main.Temp,
		FeelsLike:   data.Main.FeelsLike,
		Humidity:    data.Main.Humidity,
		WindSpeed:   data.Wind.Speed,
		Country:     data.Sys.Country,
	}
	if len(data.Weather) > 0 {
		report.Condition = data.Weather[0].Description
	}

	return report, nil
}
