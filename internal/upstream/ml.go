package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ratul/farmer-helper/internal/apperror"
)

// MLConfig configures the connection to the ML microservice.
type MLConfig struct {
	BaseURL string        // e.g. "http://127.0.0.1:5001"
	Timeout time.Duration // per-request timeout; 0 means the default
}

// DefaultMLConfig returns the local-development configuration.
func DefaultMLConfig() MLConfig {
	return MLConfig{
		BaseURL: "http://127.0.0.1:5001",
	}
}

// MLClient talks to the machine-learning microservice that backs crop
// recommendation and disease detection.
type MLClient struct {
	cfg    MLConfig
	http   *http.Client
	logger *slog.Logger
}

// NewMLClient creates an MLClient. The service is not probed here — an
// unreachable ML service surfaces per-request, so the server starts without it.
func NewMLClient(cfg MLConfig, logger *slog.Logger) *MLClient {
	return &MLClient{
		cfg:    cfg,
		http:   newHTTPClient(cfg.Timeout),
		logger: logger,
	}
}

// CropFeatures are the soil/climate parameters the crop model scores.
// The JSON keys match the model's feature names exactly.
type CropFeatures struct {
	N           float64 `json:"N"`  // nitrogen ratio
	P           float64 `json:"P"`  // phosphorus ratio
	K           float64 `json:"K"`  // potassium ratio
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // relative %
	PH          float64 `json:"ph"`
	Rainfall    float64 `json:"rainfall"` // mm
}

// CropPrediction is the model's answer: the top crops with their
// probabilities, in descending order.
type CropPrediction struct {
	Crops []string  `json:"crops"`
	Probs []float64 `json:"probs"`
}

// DiseaseReport lists the disease labels detected in an uploaded leaf image.
type DiseaseReport struct {
	DetectedDiseases []string `json:"detected_diseases"`
}

// RecommendCrop posts the features to the model and returns its prediction.
func (c *MLClient) RecommendCrop(ctx context.Context, features CropFeatures) (*CropPrediction, error) {
	body, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("upstream: encoding crop features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/predict/crop", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upstream: building crop request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var prediction CropPrediction
	if err := c.do(req, "ML service unavailable. Please try again later.", &prediction); err != nil {
		return nil, err
	}
	return &prediction, nil
}

// DetectDisease streams the uploaded image to the model as a multipart form
// (field name "image", as the model expects) and returns the detected labels.
//
// The image is piped straight from the inbound upload into the outbound
// request — it is never written to disk.
func (c *MLClient) DetectDisease(ctx context.Context, filename string, image io.Reader) (*DiseaseReport, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("upstream: creating form file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("upstream: copying image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upstream: closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/predict/disease", &buf)
	if err != nil {
		return nil, fmt.Errorf("upstream: building disease request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var report DiseaseReport
	if err := c.do(req, "Failed to get disease prediction", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// do executes the request, maps transport failures to ErrUpstream with the
// given message, forwards upstream error statuses, and decodes a success
// body into out.
func (c *MLClient) do(req *http.Request, unavailableMsg string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("ML service unreachable",
			slog.String("url", req.URL.String()),
			slog.String("error", err.Error()),
		)
		return apperror.Upstream(unavailableMsg, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Message:    decodeUpstreamError(resp.Body, "Error from ML service"),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Upstream(unavailableMsg, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// decodeUpstreamError pulls the "error" (or "message") field out of an
// upstream error body, falling back to a generic message.
func decodeUpstreamError(body io.Reader, fallback string) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fallback
}
