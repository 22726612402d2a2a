package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ratul/farmer-helper/internal/apperror"
	"github.com/ratul/farmer-helper/internal/upstream"
)

// maxImageUpload bounds the in-memory portion of a disease-detection upload.
// Larger files spill to temp storage via the multipart reader.
const maxImageUpload = 10 << 20 // 10 MiB

// AdvisoryHandler serves the proxy endpoints: crop recommendation, disease
// detection, weather, and market prices. Each handler validates input,
// forwards to the matching upstream client, and returns the reshaped answer.
// No state and no database — the only business logic is input checking.
type AdvisoryHandler struct {
	ml      *upstream.MLClient
	weather *upstream.WeatherClient
	market  *upstream.MarketClient
	logger  *slog.Logger
}

// NewAdvisoryHandler creates an AdvisoryHandler.
func NewAdvisoryHandler(
	ml *upstream.MLClient,
	weather *upstream.WeatherClient,
	market *upstream.MarketClient,
	logger *slog.Logger,
) *AdvisoryHandler {
	return &AdvisoryHandler{
		ml:      ml,
		weather: weather,
		market:  market,
		logger:  logger,
	}
}

// cropRequest uses pointer fields because 0 is a legitimate value for every
// feature (a nitrogen ratio of 0, rainfall of 0mm). validate:"required" on a
// pointer means "key must be present", not "value must be non-zero".
type cropRequest struct {
	N           *float64 `json:"N"           validate:"required"`
	P           *float64 `json:"P"           validate:"required"`
	K           *float64 `json:"K"           validate:"required"`
	Temperature *float64 `json:"temperature" validate:"required"`
	Humidity    *float64 `json:"humidity"    validate:"required"`
	PH          *float64 `json:"ph"          validate:"required"`
	Rainfall    *float64 `json:"rainfall"    validate:"required"`
}

// HandleCropRecommend scores soil/climate features against the crop model.
//
// HTTP: POST /api/crop
// REQUEST BODY: {"N":90,"P":42,"K":43,"temperature":21,"humidity":82,"ph":6.5,"rainfall":203}
// RESPONSE: {"crops":["rice",...],"probs":[0.93,...]}
func (h *AdvisoryHandler) HandleCropRecommend(w http.ResponseWriter, r *http.Request) {
	var req cropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, apperror.ValidationFailed("", "All input fields are required"))
		return
	}

	prediction, err := h.ml.RecommendCrop(r.Context(), upstream.CropFeatures{
		N:           *req.N,
		P:           *req.P,
		K:           *req.K,
		Temperature: *req.Temperature,
		Humidity:    *req.Humidity,
		PH:          *req.PH,
		Rainfall:    *req.Rainfall,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prediction)
}

// HandleDiseaseDetect forwards an uploaded leaf image to the disease model.
//
// HTTP: POST /api/disease (multipart/form-data, file field "image")
// RESPONSE: {"detected_diseases":["Tomato___Late_blight",...]}
//
// The image streams from the upload into the outbound request without
// touching disk.
func (h *AdvisoryHandler) HandleDiseaseDetect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		writeError(w, apperror.ValidationFailed("image", "No image uploaded"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, apperror.ValidationFailed("image", "No image uploaded"))
		return
	}
	defer file.Close()

	report, err := h.ml.DetectDisease(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleWeather returns current conditions for a location name.
//
// HTTP: GET /api/weather?location=Pune
func (h *AdvisoryHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		writeError(w, apperror.ValidationFailed("location", "Location is required"))
		return
	}

	report, err := h.weather.Current(r.Context(), location)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleMarket returns commodity price records, newest arrivals first.
//
// HTTP: GET /api/market?state=Maharashtra&district=Pune&commodity=Tomato&limit=50&arrivalDate=2025-08-30
// All filters are optional.
func (h *AdvisoryHandler) HandleMarket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, apperror.ValidationFailed("limit", "limit must be a positive integer"))
			return
		}
		limit = n
	}

	report, err := h.market.Prices(r.Context(), upstream.MarketQuery{
		State:       q.Get("state"),
		District:    q.Get("district"),
		Commodity:   q.Get("commodity"),
		ArrivalDate: q.Get("arrivalDate"),
		Limit:       limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
