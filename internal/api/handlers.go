package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/saaga0h/floorplan-dashboard/internal/dashboard"
	"github.com/saaga0h/floorplan-dashboard/internal/filter"
	"github.com/saaga0h/floorplan-dashboard/internal/ingest"
	"github.com/saaga0h/floorplan-dashboard/internal/occupancy"
	"github.com/saaga0h/floorplan-dashboard/internal/records"
	"github.com/saaga0h/floorplan-dashboard/pkg/response"
)

// MaxUploadBytes caps the size of an uploaded payload
const MaxUploadBytes = 32 << 20

// Handler serves the dashboard endpoints
type Handler struct {
	svc    *dashboard.Service
	cache  *QueryCache
	logger *slog.Logger
}

// NewHandler creates a handler. cache may be nil to disable caching.
func NewHandler(svc *dashboard.Service, cache *QueryCache, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, cache: cache, logger: logger}
}

type selectionRequest struct {
	Values []string `json:"values"`
}

type seekRequest struct {
	Index *int `json:"index"`
}

type speedRequest struct {
	Speed float64 `json:"speed"`
}

type localeRequest struct {
	Locale string `json:"locale"`
}

// LocaleResponse reports the active and selectable locales
type LocaleResponse struct {
	Locale    string   `json:"locale"`
	Supported []string `json:"supported"`
}

// StringsResponse carries the resolved catalog for one locale
type StringsResponse struct {
	Locale  string            `json:"locale"`
	Strings map[string]string `json:"strings"`
}

// Upload replaces the dataset or the layout. The payload is either the
// raw request body or a multipart "file" field.
func (h *Handler) Upload(c *gin.Context) {
	data, err := readUpload(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.Upload(c.Request.Context(), data)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, result)
}

func readUpload(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		if header.Size > MaxUploadBytes {
			return nil, fmt.Errorf("upload exceeds %d bytes", MaxUploadBytes)
		}
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty upload")
	}
	return data, nil
}

// Metadata returns the dataset metadata
func (h *Handler) Metadata(c *gin.Context) {
	h.cached(c, func() (interface{}, error) { return h.svc.Metadata() })
}

// Layout returns the floor plan
func (h *Handler) Layout(c *gin.Context) {
	h.cached(c, func() (interface{}, error) { return h.svc.Layout() })
}

// Options returns the filter panel options
func (h *Handler) Options(c *gin.Context) {
	locale := c.Query("locale")
	h.cached(c, func() (interface{}, error) { return h.svc.Options(locale) })
}

// Records returns the filtered records
func (h *Handler) Records(c *gin.Context) {
	h.cached(c, func() (interface{}, error) { return h.svc.Records() })
}

// GetFilters returns the active criteria
func (h *Handler) GetFilters(c *gin.Context) {
	response.Success(c, h.svc.Criteria())
}

// PutFilters replaces every criterion
func (h *Handler) PutFilters(c *gin.Context) {
	var criteria filter.Criteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		response.BadRequest(c, "Invalid filter criteria: "+err.Error())
		return
	}

	updated, err := h.svc.SetCriteria(c.Request.Context(), criteria)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, updated)
}

// PutDateRange replaces the date range. A JSON null clears it.
func (h *Handler) PutDateRange(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var dr *records.DateRange
	if err := json.Unmarshal(body, &dr); err != nil {
		response.BadRequest(c, "Invalid date range: "+err.Error())
		return
	}

	updated, err := h.svc.SetDateRange(c.Request.Context(), dr)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, updated)
}

// PutEntities replaces the entity selection
func (h *Handler) PutEntities(c *gin.Context) {
	h.selection(c, h.svc.SetEntities)
}

// PutRegions replaces the region selection
func (h *Handler) PutRegions(c *gin.Context) {
	h.selection(c, h.svc.SetRegions)
}

// PutActivities replaces the activity selection
func (h *Handler) PutActivities(c *gin.Context) {
	h.selection(c, h.svc.SetActivities)
}

func (h *Handler) selection(c *gin.Context, set func(ctx context.Context, values []string) filter.Criteria) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid selection: "+err.Error())
		return
	}
	response.Success(c, set(c.Request.Context(), req.Values))
}

// ResetFilters selects everything again
func (h *Handler) ResetFilters(c *gin.Context) {
	criteria, err := h.svc.ResetFilters(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, criteria)
}

// RegionUtilization ranks regions by time spent
func (h *Handler) RegionUtilization(c *gin.Context) {
	locale := c.Query("locale")
	h.cached(c, func() (interface{}, error) { return h.svc.RegionUtilization(locale) })
}

// ActivityDistribution ranks activities by time spent
func (h *Handler) ActivityDistribution(c *gin.Context) {
	locale := c.Query("locale")
	h.cached(c, func() (interface{}, error) { return h.svc.ActivityDistribution(locale) })
}

// EntityTotals ranks entities by time recorded
func (h *Handler) EntityTotals(c *gin.Context) {
	locale := c.Query("locale")
	h.cached(c, func() (interface{}, error) { return h.svc.EntityTotals(locale) })
}

// Transitions counts region changes
func (h *Handler) Transitions(c *gin.Context) {
	h.cached(c, func() (interface{}, error) { return h.svc.Transitions() })
}

// Heatmap returns region totals placed on the floor plan
func (h *Handler) Heatmap(c *gin.Context) {
	h.cached(c, func() (interface{}, error) { return h.svc.Heatmap() })
}

// Timeline buckets the filtered records
func (h *Handler) Timeline(c *gin.Context) {
	var width int64
	if raw := c.Query("width"); raw != "" {
		w, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid width: "+raw)
			return
		}
		width = w
	}
	grouping := c.Query("grouping")
	locale := c.Query("locale")

	h.cached(c, func() (interface{}, error) { return h.svc.Timeline(grouping, width, locale) })
}

// Occupancy returns per-region occupancy at t, or at the playback
// position when t is absent
func (h *Handler) Occupancy(c *gin.Context) {
	t, ok := parseTime(c)
	if !ok {
		return
	}
	locale := c.Query("locale")
	h.timed(c, t, func() (interface{}, error) { return h.svc.OccupancyAt(t, locale) })
}

// ActiveEntities returns the records active at t
func (h *Handler) ActiveEntities(c *gin.Context) {
	t, ok := parseTime(c)
	if !ok {
		return
	}
	h.timed(c, t, func() (interface{}, error) { return h.svc.ActiveAt(t) })
}

// Map returns the floor-plan map view at t
func (h *Handler) Map(c *gin.Context) {
	t, ok := parseTime(c)
	if !ok {
		return
	}
	h.timed(c, t, func() (interface{}, error) { return h.svc.MapView(t) })
}

// PlaybackStatus reports the playback position
func (h *Handler) PlaybackStatus(c *gin.Context) {
	response.Success(c, h.svc.Playback().Status())
}

// Play starts or resumes playback
func (h *Handler) Play(c *gin.Context) {
	status, err := h.svc.Playback().Play()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, status)
}

// Pause halts playback at the current frame
func (h *Handler) Pause(c *gin.Context) {
	response.Success(c, h.svc.Playback().Pause())
}

// Stop halts playback and rewinds to the first frame
func (h *Handler) Stop(c *gin.Context) {
	response.Success(c, h.svc.Playback().Stop())
}

// Seek jumps to a frame index
func (h *Handler) Seek(c *gin.Context) {
	var req seekRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		response.BadRequest(c, "Invalid seek request: index is required")
		return
	}

	status, err := h.svc.Playback().Seek(*req.Index)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, status)
}

// Speed sets the playback speed multiplier
func (h *Handler) Speed(c *gin.Context) {
	var req speedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid speed request: "+err.Error())
		return
	}

	status, err := h.svc.Playback().SetSpeed(req.Speed)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, status)
}

// GetLocale reports the active locale
func (h *Handler) GetLocale(c *gin.Context) {
	response.Success(c, LocaleResponse{Locale: h.svc.Locale(), Supported: h.svc.SupportedLocales()})
}

// PutLocale switches the active locale
func (h *Handler) PutLocale(c *gin.Context) {
	var req localeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid locale request: "+err.Error())
		return
	}

	locale, err := h.svc.SetLocale(c.Request.Context(), req.Locale)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, LocaleResponse{Locale: locale, Supported: h.svc.SupportedLocales()})
}

// Strings returns the catalog resolved for ?locale= or the active locale
func (h *Handler) Strings(c *gin.Context) {
	locale := c.Query("locale")
	h.cached(c, func() (interface{}, error) {
		resolved := locale
		if resolved == "" {
			resolved = h.svc.Locale()
		}
		return StringsResponse{Locale: resolved, Strings: h.svc.Strings(locale)}, nil
	})
}

// cached serves a query from the cache, computing and storing it on a
// miss. The entry is only stored when the generation did not move while
// it was computed.
func (h *Handler) cached(c *gin.Context, compute func() (interface{}, error)) {
	if h.cache == nil {
		h.respond(c, compute)
		return
	}

	generation := h.svc.Generation()
	locale := h.svc.Locale()
	key := Key(generation, locale, c.Request.URL.RequestURI())

	if body, ok := h.cache.Get(key); ok {
		response.Raw(c, body)
		return
	}

	data, err := compute()
	if err != nil {
		h.fail(c, err)
		return
	}

	body, err := json.Marshal(response.Envelope(data))
	if err != nil {
		h.logger.Error("Failed to encode response", "error", err, "path", c.Request.URL.Path)
		response.InternalError(c, "failed to encode response")
		return
	}

	if h.svc.Generation() == generation && h.svc.Locale() == locale {
		h.cache.Set(key, body)
	}
	response.Raw(c, body)
}

// timed caches only explicit-time queries; without t the answer follows
// the playback position
func (h *Handler) timed(c *gin.Context, t *int64, compute func() (interface{}, error)) {
	if t == nil {
		h.respond(c, compute)
		return
	}
	h.cached(c, compute)
}

func (h *Handler) respond(c *gin.Context, compute func() (interface{}, error)) {
	data, err := compute()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, data)
}

func parseTime(c *gin.Context) (*int64, bool) {
	raw := c.Query("t")
	if raw == "" {
		return nil, true
	}
	t, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid time: "+raw)
		return nil, false
	}
	return &t, true
}

// fail maps service errors onto HTTP status codes
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, ingest.ErrMalformedJSON),
		errors.Is(err, ingest.ErrUnrecognizedShape),
		errors.Is(err, dashboard.ErrInvalidArgument),
		errors.Is(err, dashboard.ErrUnsupportedLocale),
		errors.Is(err, occupancy.ErrFrameOutOfRange),
		errors.Is(err, occupancy.ErrInvalidSpeed):
		response.BadRequest(c, err.Error())
	case errors.Is(err, dashboard.ErrNoData), errors.Is(err, dashboard.ErrNoLayout):
		response.NotFound(c, err.Error())
	case errors.Is(err, occupancy.ErrNoFrames):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error("Request failed", "error", err, "path", c.Request.URL.Path)
		response.InternalError(c, err.Error())
	}
}
