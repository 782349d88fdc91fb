package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/basel-ax/watermark-builder/internal/domain"
	"github.com/basel-ax/watermark-builder/internal/models"
	"github.com/basel-ax/watermark-builder/internal/picker"
	"github.com/basel-ax/watermark-builder/internal/service"
)

const (
	imageParamKey      = "image"
	defaultPreviewSize = 256
	maxPreviewSize     = 2048
	defaultHistorySize = 20
	maxUploadSize      = 20 << 20
)

// ResultStore returns results kept after their session moved on
type ResultStore interface {
	Get(ctx context.Context, sessionID string, seq uint64) ([]byte, error)
}

// HistoryLister lists the submission history of a session
type HistoryLister interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.SubmissionRecord, error)
}

// HealthChecker reports the health of one dependency
type HealthChecker func(ctx context.Context) error

// Options holds the optional collaborators of a SessionHandler
type Options struct {
	Results ResultStore
	History HistoryLister
	Health  map[string]HealthChecker
}

// SessionHandler serves the watermark session API
type SessionHandler struct {
	manager  *service.SessionManager
	exporter service.Exporter
	opts     Options
	logger   *zap.Logger
}

// NewSessionHandler creates a handler over the sessions of manager
func NewSessionHandler(
	manager *service.SessionManager,
	exporter service.Exporter,
	logger *zap.Logger,
	opts Options,
) *SessionHandler {
	return &SessionHandler{
		manager:  manager,
		exporter: exporter,
		opts:     opts,
		logger:   logger,
	}
}

// === SESSIONS ===

// CreateSession starts a session with default settings
func (h *SessionHandler) CreateSession(c *gin.Context) {
	s := h.manager.Create(c.Request.Context())
	c.JSON(http.StatusCreated, models.APIResponse{
		Success: true,
		Data:    models.CreatedSession{ID: s.ID()},
	})
}

// GetSession returns the settings and state of a session
func (h *SessionHandler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.respondData(c, http.StatusOK, sessionView(s.Snapshot()))
}

// DeleteSession resets and forgets a session
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if !h.manager.Remove(c.Param("id")) {
		h.respondError(c, http.StatusNotFound, service.ErrSessionNotFound.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// === SETTINGS ===

// SetMode selects text or custom mode
func (h *SessionHandler) SetMode(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req models.ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	s.SetMode(req.Mode)
	h.respondData(c, http.StatusOK, sessionView(s.Snapshot()))
}

// SetTextParams replaces the text watermark parameters
func (h *SessionHandler) SetTextParams(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var params domain.TextWatermarkParams
	if err := c.ShouldBindJSON(&params); err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.SetTextParams(params); err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	h.respondData(c, http.StatusOK, sessionView(s.Snapshot()))
}

// SetCustomParams replaces the image watermark parameters, keeping the watermark image
func (h *SessionHandler) SetCustomParams(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var params domain.CustomWatermarkParams
	if err := c.ShouldBindJSON(&params); err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.SetCustomParams(params); err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	h.respondData(c, http.StatusOK, sessionView(s.Snapshot()))
}

// UploadPicture sets the subject picture
func (h *SessionHandler) UploadPicture(c *gin.Context) {
	h.upload(c, picker.TargetPicture)
}

// UploadWatermark sets the image used in custom mode
func (h *SessionHandler) UploadWatermark(c *gin.Context) {
	h.upload(c, picker.TargetWatermark)
}

// SavePreset stores the session settings for later sessions with the same id
func (h *SessionHandler) SavePreset(c *gin.Context) {
	if _, ok := h.session(c); !ok {
		return
	}
	if err := h.manager.SavePreset(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Warn("Failed to save preset", zap.String("session", c.Param("id")), zap.Error(err))
		h.respondError(c, http.StatusServiceUnavailable, "Preset could not be saved")
		return
	}
	c.Status(http.StatusNoContent)
}

// === REQUESTS ===

// Submit issues a watermark request
func (h *SessionHandler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	sub := s.Submit(c.Request.Context())
	if sub == nil {
		h.respondError(c, http.StatusConflict, service.ErrNoPicture.Error())
		return
	}
	h.respondData(c, http.StatusAccepted, models.SubmitAccepted{Seq: sub.Seq()})
}

// Status returns the observed outcome
func (h *SessionHandler) Status(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap := s.Snapshot()
	h.respondData(c, http.StatusOK, statusView(snap.Outcome, snap.Seq))
}

// Result returns the watermarked image
func (h *SessionHandler) Result(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	outcome := s.Outcome()
	if outcome.State != domain.StateSuccess {
		h.respondError(c, http.StatusNotFound, service.ErrNoResult.Error())
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(outcome.Data), outcome.Data)
}

// ResultBySeq serves a cached result of an earlier submission
func (h *SessionHandler) ResultBySeq(c *gin.Context) {
	if h.opts.Results == nil {
		h.respondError(c, http.StatusNotFound, "Result cache is not configured")
		return
	}
	seq, err := strconv.ParseUint(c.Param("seq"), 10, 64)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "seq must be a positive integer")
		return
	}
	data, err := h.opts.Results.Get(c.Request.Context(), c.Param("id"), seq)
	if err != nil {
		h.logger.Error("Failed to read cached result", zap.Error(err))
		h.respondError(c, http.StatusServiceUnavailable, "Result cache unavailable")
		return
	}
	if data == nil {
		h.respondError(c, http.StatusNotFound, service.ErrNoResult.Error())
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// Preview serves a downscaled PNG of the result, or of the picture while there is no result
func (h *SessionHandler) Preview(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	size, err := parsePreviewSize(c.Query("size"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var source []byte
	if outcome := s.Outcome(); outcome.State == domain.StateSuccess {
		source = outcome.Data
	} else if p, ok := s.Picture(); ok {
		source = p.Data
	} else {
		h.respondError(c, http.StatusNotFound, service.ErrNoPicture.Error())
		return
	}

	preview, err := picker.Preview(source, size)
	if err != nil {
		h.respondError(c, http.StatusUnprocessableEntity, "Image cannot be previewed")
		return
	}
	c.Data(http.StatusOK, "image/png", preview)
}

// Export stores the result with the configured exporter
func (h *SessionHandler) Export(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if s.Outcome().State != domain.StateSuccess {
		h.respondError(c, http.StatusConflict, service.ErrNoResult.Error())
		return
	}
	location, exported := s.Export(c.Request.Context(), h.exporter)
	if !exported {
		h.respondError(c, http.StatusBadGateway, "Export failed")
		return
	}
	h.respondData(c, http.StatusOK, models.Exported{Location: location})
}

// Reset discards the current result or in-flight request
func (h *SessionHandler) Reset(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Reset()
	c.Status(http.StatusNoContent)
}

// History lists the latest submissions of a session
func (h *SessionHandler) History(c *gin.Context) {
	if h.opts.History == nil {
		h.respondError(c, http.StatusServiceUnavailable, "Submission history is not configured")
		return
	}
	records, err := h.opts.History.ListBySession(c.Request.Context(), c.Param("id"), defaultHistorySize)
	if err != nil {
		h.logger.Error("Failed to list submissions", zap.Error(err))
		h.respondError(c, http.StatusServiceUnavailable, "Submission history unavailable")
		return
	}
	views := make([]models.SubmissionView, 0, len(records))
	for _, rec := range records {
		views = append(views, models.SubmissionView{
			Seq:       rec.Seq,
			Mode:      rec.Mode.String(),
			State:     rec.State.String(),
			Message:   rec.Message,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	h.respondData(c, http.StatusOK, views)
}

// HealthCheck
func (h *SessionHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string, len(h.opts.Health))
	overall := "healthy"
	for name, check := range h.opts.Health {
		if err := check(ctx); err != nil {
			services[name] = "unhealthy: " + err.Error()
			overall = "unhealthy"
			continue
		}
		services[name] = "healthy"
	}

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
		},
	})
}

// === HELPERS ===

func (h *SessionHandler) session(c *gin.Context) (*service.Session, bool) {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			h.respondError(c, http.StatusNotFound, "Session not found")
		} else {
			h.respondError(c, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) upload(c *gin.Context, target picker.Target) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	file, _, err := c.Request.FormFile(imageParamKey)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	completion := picker.NewCompletion()
	payload, err := picker.Import(file)
	if err != nil {
		completion.Dismiss()
		h.respondError(c, http.StatusBadRequest, "Unsupported image: "+err.Error())
		return
	}
	completion.Resolve(payload)
	s.Pick(c.Request.Context(), target, completion)

	h.respondData(c, http.StatusOK, sessionView(s.Snapshot()))
}

func (h *SessionHandler) respondData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, models.APIResponse{
		Success: true,
		Data:    data,
	})
}

func (h *SessionHandler) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

func parsePreviewSize(raw string) (int, error) {
	if raw == "" {
		return defaultPreviewSize, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size <= 0 || size > maxPreviewSize {
		return 0, errors.New("size must be between 1 and " + strconv.Itoa(maxPreviewSize))
	}
	return size, nil
}

func statusView(o domain.Outcome, seq uint64) models.Status {
	return models.Status{State: o.State.String(), Message: o.Message, Seq: seq}
}

func sessionView(snap service.Snapshot) models.SessionView {
	return models.SessionView{
		ID:   snap.ID,
		Mode: snap.Mode,
		Text: snap.Text,
		Custom: models.CustomParamsView{
			Opacity:       snap.Custom.Opacity,
			RotationAngle: snap.Custom.RotationAngle,
			DensityLevel:  snap.Custom.DensityLevel,
			HasWatermark:  snap.HasWatermark,
		},
		HasPicture: snap.HasPicture,
		Status:     statusView(snap.Outcome, snap.Seq),
	}
}
