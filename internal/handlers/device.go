package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/fingerprint"
	"github.com/palisadehq/palisade/internal/models"
	pkghttp "github.com/palisadehq/palisade/pkg/http"
	pkglogger "github.com/palisadehq/palisade/pkg/logger"
)

// BanStatusProvider defines the interface for the guard's polling read
type BanStatusProvider interface {
	Status(ctx context.Context, fingerprint string) models.BanStatus
}

// DeviceResetter defines the interface for clearing a device's record
type DeviceResetter interface {
	Reset(ctx context.Context, fingerprint string) error
}

// DeviceHandler serves the ban-status polling endpoint and the
// authenticated device reset.
type DeviceHandler struct {
	guard    BanStatusProvider
	resetter DeviceResetter
	codec    *fingerprint.Codec
	audit    *pkglogger.AuditLogger
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(guard BanStatusProvider, resetter DeviceResetter, codec *fingerprint.Codec, audit *pkglogger.AuditLogger) *DeviceHandler {
	return &DeviceHandler{
		guard:    guard,
		resetter: resetter,
		codec:    codec,
		audit:    audit,
	}
}

// DeviceAttributesRequest mirrors the browser collector's payload. Every
// field is optional: absent attributes degrade to sentinel values inside
// the codec rather than rejecting the request.
type DeviceAttributesRequest struct {
	Platform            string `json:"platform"`
	HardwareConcurrency int    `json:"hardware_concurrency"`
	ScreenResolution    string `json:"screen_resolution"`
	ColorDepth          int    `json:"color_depth"`
	MaxTouchPoints      int    `json:"max_touch_points"`
	UserAgent           string `json:"user_agent"`
}

func (req *DeviceAttributesRequest) toModel() models.DeviceAttributes {
	return models.DeviceAttributes{
		Platform:            req.Platform,
		HardwareConcurrency: req.HardwareConcurrency,
		ScreenResolution:    req.ScreenResolution,
		ColorDepth:          req.ColorDepth,
		MaxTouchPoints:      req.MaxTouchPoints,
		UserAgent:           req.UserAgent,
	}
}

// Status handles the client-side ban poll. Clients call this every 30
// seconds from the banned page and every 10 minutes during a session to
// detect newly-imposed bans and force sign-out.
func (h *DeviceHandler) Status(w http.ResponseWriter, r *http.Request) {
	var req DeviceAttributesRequest
	// A malformed body is treated as an empty attribute set, not an error.
	_ = json.NewDecoder(r.Body).Decode(&req)

	fp := h.codec.Fingerprint(req.toModel())
	status := h.guard.Status(r.Context(), fp)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(status)
}

// Reset clears the attempt record for the caller's device. Requires an
// authenticated session.
func (h *DeviceHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req DeviceAttributesRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	fp := h.codec.Fingerprint(req.toModel())
	if err := h.resetter.Reset(r.Context(), fp); err != nil {
		pkghttp.WriteInternalError(w, "Failed to reset device record")
		return
	}

	var userID string
	if claims := auth.GetUserFromContext(r); claims != nil {
		userID = claims.UserID
	}
	h.audit.LogDeviceReset(fp, userID)

	w.WriteHeader(http.StatusNoContent)
}
