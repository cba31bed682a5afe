package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/palisadehq/palisade/internal/fingerprint"
	"github.com/palisadehq/palisade/internal/models"
	"github.com/palisadehq/palisade/internal/services"
	pkghttp "github.com/palisadehq/palisade/pkg/http"
)

// FormServiceInterface defines the interface for form submission logic
type FormServiceInterface interface {
	SubmitContact(ctx context.Context, sub *models.ContactSubmission) (string, error)
	SubmitReferral(ctx context.Context, sub *models.ReferralSubmission) (string, error)
	SubmitMember(ctx context.Context, sub *models.MemberSubmission) (string, error)
}

// FormHandler handles the public form submission endpoints
type FormHandler struct {
	service  FormServiceInterface
	codec    *fingerprint.Codec
	ipConfig *pkghttp.IPConfig
}

// NewFormHandler creates a new FormHandler
func NewFormHandler(service FormServiceInterface, codec *fingerprint.Codec, ipConfig *pkghttp.IPConfig) *FormHandler {
	return &FormHandler{
		service:  service,
		codec:    codec,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// ContactRequest represents the request body for the contact form
type ContactRequest struct {
	Name    string                  `json:"name" validate:"required,min=1,max=100"`
	Email   string                  `json:"email" validate:"required,email"`
	Message string                  `json:"message" validate:"required,min=1,max=5000"`
	Device  DeviceAttributesRequest `json:"device"`
}

// ReferralRequest represents the request body for the referral form
type ReferralRequest struct {
	ReferrerName  string                  `json:"referrer_name" validate:"required,min=1,max=100"`
	ReferrerEmail string                  `json:"referrer_email" validate:"required,email"`
	CandidateName string                  `json:"candidate_name" validate:"required,min=1,max=100"`
	CandidateInfo string                  `json:"candidate_info" validate:"max=5000"`
	Device        DeviceAttributesRequest `json:"device"`
}

// MemberContactRequest represents the request body for the member-contact form
type MemberContactRequest struct {
	MemberID  string                  `json:"member_id" validate:"required,uuid"`
	Name      string                  `json:"name" validate:"required,min=1,max=100"`
	Email     string                  `json:"email" validate:"required,email"`
	Message   string                  `json:"message" validate:"required,min=1,max=5000"`
	Interests []string                `json:"interests" validate:"max=20,dive,max=50"`
	Device    DeviceAttributesRequest `json:"device"`
}

// SubmissionResponse is returned when a submission is accepted
type SubmissionResponse struct {
	ID string `json:"id"`
}

// SubmitContact handles POST /forms/contact
func (h *FormHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	sub := &models.ContactSubmission{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Message:     req.Message,
		Fingerprint: h.codec.Fingerprint(req.Device.toModel()),
		IPAddress:   pkghttp.ExtractClientIP(r, h.ipConfig),
	}

	id, err := h.service.SubmitContact(r.Context(), sub)
	if err != nil {
		h.writeSubmissionError(w, err)
		return
	}

	writeCreated(w, id)
}

// SubmitReferral handles POST /forms/referral
func (h *FormHandler) SubmitReferral(w http.ResponseWriter, r *http.Request) {
	var req ReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	sub := &models.ReferralSubmission{
		ReferrerName:  strings.TrimSpace(req.ReferrerName),
		ReferrerEmail: strings.ToLower(strings.TrimSpace(req.ReferrerEmail)),
		CandidateName: strings.TrimSpace(req.CandidateName),
		CandidateInfo: req.CandidateInfo,
		Fingerprint:   h.codec.Fingerprint(req.Device.toModel()),
		IPAddress:     pkghttp.ExtractClientIP(r, h.ipConfig),
	}

	id, err := h.service.SubmitReferral(r.Context(), sub)
	if err != nil {
		h.writeSubmissionError(w, err)
		return
	}

	writeCreated(w, id)
}

// SubmitMember handles POST /forms/member
func (h *FormHandler) SubmitMember(w http.ResponseWriter, r *http.Request) {
	var req MemberContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	sub := &models.MemberSubmission{
		MemberID:    req.MemberID,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Message:     req.Message,
		Interests:   req.Interests,
		Fingerprint: h.codec.Fingerprint(req.Device.toModel()),
		IPAddress:   pkghttp.ExtractClientIP(r, h.ipConfig),
	}

	id, err := h.service.SubmitMember(r.Context(), sub)
	if err != nil {
		h.writeSubmissionError(w, err)
		return
	}

	writeCreated(w, id)
}

func (h *FormHandler) writeSubmissionError(w http.ResponseWriter, err error) {
	var banErr *services.DeviceBannedError
	if errors.As(err, &banErr) {
		pkghttp.WriteDeviceBanned(w, banErr.RetryAfter(), banErr.BannedUntil)
		return
	}
	if errors.Is(err, models.ErrBadRequest) {
		pkghttp.WriteBadRequest(w, "Invalid submission")
		return
	}
	pkghttp.WriteInternalError(w, "Failed to store submission")
}

func writeCreated(w http.ResponseWriter, id string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(SubmissionResponse{ID: id})
}
