package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rlagosf/rafc-go-backend/internal/domain"
	"github.com/rlagosf/rafc-go-backend/internal/http/response"
	"github.com/rlagosf/rafc-go-backend/internal/repository"
	"github.com/rlagosf/rafc-go-backend/internal/security"
	"github.com/rlagosf/rafc-go-backend/internal/service"
)

type SigningHandler struct {
	signingSvc service.SigningServiceInterface
}

func NewSigningHandler(signingSvc service.SigningServiceInterface) *SigningHandler {
	return &SigningHandler{signingSvc: signingSvc}
}

type issueTokenRequest struct {
	PlayerRut   int64  `json:"rut_jugador"`
	GuardianRut int64  `json:"rut_apoderado"`
	NotifyEmail string `json:"email_notificacion,omitempty"`
	TTLHours    int64  `json:"ttl_horas,omitempty"`
}

type issueTokenResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expira_en"`
	PlayerRut   int64     `json:"rut_jugador"`
	GuardianRut int64     `json:"rut_apoderado"`
	NotifyEmail string    `json:"email_notificacion,omitempty"`
}

type tokenMetadataResponse struct {
	Status      string    `json:"estado"`
	PlayerRut   int64     `json:"rut_jugador"`
	GuardianRut int64     `json:"rut_apoderado"`
	ExpiresAt   time.Time `json:"expira_en"`
	CreatedAt   time.Time `json:"creado_en"`
}

type signContractRequest struct {
	DocumentBase64 string `json:"documento_base64"`
	TermsAccepted  bool   `json:"acepta_terminos"`
}

type signedContractResponse struct {
	ContractID  uint      `json:"contrato_id"`
	PlayerRut   int64     `json:"rut_jugador"`
	GuardianRut int64     `json:"rut_apoderado"`
	GeneratedAt time.Time `json:"generado_en"`
}

// Issue handles POST /api/v1/firma-tokens. Staff only; the raw token in the
// response is shown exactly once.
func (h *SigningHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if req.TTLHours < 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "ttl_horas must not be negative", nil)
		return
	}

	issued, err := h.signingSvc.IssueToken(r.Context(), service.IssueTokenInput{
		PlayerRut:   req.PlayerRut,
		GuardianRut: req.GuardianRut,
		NotifyEmail: req.NotifyEmail,
		TTL:         time.Duration(req.TTLHours) * time.Hour,
		RequestIP:   clientIP(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRut):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "rut_jugador and rut_apoderado must be positive", nil)
		case errors.Is(err, service.ErrTTLOutOfRange):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "requested ttl exceeds the allowed maximum", nil)
		case errors.Is(err, repository.ErrPlayerNotFound):
			response.Error(w, r, http.StatusConflict, "REFERENCED_ENTITY_NOT_FOUND", "rut_jugador is not registered", nil)
		case errors.Is(err, repository.ErrGuardianNotFound):
			response.Error(w, r, http.StatusConflict, "REFERENCED_ENTITY_NOT_FOUND", "rut_apoderado is not registered", nil)
		case errors.Is(err, service.ErrTokenGeneration):
			response.Error(w, r, http.StatusServiceUnavailable, "BUSY", "could not issue a token, retry", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to issue signing token", nil)
		}
		return
	}

	response.JSON(w, r, http.StatusCreated, issueTokenResponse{
		Token:       issued.RawToken,
		ExpiresAt:   issued.ExpiresAt,
		PlayerRut:   issued.PlayerRut,
		GuardianRut: issued.GuardianRut,
		NotifyEmail: issued.NotifyEmail,
	})
}

// Validate handles GET /api/v1/firma-tokens/{token}. Read only; a 200 here
// does not reserve the token.
func (h *SigningHandler) Validate(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "token")

	meta, err := h.signingSvc.ValidateToken(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrInvalidTokenFormat), errors.Is(err, repository.ErrSigningTokenNotFound):
			// Malformed input answers exactly like an unknown token.
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "signing token not found", nil)
		case errors.Is(err, service.ErrTokenExpired):
			response.Error(w, r, http.StatusGone, "TOKEN_EXPIRED", "signing token expired", metadataBody(meta))
		case errors.Is(err, service.ErrTokenAlreadyUsed):
			response.Error(w, r, http.StatusConflict, "TOKEN_ALREADY_USED", "signing token already used", metadataBody(meta))
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to validate signing token", nil)
		}
		return
	}

	response.JSON(w, r, http.StatusOK, metadataBody(meta))
}

// Sign handles POST /api/v1/firma-tokens/{token}/firmar.
func (h *SigningHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req signContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}

	contract, err := h.signingSvc.ConsumeAndSign(r.Context(), service.ConsumeInput{
		RawToken:       chi.URLParam(r, "token"),
		DocumentBase64: req.DocumentBase64,
		TermsAccepted:  req.TermsAccepted,
		RequestIP:      clientIP(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTermsNotAccepted):
			response.Error(w, r, http.StatusBadRequest, "TERMS_NOT_ACCEPTED", "acepta_terminos must be true", nil)
		case errors.Is(err, security.ErrInvalidTokenFormat), errors.Is(err, repository.ErrSigningTokenNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "signing token not found", nil)
		case errors.Is(err, service.ErrTokenExpired):
			response.Error(w, r, http.StatusGone, "TOKEN_EXPIRED", "signing token expired", nil)
		case errors.Is(err, service.ErrTokenAlreadyUsed):
			response.Error(w, r, http.StatusConflict, "TOKEN_ALREADY_USED", "signing token already used", nil)
		case errors.Is(err, service.ErrDocumentTooLarge):
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "documento_base64 exceeds the size limit", nil)
		case errors.Is(err, service.ErrDocumentRequired), errors.Is(err, service.ErrInvalidDocument):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "documento_base64 is missing or not valid base64", nil)
		case errors.Is(err, repository.ErrReferencedEntityInvalid):
			response.Error(w, r, http.StatusConflict, "REFERENCED_ENTITY_NOT_FOUND", "player or guardian no longer registered", nil)
		case errors.Is(err, service.ErrConsumeBusy):
			w.Header().Set("Retry-After", "1")
			response.Error(w, r, http.StatusServiceUnavailable, "BUSY", "signing in progress, retry", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to sign contract", nil)
		}
		return
	}

	response.JSON(w, r, http.StatusCreated, signedContractResponse{
		ContractID:  contract.ID,
		PlayerRut:   contract.PlayerRut,
		GuardianRut: contract.GuardianRut,
		GeneratedAt: contract.GeneratedAt,
	})
}

func metadataBody(meta *service.TokenMetadata) *tokenMetadataResponse {
	if meta == nil {
		return nil
	}
	return &tokenMetadataResponse{
		Status:      statusLabel(meta.Status),
		PlayerRut:   meta.PlayerRut,
		GuardianRut: meta.GuardianRut,
		ExpiresAt:   meta.ExpiresAt,
		CreatedAt:   meta.CreatedAt,
	}
}

func statusLabel(status domain.TokenStatus) string {
	switch status {
	case domain.TokenStatusValid:
		return "valido"
	case domain.TokenStatusExpired:
		return "expirado"
	case domain.TokenStatusUsed:
		return "usado"
	default:
		return string(status)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
