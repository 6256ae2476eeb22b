package auth

import (
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/account-service/internal/account"
	"github.com/redmonkez12/account-service/internal/apperr"
	"github.com/redmonkez12/account-service/internal/httputil"
	"github.com/redmonkez12/account-service/internal/logging"
	"github.com/redmonkez12/account-service/internal/ratelimit"
)

const (
	msgCredentials  = "Could not validate credentials"
	msgUserNotFound = "User was Not Found"
	msgInvalidData  = "Provided Data was Not Valid"
	msgDuplicate    = "Username or email already in use"
)

// Handler contains HTTP handlers for the account endpoints
type Handler struct {
	service     *Service
	rateLimiter *ratelimit.Limiter
}

// NewHandler builds the handlers. A nil rateLimiter disables throttling.
func NewHandler(service *Service, rateLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
	}
}

// TokenResponse follows the OAuth2 password grant response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type validator interface {
	Validate() error
}

// Login accepts a JSON body or an OAuth2 password form (username carries the email).
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.throttled(w, r, "login") {
		return
	}

	var req LoginRequest
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			logger.Warn("invalid login form", "error", err.Error())
			respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
			return
		}
		req = LoginRequest{Email: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}
	} else if !decode(w, r, &req) {
		return
	}

	if err := req.Validate(); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	tok, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	logger.Info("user logged in successfully")
	httputil.RespondJSON(w, TokenResponse{AccessToken: tok, TokenType: "bearer"}, http.StatusOK)
}

func (h *Handler) BeginRegistration(w http.ResponseWriter, r *http.Request) {
	if h.throttled(w, r, "new-email") {
		return
	}

	var req EmailRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := h.service.BeginRegistration(r.Context(), req.Email); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondMessage(w, "Please check your email to continue", http.StatusAccepted)
}

func (h *Handler) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.throttled(w, r, "new-user") {
		return
	}

	var req NewUserRequest
	if !decodeValid(w, r, &req) {
		return
	}

	a, err := h.service.CompleteRegistration(r.Context(), chi.URLParam(r, "id"), req.Username, req.Password)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	logger.Info("registration completed", "account_id", a.ID)
	httputil.RespondJSON(w, a.Details(), http.StatusCreated)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if h.throttled(w, r, "forgot-password") {
		return
	}

	var req EmailRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondMessage(w, "Password reset email sent", http.StatusAccepted)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if h.throttled(w, r, "reset-password") {
		return
	}

	var req PasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "id"), req.Password); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondMessage(w, "Password has been reset", http.StatusAccepted)
}

func (h *Handler) GetDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.GetDetails(r.Context(), BearerFromContext(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, details, http.StatusOK)
}

func (h *Handler) EditProfile(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decodeValid(w, r, &req) {
		return
	}

	details, err := h.service.EditProfile(r.Context(), BearerFromContext(r.Context()), req.ProfileUpdate())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, details, http.StatusAccepted)
}

func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.Disable(r.Context(), BearerFromContext(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, details, http.StatusAccepted)
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}

	details, err := h.service.UpdatePassword(r.Context(), BearerFromContext(r.Context()), req.Password)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, details, http.StatusAccepted)
}

// respondServiceError maps error kinds to status codes. Authentication
// failures all get the same message.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		logger.Warn("request rejected: validation error", "error", err.Error())
		respondError(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	case apperr.ErrNotFound:
		logger.Warn("request rejected: not found", "error", err.Error())
		if errors.Is(err, account.ErrNotFound) {
			respondError(w, msgUserNotFound, httputil.CodeUserNotFound, http.StatusBadRequest)
			return
		}
		respondError(w, msgInvalidData, httputil.CodeInvalidRequest, http.StatusBadRequest)
	case apperr.ErrDuplicateKey:
		logger.Warn("request rejected: duplicate", "error", err.Error())
		respondError(w, msgDuplicate, httputil.CodeAlreadyExists, http.StatusConflict)
	case apperr.ErrAuthentication:
		logger.Warn("request rejected: authentication failed", "error", err.Error())
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondError(w, msgCredentials, httputil.CodeInvalidCredentials, http.StatusUnauthorized)
	default:
		logger.Error("request failed: internal error", "error", err.Error())
		respondError(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

// throttled records the request and writes 429 when ip has exceeded its window.
// Limiter failures are logged and never block the request.
func (h *Handler) throttled(w http.ResponseWriter, r *http.Request, purpose string) bool {
	if h.rateLimiter == nil {
		return false
	}
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return false
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.GetLoggerFromContext(r.Context()).Warn("invalid request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return false
	}
	return true
}

func decodeValid(w http.ResponseWriter, r *http.Request, dst validator) bool {
	if !decode(w, r, dst) {
		return false
	}
	if err := dst.Validate(); err != nil {
		logging.GetLoggerFromContext(r.Context()).Warn("request rejected: validation error", "error", err.Error())
		respondError(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return false
	}
	return true
}

func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

// getClientIP keys on the connection address. Forwarded headers are only
// honored once the router's RealIP middleware has rewritten RemoteAddr from a
// trusted proxy hop.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
