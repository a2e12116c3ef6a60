package exchange

import (
	"errors"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/billingo/billingo-go/internal/envelope"
	"github.com/billingo/billingo-go/tokenrequest"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 4 << 10

// Handler serves POST requests carrying {"request": "<token request string>"}
// and answers with {"success": true, "data": {"token": ..., "expires_at": ...}}.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler returns a Handler. A nil logger discards log output.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger.Named("exchange")}
}

type exchangeRequest struct {
	Request string `json:"request"`
}

type exchangeResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		envelope.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "cannot read request body")
		return
	}
	var req exchangeRequest
	if err := json.Unmarshal(body, &req); err != nil || strings.TrimSpace(req.Request) == "" {
		envelope.WriteError(w, http.StatusBadRequest, "request field is required")
		return
	}

	tok, err := h.service.Exchange(r.Context(), req.Request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("token issued", zap.String("public_key", tok.PublicKey), zap.Time("expires_at", tok.ExpiresAt))
	envelope.Write(w, http.StatusOK, exchangeResponse{Token: tok.Value, ExpiresAt: tok.ExpiresAt.Unix()})
}

// fail maps exchange errors to responses. Stale timing is routine clock skew
// and logs at Warn; a bad signature logs at Error so operators can alert on it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	fields := []zap.Field{zap.String("remote_addr", r.RemoteAddr), zap.Error(err)}

	switch {
	case errors.Is(err, tokenrequest.ErrMalformedRequestString):
		h.logger.Warn("malformed token request", fields...)
		envelope.WriteError(w, http.StatusBadRequest, "malformed token request")
	case errors.Is(err, tokenrequest.ErrTimingInvalid):
		h.logger.Warn("token request outside timing window", fields...)
		envelope.WriteError(w, http.StatusUnauthorized, "token request expired")
	case errors.Is(err, tokenrequest.ErrSignatureInvalid):
		h.logger.Error("token request signature mismatch", fields...)
		envelope.WriteError(w, http.StatusUnauthorized, "invalid token request signature")
	case errors.Is(err, ErrUnknownPublicKey):
		h.logger.Warn("token request for unknown public key", fields...)
		envelope.WriteError(w, http.StatusUnauthorized, "invalid token request signature")
	case errors.Is(err, ErrReplayed):
		h.logger.Warn("token request replayed", fields...)
		envelope.WriteError(w, http.StatusUnauthorized, "token request already used")
	default:
		h.logger.Error("token exchange failed", fields...)
		envelope.WriteError(w, http.StatusServiceUnavailable, "token exchange unavailable")
	}
}
