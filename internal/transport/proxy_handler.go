package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	proxyDefaultPage  = "1"
	proxyDefaultLimit = "50"
	// maxProxyBody caps a backend response relayed to the browser.
	maxProxyBody = 10 << 20
)

// ProxyHandler relays the store directory to browser scripts on the same
// origin. The caller's Authorization header is forwarded unchanged.
type ProxyHandler struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewProxyHandler(baseURL string, timeout time.Duration, logger *zap.Logger) *ProxyHandler {
	return &ProxyHandler{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (h *ProxyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/admin/stores", h.Stores)
}

// proxyError is the error body of the relay.
type proxyError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeProxyError(w http.ResponseWriter, status int, message string) {
	body, _ := json.Marshal(proxyError{Error: message})
	writeJSON(w, status, body)
}

// Stores relays GET /admin/stores with page and limit defaulted and search
// passed only when present.
func (h *ProxyHandler) Stores(w http.ResponseWriter, r *http.Request) {
	in := r.URL.Query()
	q := url.Values{}
	q.Set("page", valueOr(in.Get("page"), proxyDefaultPage))
	q.Set("limit", valueOr(in.Get("limit"), proxyDefaultLimit))
	if search := in.Get("search"); search != "" {
		q.Set("search", search)
	}
	target := h.baseURL + "/admin/stores?" + q.Encode()
	h.logger.Debug("Relaying store list", zap.String("url", target))

	status, body, err := h.fetch(r.Context(), target, r.Header.Get("Authorization"))
	if err != nil {
		h.logger.Error("Store relay failed", zap.Error(err))
		writeProxyError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if status < 200 || status >= 300 {
		h.logger.Warn("Backend rejected store list", zap.Int("status", status), zap.ByteString("body", body))
		var backend proxyError
		_ = json.Unmarshal(body, &backend)
		writeProxyError(w, status, valueOr(backend.Error, "Failed to fetch stores from backend"))
		return
	}

	if !json.Valid(body) {
		h.logger.Error("Backend returned invalid JSON for store list")
		writeProxyError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *ProxyHandler) fetch(ctx context.Context, target, authorization string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBody))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
