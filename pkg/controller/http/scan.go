package http

import (
	"context"
	"crypto/hmac"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/utils/async"
)

// ScanHandler starts background scans and serves the last finished report. At most one scan
// runs at a time.
type ScanHandler struct {
	scanUC interfaces.ScanUseCase
	token  string

	running atomic.Bool

	mu     sync.RWMutex
	latest *model.ScanReport
}

// NewScanHandler creates a new ScanHandler. An empty token disables authentication.
func NewScanHandler(scanUC interfaces.ScanUseCase, token string) *ScanHandler {
	return &ScanHandler{
		scanUC: scanUC,
		token:  token,
	}
}

type scanAccepted struct {
	Status string `json:"status"`
}

// Trigger handles POST /scans
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.From(r.Context())

	if !h.authorized(r) {
		logger.Warn("Unauthorized scan request")
		writeError(w, r, goerr.New("unauthorized"), http.StatusUnauthorized)
		return
	}

	if !h.running.CompareAndSwap(false, true) {
		writeError(w, r, goerr.New("scan is already running"), http.StatusConflict)
		return
	}

	async.Dispatch(r.Context(), "scan", func(ctx context.Context) error {
		defer h.running.Store(false)

		report, err := h.scanUC.RunScan(ctx)
		if err != nil {
			return goerr.Wrap(err, "background scan failed")
		}

		h.mu.Lock()
		h.latest = report
		h.mu.Unlock()
		return nil
	})

	logger.Info("Scan started")
	writeJSON(w, r, &scanAccepted{Status: "accepted"}, http.StatusAccepted)
}

// Latest handles GET /scans/latest
func (h *ScanHandler) Latest(w http.ResponseWriter, r *http.Request) {
	report := h.latestReport()
	if report == nil {
		writeError(w, r, goerr.New("no scan has finished yet"), http.StatusNotFound)
		return
	}
	writeJSON(w, r, report, http.StatusOK)
}

func (h *ScanHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return true
	}
	given, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return hmac.Equal([]byte(given), []byte(h.token))
}

func (h *ScanHandler) latestReport() *model.ScanReport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}
