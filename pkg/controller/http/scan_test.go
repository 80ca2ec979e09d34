package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	controller "github.com/m-mizutani/upwatch/pkg/controller/http"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
)

type mockScanUseCase struct {
	runScanFunc     func(ctx context.Context) (*model.ScanReport, error)
	scanTargetsFunc func(ctx context.Context, targets []*model.Target) (*model.ScanReport, error)
}

func (m *mockScanUseCase) RunScan(ctx context.Context) (*model.ScanReport, error) {
	if m.runScanFunc != nil {
		return m.runScanFunc(ctx)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockScanUseCase) ScanTargets(ctx context.Context, targets []*model.Target) (*model.ScanReport, error) {
	if m.scanTargetsFunc != nil {
		return m.scanTargetsFunc(ctx, targets)
	}
	return nil, errors.New("mock not configured")
}

func serve(server *controller.Server, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)
	return w
}

// waitLatest polls GET /scans/latest until a report is available
func waitLatest(t *testing.T, server *controller.Server) *model.ScanReport {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := serve(server, http.MethodGet, "/scans/latest", "")
		if w.Code == http.StatusOK {
			var report model.ScanReport
			gt.NoError(t, json.NewDecoder(w.Body).Decode(&report))
			return &report
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scan report was not published in time")
	return nil
}

func TestScanEndpoints(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	uc := &mockScanUseCase{
		runScanFunc: func(ctx context.Context) (*model.ScanReport, error) {
			started <- struct{}{}
			<-release
			return &model.ScanReport{ID: "scan-1", TargetCount: 3, UpdateCount: 1}, nil
		},
	}

	server, err := controller.NewServer(ctx, uc, controller.WithScanToken("s3cret"))
	gt.NoError(t, err)

	t.Run("no report yet", func(t *testing.T) {
		w := serve(server, http.MethodGet, "/scans/latest", "")
		gt.Equal(t, w.Code, http.StatusNotFound)
	})

	t.Run("missing token", func(t *testing.T) {
		w := serve(server, http.MethodPost, "/scans", "")
		gt.Equal(t, w.Code, http.StatusUnauthorized)
	})

	t.Run("wrong token", func(t *testing.T) {
		w := serve(server, http.MethodPost, "/scans", "guess")
		gt.Equal(t, w.Code, http.StatusUnauthorized)
	})

	w := serve(server, http.MethodPost, "/scans", "s3cret")
	gt.Equal(t, w.Code, http.StatusAccepted)
	<-started

	t.Run("second scan is rejected while running", func(t *testing.T) {
		w := serve(server, http.MethodPost, "/scans", "s3cret")
		gt.Equal(t, w.Code, http.StatusConflict)
	})

	close(release)
	report := waitLatest(t, server)
	gt.Equal(t, report.ID, model.ScanID("scan-1"))
	gt.Equal(t, report.UpdateCount, 1)
}

func TestScanWithoutToken(t *testing.T) {
	ctx := context.Background()
	done := make(chan struct{})

	uc := &mockScanUseCase{
		runScanFunc: func(ctx context.Context) (*model.ScanReport, error) {
			defer close(done)
			return nil, errors.New("ledger prepare failure")
		},
	}

	server, err := controller.NewServer(ctx, uc)
	gt.NoError(t, err)

	w := serve(server, http.MethodPost, "/scans", "")
	gt.Equal(t, w.Code, http.StatusAccepted)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scan was not started")
	}

	// a failed scan publishes no report
	w = serve(server, http.MethodGet, "/scans/latest", "")
	gt.Equal(t, w.Code, http.StatusNotFound)
}
