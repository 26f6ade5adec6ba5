package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tabletop/internal/models"
	"tabletop/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// DashboardHandlers serves the realtime table dashboard.
type DashboardHandlers struct {
	dashboardService services.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandlers(dashboardService services.DashboardService, logger *zap.Logger) *DashboardHandlers {
	return &DashboardHandlers{dashboardService: dashboardService, logger: logger}
}

// Snapshot handles GET /waiter/dashboard
func (h *DashboardHandlers) Snapshot(c echo.Context) error {
	snap, err := h.dashboardService.Snapshot(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "load dashboard", err)
	}
	return c.JSON(http.StatusOK, snap)
}

// Stream handles GET /waiter/dashboard/stream as server-sent events. Each
// "snapshot" event carries the full dashboard.
func (h *DashboardHandlers) Stream(c echo.Context) error {
	sink := &sseSink{resp: c.Response()}
	err := h.dashboardService.Stream(c.Request().Context(), sink)
	if err == nil {
		return nil
	}
	if !sink.started {
		return respondError(c, h.logger, "stream dashboard", err)
	}
	h.logger.Debug("dashboard stream ended", zap.Error(err))
	return nil
}

// sseSink writes dashboard updates to an event stream. Headers go out with
// the first snapshot, so failures before it can still produce a JSON error.
type sseSink struct {
	resp    *echo.Response
	started bool
}

func (s *sseSink) start() {
	if s.started {
		return
	}
	h := s.resp.Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.resp.WriteHeader(http.StatusOK)
	s.started = true
}

func (s *sseSink) Snapshot(snapshot *models.DashboardSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	s.start()
	if _, err := fmt.Fprintf(s.resp, "event: snapshot\ndata: %s\n\n", data); err != nil {
		return err
	}
	s.resp.Flush()
	return nil
}

func (s *sseSink) Heartbeat() error {
	s.start()
	if _, err := fmt.Fprint(s.resp, ": ping\n\n"); err != nil {
		return err
	}
	s.resp.Flush()
	return nil
}
