package httpclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/starnight-hq/starnight-client/internal/domain"
)

// escalateOutage is called for outage-shaped failures only: a transport error
// without a response, or a 502-504. It probes the backend once and, when the
// probe confirms the outage, navigates to the maintenance page.
func (c *SessionClient) escalateOutage(ctx context.Context, req *Request, cause error) error {
	alive, probeErr := c.probeAlive(ctx)
	if alive {
		c.log.DebugObj("backend alive after failed request", "outage_probe", map[string]any{
			"method": req.Method,
			"url":    req.Path,
			"error":  cause.Error(),
		})
		return cause
	}

	target := c.maintenanceTarget()
	meta := map[string]any{
		"method": req.Method,
		"url":    req.Path,
		"target": target,
		"error":  cause.Error(),
	}
	if probeErr != nil {
		meta["probe_error"] = probeErr.Error()
	}
	c.log.ErrorObj("backend unreachable; entering maintenance", "outage_probe", meta)

	if err := c.navigator.Navigate(ctx, target); err != nil {
		c.log.WarnObj("maintenance navigation failed", "maintenance_navigation", map[string]any{
			"target": target,
			"error":  err.Error(),
		})
	}
	c.observer.Observe(ctx, domain.ClientEvent{
		ID:         uuid.NewString(),
		Kind:       domain.EventMaintenanceEntered,
		Method:     req.Method,
		URL:        req.Path,
		StatusCode: StatusCode(cause),
		Target:     target,
		Error:      cause.Error(),
		OccurredAt: c.now().UTC(),
	})
	return &MaintenanceError{Target: target, Err: cause}
}

// probeAlive sends an uncredentialed HEAD to the probe endpoint.
func (c *SessionClient) probeAlive(ctx context.Context) (bool, error) {
	resp, err := c.probe.R().
		SetContext(context.WithoutCancel(ctx)).
		SetHeader(HeaderRequestID, uuid.NewString()).
		Head(c.probePath)
	if err != nil {
		return false, fmt.Errorf("probe request: %w", err)
	}
	if isGatewayStatus(resp.StatusCode()) {
		return false, fmt.Errorf("probe status %d", resp.StatusCode())
	}
	return true, nil
}

func (c *SessionClient) maintenanceTarget() string {
	sep := "?"
	if strings.Contains(c.maintenancePath, "?") {
		sep = "&"
	}
	return c.maintenancePath + sep + maintenanceParam + "=" + strconv.FormatInt(c.now().UnixMilli(), 10)
}

// Alive probes the backend the same way outage detection does. A nil error
// means the backend answered with something other than a gateway failure.
func (c *SessionClient) Alive(ctx context.Context) error {
	_, err := c.probeAlive(ctx)
	return err
}
