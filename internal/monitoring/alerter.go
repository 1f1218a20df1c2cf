package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/config"
	"github.com/sells-group/adperf/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertCPAOverrun AlertType = "cpa_overrun"
	AlertBottleneck AlertType = "bottleneck"
	AlertNoBaseline AlertType = "no_baseline"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Campaign  string         `json:"campaign"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks every result in the snapshot and returns any alerts.
// Results with fewer than MinConversions conversions only raise
// no-baseline alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	for _, res := range snap.Results {
		if res.Status == analysis.StatusNoBaseline {
			alerts = append(alerts, Alert{
				Type:      AlertNoBaseline,
				Severity:  "low",
				Campaign:  res.Campaign,
				Message:   fmt.Sprintf("Campaign %q has no baseline bands configured", res.Campaign),
				Timestamp: now,
			})
			continue
		}
		if res.Bottleneck == nil || res.Conversions < a.cfg.MinConversions {
			continue
		}

		// Check CPA against its band first.
		for _, j := range res.Judgments {
			if j.Metric != model.MetricCPA || j.State != analysis.StateHigh || j.Deviation < a.cfg.DeviationThreshold {
				continue
			}
			alerts = append(alerts, Alert{
				Type:     AlertCPAOverrun,
				Severity: "high",
				Campaign: res.Campaign,
				Message: fmt.Sprintf(
					"%s: CPA %.0f is %.0f%% above the baseline ceiling %.0f over %s",
					res.Campaign, j.Current, j.Deviation*100, j.Band.Upper, res.Period,
				),
				Details: map[string]any{
					"current":     j.Current,
					"upper":       j.Band.Upper,
					"deviation":   j.Deviation,
					"conversions": res.Conversions,
				},
				Timestamp: now,
			})
		}

		// Check the bottleneck when it is not CPA itself.
		b := res.Bottleneck
		if b.Metric != model.MetricCPA && b.Deviation >= a.cfg.DeviationThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertBottleneck,
				Severity: "medium",
				Campaign: res.Campaign,
				Message: fmt.Sprintf(
					"%s: %s is %.0f%% outside baseline over %s",
					res.Campaign, b.Metric, b.Deviation*100, res.Period,
				),
				Details: map[string]any{
					"metric":     b.Metric,
					"state":      b.State,
					"current":    b.Current,
					"deviation":  b.Deviation,
					"confidence": res.Confidence,
					"proposal":   firstOrEmpty(res.Proposals),
				},
				Timestamp: now,
			})
		}
	}

	return alerts
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.String("campaign", alert.Campaign),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("campaign", alert.Campaign),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
