// Package notify delivers freshly raised alerts to an external webhook.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"vigil/config"
	"vigil/core"
)

// pollInterval is how often the notifier drains the engine for a new alert.
// The drain accessor is non-blocking and at-most-once per alert, so polling
// at one hertz forever is safe.
const pollInterval = time.Second

// AlertSource is the engine-side drain accessor for still-new alerts.
type AlertSource interface {
	NextNewAlert() *core.Alert
}

// Notifier polls the engine once per second and posts each new alert as a
// JSON document to the configured webhook. Alerts below the severity floor
// are drained but not delivered.
type Notifier struct {
	cfg     config.NotifyConfig
	src     AlertSource
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.SugaredLogger

	stop chan struct{}
	done chan struct{}
}

// New creates a notifier. The rate limiter caps outbound posts; alerts beyond
// the cap are dropped from notification only and stay queryable in the store.
func New(cfg config.NotifyConfig, src AlertSource, logger *zap.SugaredLogger) *Notifier {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		cfg:     cfg,
		src:     src,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		logger:  logger,
	}
}

// Start launches the polling loop. No-op when notifications are disabled.
func (n *Notifier) Start() {
	if !n.cfg.Enabled {
		return
	}
	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	go n.run()
	n.logger.Infow("notifier started", "webhook", n.cfg.WebhookURL, "min_severity", n.cfg.MinSeverity)
}

// Stop terminates the polling loop and waits for it.
func (n *Notifier) Stop() {
	if n.stop == nil {
		return
	}
	close(n.stop)
	<-n.done
	n.stop = nil
}

func (n *Notifier) run() {
	defer close(n.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			n.deliverPending()
		}
	}
}

// deliverPending drains at most one alert per tick, mirroring the engine's
// at-most-one-notification-per-alert contract.
func (n *Notifier) deliverPending() {
	alert := n.src.NextNewAlert()
	if alert == nil {
		return
	}
	if alert.Severity.Rank() < core.Severity(n.cfg.MinSeverity).Rank() {
		n.logger.Debugw("alert below notification floor",
			"rule", alert.RuleName, "severity", alert.Severity)
		return
	}
	if !n.limiter.Allow() {
		n.logger.Warnw("notification rate limit hit, alert not delivered",
			"rule", alert.RuleName, "id", alert.ID)
		return
	}
	if err := n.post(alert); err != nil {
		n.logger.Errorw("webhook delivery failed",
			"rule", alert.RuleName, "id", alert.ID, "error", err)
		return
	}
	n.logger.Infow("alert delivered", "rule", alert.RuleName, "id", alert.ID)
}

func (n *Notifier) post(alert *core.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	resp, err := n.client.Post(n.cfg.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
