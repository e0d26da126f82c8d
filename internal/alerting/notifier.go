package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bankcompare/internal/rollout"
	"bankcompare/internal/slo"
)

// Notification carries one dashboard evaluation that breached its SLOs.
type Notification struct {
	SnapshotID    string
	TakenAt       time.Time
	Summary       slo.Summary
	Rollouts      []rollout.View
	Channels      []string
	DashboardURL  string
	AdditionalMsg string
}

// Notifier dispatches alerts.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier posts alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered alert.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("snapshot_id", note.SnapshotID).
		Str("status", string(note.Summary.OverallStatus)).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("alert sent (telegram)")
	return nil
}

// LogNotifier writes alerts to the log. It is used when no channel is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a log-only notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify logs the rendered alert at warn level.
func (n *LogNotifier) Notify(ctx context.Context, note Notification) error {
	n.logger.Warn().Str("snapshot_id", note.SnapshotID).
		Str("status", string(note.Summary.OverallStatus)).
		Float64("compliance_pct", note.Summary.CompliancePercentage).
		Msg(RenderMessage(note))
	return nil
}

// RenderMessage formats the plain-text alert body.
func RenderMessage(note Notification) string {
	s := note.Summary
	badge := slo.BadgeFor(s)
	compliance := decimal.NewFromFloat(s.CompliancePercentage).StringFixed(1)

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("%s [BankCompare SLO %s]\n", badge.Icon, strings.ToUpper(string(s.OverallStatus))))
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", note.TakenAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Compliance: %s%% (%d pass, %d warn, %d fail)\n", compliance, s.PassCount, s.WarnCount, s.FailCount))
	for _, r := range s.Results {
		if r.Status == slo.StatusPass {
			continue
		}
		builder.WriteString(fmt.Sprintf("- [%s] %s\n", r.Severity, slo.FormatResult(r)))
	}
	for _, v := range note.Rollouts {
		if v.Status != rollout.StatusActive && v.Status != rollout.StatusPaused {
			continue
		}
		builder.WriteString(fmt.Sprintf("Rollout %s: %s at %d%% (stage %d/%d)\n", v.ExperimentID, v.Status, v.Percentage, v.Stage, v.StageCount))
	}
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.DashboardURL != "" {
		builder.WriteString(fmt.Sprintf("Dashboard: %s\n", note.DashboardURL))
	}
	if note.SnapshotID != "" {
		builder.WriteString(fmt.Sprintf("Snapshot: %s\n", note.SnapshotID))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
