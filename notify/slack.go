package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/internal/httpclient"
	"github.com/teranos/vigil/logger"
)

var slackColors = map[Color]string{
	ColorCritical: "#FF0000",
	ColorWarning:  "#FFA500",
	ColorPositive: "#00FF00",
	ColorInfo:     "#0000FF",
	ColorNeutral:  "#808080",
}

// SlackPayload is the incoming-webhook body
type SlackPayload struct {
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

// SlackAttachment is a legacy message attachment
type SlackAttachment struct {
	Color    string       `json:"color"`
	Fields   []SlackField `json:"fields"`
	Footer   string       `json:"footer,omitempty"`
	MrkdwnIn []string     `json:"mrkdwn_in"`
}

// SlackField is a titled attachment field
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Slack posts messages to an incoming webhook
type Slack struct {
	webhookURL string
	client     *httpclient.SaferClient
	logger     *zap.SugaredLogger
}

// NewSlack creates a Slack notifier. The webhook must be a public https or
// http URL.
func NewSlack(webhookURL string, timeout time.Duration) (*Slack, error) {
	client := httpclient.NewSaferClient(timeout)
	if _, err := client.ValidateURL(webhookURL); err != nil {
		return nil, errors.WrapConfig(err, "notify.slack.webhook_url")
	}
	return &Slack{
		webhookURL: webhookURL,
		client:     client,
		logger:     logger.ComponentLogger("notify"),
	}, nil
}

// Payload renders msg in Slack's attachment format
func Payload(msg Message) SlackPayload {
	color, ok := slackColors[msg.Color]
	if !ok {
		color = slackColors[ColorNeutral]
	}

	fields := make([]SlackField, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, SlackField{Title: f.Label, Value: f.Value, Short: !f.Multiline})
	}

	return SlackPayload{
		Text: msg.Headline,
		Attachments: []SlackAttachment{{
			Color:    color,
			Fields:   fields,
			Footer:   msg.Footer,
			MrkdwnIn: []string{"fields"},
		}},
	}
}

// Send posts msg once. Any non-2xx status is an ErrDelivery.
func (s *Slack) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(Payload(msg))
	if err != nil {
		return errors.Wrap(err, "failed to marshal slack payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.WrapDelivery(err, "webhook request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.NewDeliveryError("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	logger.FromContext(ctx, s.logger).Debugw("Alert delivered", logger.FieldStatus, resp.StatusCode)
	return nil
}

var _ Notifier = (*Slack)(nil)
