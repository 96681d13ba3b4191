package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/internal/httpclient"
	"github.com/teranos/vigil/logger"
)

func testSlack(t *testing.T, handler http.HandlerFunc) *Slack {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Slack{
		webhookURL: server.URL + "/services/T000/B000/XXX",
		client:     httpclient.WrapClient(server.Client()),
		logger:     logger.ComponentLogger("notify"),
	}
}

var alert = Message{
	Headline: "🚨 Purchase events stopped",
	Color:    ColorCritical,
	Fields: []Field{
		{Label: "Category", Value: "Problem Critical"},
		{Label: "Severity", Value: "High"},
		{Label: "Details", Value: "No purchase events since 09:00", Multiline: true},
	},
	Footer: "Analytics Intelligence | 2026-03-01T09:30:00Z",
}

func TestPayload(t *testing.T) {
	p := Payload(alert)

	assert.Equal(t, "🚨 Purchase events stopped", p.Text)
	require.Len(t, p.Attachments, 1)
	att := p.Attachments[0]
	assert.Equal(t, "#FF0000", att.Color)
	assert.Equal(t, []string{"fields"}, att.MrkdwnIn)
	assert.Equal(t, "Analytics Intelligence | 2026-03-01T09:30:00Z", att.Footer)
	assert.Equal(t, []SlackField{
		{Title: "Category", Value: "Problem Critical", Short: true},
		{Title: "Severity", Value: "High", Short: true},
		{Title: "Details", Value: "No purchase events since 09:00", Short: false},
	}, att.Fields)
}

func TestPayloadColors(t *testing.T) {
	tests := map[Color]string{
		ColorCritical: "#FF0000",
		ColorWarning:  "#FFA500",
		ColorPositive: "#00FF00",
		ColorInfo:     "#0000FF",
		ColorNeutral:  "#808080",
		Color("pink"): "#808080",
	}
	for color, hex := range tests {
		assert.Equal(t, hex, Payload(Message{Color: color}).Attachments[0].Color, color)
	}
}

func TestSlackSend(t *testing.T) {
	var got SlackPayload
	calls := 0
	s := testSlack(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("ok"))
	})

	require.NoError(t, s.Send(context.Background(), alert))
	assert.Equal(t, 1, calls)
	assert.Equal(t, alert.Headline, got.Text)
}

func TestSlackSendRejected(t *testing.T) {
	calls := 0
	s := testSlack(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no_service"))
	})

	err := s.Send(context.Background(), alert)
	require.Error(t, err)
	assert.True(t, errors.IsDeliveryError(err))
	assert.Contains(t, err.Error(), "status 404: no_service")
	assert.Equal(t, 1, calls, "delivery is never retried")
}

func TestSlackSendTransportFailure(t *testing.T) {
	s := testSlack(t, func(w http.ResponseWriter, r *http.Request) {})
	s.webhookURL = "http://127.0.0.1:1/unreachable"

	err := s.Send(context.Background(), alert)
	require.Error(t, err)
	assert.True(t, errors.IsDeliveryError(err))
}

func TestNewSlackValidatesURL(t *testing.T) {
	_, err := NewSlack("https://hooks.slack.com/services/T000/B000/XXX", 5*time.Second)
	assert.NoError(t, err)

	_, err = NewSlack("http://169.254.169.254/latest", 5*time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))

	_, err = NewSlack("", 5*time.Second)
	assert.Error(t, err)
}
