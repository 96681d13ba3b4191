// Package notify delivers alert messages to a notification endpoint.
package notify

import "context"

// Color is the severity tint of a message
type Color string

const (
	ColorCritical Color = "critical"
	ColorWarning  Color = "warning"
	ColorPositive Color = "positive"
	ColorInfo     Color = "info"
	ColorNeutral  Color = "neutral"
)

// Field is a labelled value. Multiline fields take the full message width.
type Field struct {
	Label     string
	Value     string
	Multiline bool
}

// Message is one alert
type Message struct {
	Headline string
	Color    Color
	Fields   []Field
	Footer   string
}

// Notifier delivers a message. A rejected delivery is an ErrDelivery; there
// are no retries.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
