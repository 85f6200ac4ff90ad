package notify

import (
	"context"
	"log"
)

// LogNotifier writes messages to a logger instead of delivering them.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier returns a LogNotifier. A nil logger uses the standard one.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send logs msg and never fails.
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	if msg.Text != "" {
		n.logger.Printf("authcore: mail to=%s subject=%q text=%q", msg.To, msg.Subject, msg.Text)
		return nil
	}
	n.logger.Printf("authcore: mail to=%s subject=%q template=%s data=%v", msg.To, msg.Subject, msg.Template, msg.Data)
	return nil
}
