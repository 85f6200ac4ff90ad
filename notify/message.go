package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/otp"
)

const (
	TemplateOTP     = "otp"
	TemplateWelcome = "welcome"
)

// Message is a rendered mail job. Text is set for plain mails, Template and
// Data for mails the worker renders itself.
type Message struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Text     string         `json:"text,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Notifier delivers messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// CodeMailer implements otp.Sender on top of a Notifier.
type CodeMailer struct {
	notifier Notifier
	catalog  Catalog
}

// NewCodeMailer returns a CodeMailer using catalog for wording. A nil catalog
// means DefaultCatalog.
func NewCodeMailer(n Notifier, catalog Catalog) *CodeMailer {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &CodeMailer{notifier: n, catalog: catalog}
}

// SendCode renders the code mail for its purpose and sends it. Account
// verification codes go out as the welcome mail.
func (m *CodeMailer) SendCode(ctx context.Context, to otp.Recipient, code otp.Code, lifetime time.Duration) error {
	text, err := m.catalog.Lookup(code.Purpose)
	if err != nil {
		return err
	}

	msg := Message{
		To:       to.Email,
		Subject:  text.Title,
		Template: TemplateOTP,
		Data: map[string]any{
			"code":    code.Code,
			"purpose": string(code.Purpose),
		},
	}
	if code.Purpose == otp.PurposeAccountVerification {
		msg = WelcomeMessage(to.Email, to.Name, code.Code)
	}
	msg.Text = CodeText(text, code.Code, lifetime)
	return m.notifier.Send(ctx, msg)
}

// CodeText renders "<message> <code>\n\nThis code is valid for N minutes.".
// Partial minutes round up.
func CodeText(text PurposeText, code string, lifetime time.Duration) string {
	minutes := int((lifetime + time.Minute - 1) / time.Minute)
	return fmt.Sprintf("%s %s\n\nThis code is valid for %d minutes.", text.Message, code, minutes)
}

// WelcomeMessage builds the account creation mail carrying the first
// verification code.
func WelcomeMessage(to, firstname, code string) Message {
	return Message{
		To:       to,
		Subject:  "Welcome to Our Service",
		Template: TemplateWelcome,
		Data: map[string]any{
			"firstname": firstname,
			"otp":       code,
		},
	}
}
