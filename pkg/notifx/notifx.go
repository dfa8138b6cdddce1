// Package notifx sends transactional email through a pluggable Sender.
package notifx

import (
	"context"
	"net/http"
	"strings"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
)

// Email is one outgoing message. Tags are forwarded to providers that
// support message tagging.
type Email struct {
	From    string            `json:"from,omitempty"`
	To      []string          `json:"to"`
	ReplyTo string            `json:"reply_to,omitempty"`
	Subject string            `json:"subject"`
	Text    string            `json:"text,omitempty"`
	HTML    string            `json:"html,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// Sender delivers an email.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

var ErrRegistry = errx.NewRegistry("NOTIFX")

var (
	CodeSendFailed       = ErrRegistry.Register("SEND_FAILED", errx.TypeExternal, http.StatusBadGateway, "Failed to send email")
	CodeInvalidMessage   = ErrRegistry.Register("INVALID_MESSAGE", errx.TypeValidation, http.StatusBadRequest, "Invalid email message")
	CodeTemplateNotFound = ErrRegistry.Register("TEMPLATE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Email template not found")
	CodeTemplateInvalid  = ErrRegistry.Register("TEMPLATE_INVALID", errx.TypeInternal, http.StatusInternalServerError, "Email template could not be parsed or rendered")
)

// Client validates messages, fills in the sender address and renders
// registered templates.
type Client struct {
	sender    Sender
	from      string
	templates *Templates
}

// NewClient wraps sender. from is used when a message leaves From empty; a
// display name may be given as "Name <addr>".
func NewClient(sender Sender, from string) *Client {
	return &Client{sender: sender, from: from, templates: NewTemplates()}
}

func (c *Client) Templates() *Templates {
	return c.templates
}

// Send validates msg and hands it to the provider.
func (c *Client) Send(ctx context.Context, msg Email) error {
	if msg.From == "" {
		msg.From = c.from
	}
	if err := validate(msg); err != nil {
		return err
	}
	return c.sender.Send(ctx, msg)
}

// SendTemplate renders the named template with data into msg's subject and
// bodies, then sends it.
func (c *Client) SendTemplate(ctx context.Context, name string, data interface{}, msg Email) error {
	rendered, err := c.templates.Render(name, data)
	if err != nil {
		return err
	}
	msg.Subject = rendered.Subject
	msg.Text = rendered.Text
	msg.HTML = rendered.HTML
	return c.Send(ctx, msg)
}

func validate(msg Email) error {
	switch {
	case len(msg.To) == 0:
		return ErrRegistry.New(CodeInvalidMessage).WithDetail("reason", "no recipients")
	case strings.TrimSpace(msg.Subject) == "":
		return ErrRegistry.New(CodeInvalidMessage).WithDetail("reason", "empty subject")
	case msg.From == "":
		return ErrRegistry.New(CodeInvalidMessage).WithDetail("reason", "no sender address")
	case msg.Text == "" && msg.HTML == "":
		return ErrRegistry.New(CodeInvalidMessage).WithDetail("reason", "empty body")
	}
	return nil
}
