package notifxconsole

import (
	"context"
	"strings"

	"github.com/alebhayan/King-Laminaat/pkg/logx"
	"github.com/alebhayan/King-Laminaat/pkg/notifx"
)

// Sender writes emails to the log instead of delivering them.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(_ context.Context, msg notifx.Email) error {
	fields := logx.Fields{
		"from":    msg.From,
		"to":      strings.Join(msg.To, ", "),
		"subject": msg.Subject,
	}
	for k, v := range msg.Tags {
		fields["tag_"+k] = v
	}
	logx.WithFields(fields).Info("email (console)")

	if msg.Text != "" {
		logx.Debugf("email text body:\n%s", msg.Text)
	}
	return nil
}
