package usersrv

import (
	"context"

	"github.com/alebhayan/King-Laminaat/pkg/iam/user"
	"github.com/alebhayan/King-Laminaat/pkg/notifx"
	"github.com/alebhayan/King-Laminaat/pkg/outbox"
)

const (
	WelcomeHandlerName  = "send-welcome-email"
	WelcomeTemplateName = "user.welcome"
)

var welcomeTemplate = notifx.Template{
	Subject: "Welcome, {{.DisplayName}}",
	Text:    "Hi {{.DisplayName}},\n\nYour account {{.Email}} has been created. Confirm your email address to sign in.\n",
	HTML:    "<p>Hi {{.DisplayName}},</p><p>Your account <b>{{.Email}}</b> has been created. Confirm your email address to sign in.</p>",
}

// SubscribeWelcomeEmail registers the welcome email handler for
// user.registered on reg.
func SubscribeWelcomeEmail(reg *outbox.Registry, mailer *notifx.Client) error {
	if err := mailer.Templates().Register(WelcomeTemplateName, welcomeTemplate); err != nil {
		return err
	}

	outbox.Subscribe(reg, WelcomeHandlerName, func(ctx context.Context, msg outbox.Message, evt user.RegisteredEvent) error {
		return mailer.SendTemplate(ctx, WelcomeTemplateName, evt, notifx.Email{
			To: []string{evt.Email},
			Tags: map[string]string{
				"tenant_id":  evt.TenantID.String(),
				"outbox_id":  msg.ID,
				"email_kind": "welcome",
			},
		})
	})
	return nil
}
