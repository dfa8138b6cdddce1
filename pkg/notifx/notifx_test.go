package notifx_test

import (
	"context"
	"strings"
	"testing"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/notifx"
)

type captureSender struct{ sent []notifx.Email }

func (c *captureSender) Send(_ context.Context, msg notifx.Email) error {
	c.sent = append(c.sent, msg)
	return nil
}

func TestSendTemplateRendersAndDefaultsFrom(t *testing.T) {
	sink := &captureSender{}
	c := notifx.NewClient(sink, "Auth <no-reply@example.com>")
	err := c.Templates().Register("welcome", notifx.Template{
		Subject: "Welcome, {{.Name}}",
		HTML:    "<p>Hello {{.Name}}</p>",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := c.SendTemplate(context.Background(), "welcome", map[string]string{"Name": "<b>Al</b>"}, notifx.Email{To: []string{"al@example.com"}}); err != nil {
		t.Fatalf("SendTemplate: %v", err)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sink.sent))
	}
	got := sink.sent[0]
	if got.From != "Auth <no-reply@example.com>" || got.Subject != "Welcome, <b>Al</b>" {
		t.Fatalf("unexpected email %+v", got)
	}
	if strings.Contains(got.HTML, "<b>") {
		t.Fatalf("html body must escape data: %q", got.HTML)
	}
}

func TestSendRejectsInvalidMessages(t *testing.T) {
	c := notifx.NewClient(&captureSender{}, "a@b.c")
	err := c.Send(context.Background(), notifx.Email{Subject: "s", Text: "t"})
	if !errx.IsCode(err, notifx.CodeInvalidMessage) {
		t.Fatalf("expected invalid message, got %v", err)
	}
	if err := c.SendTemplate(context.Background(), "missing", nil, notifx.Email{}); !errx.IsCode(err, notifx.CodeTemplateNotFound) {
		t.Fatalf("expected template not found, got %v", err)
	}
}
