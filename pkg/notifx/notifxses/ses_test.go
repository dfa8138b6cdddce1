package notifxses

import (
	"context"
	"errors"
	"testing"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/notifx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

type fakeSES struct {
	in  *ses.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("mid-1")}, nil
}

func TestSendBuildsInput(t *testing.T) {
	api := &fakeSES{}
	s := NewSender(api, "auth-config")

	err := s.Send(context.Background(), notifx.Email{
		From:    "no-reply@example.com",
		To:      []string{"alice@example.com"},
		Subject: "Welcome",
		Text:    "hi",
		Tags:    map[string]string{"tenant": "acme", "kind": "welcome"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if aws.ToString(api.in.Source) != "no-reply@example.com" || aws.ToString(api.in.ConfigurationSetName) != "auth-config" {
		t.Fatalf("unexpected input %+v", api.in)
	}
	if api.in.Message.Body.Html != nil || aws.ToString(api.in.Message.Body.Text.Data) != "hi" {
		t.Fatalf("unexpected body %+v", api.in.Message.Body)
	}
	if len(api.in.Tags) != 2 || aws.ToString(api.in.Tags[0].Name) != "kind" {
		t.Fatalf("tags must be sorted by name: %+v", api.in.Tags)
	}
}

func TestSendWrapsProviderError(t *testing.T) {
	s := NewSender(&fakeSES{err: errors.New("throttled")}, "")
	err := s.Send(context.Background(), notifx.Email{From: "a@b.c", To: []string{"x@y.z"}, Subject: "s", Text: "t"})
	if !errx.IsCode(err, notifx.CodeSendFailed) {
		t.Fatalf("expected send failed, got %v", err)
	}
}
