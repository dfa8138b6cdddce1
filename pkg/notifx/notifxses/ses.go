package notifxses

import (
	"context"
	"sort"

	"github.com/alebhayan/King-Laminaat/pkg/notifx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const charset = "UTF-8"

// API is the subset of *ses.Client used here.
type API interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Sender delivers email through Amazon SES.
type Sender struct {
	client       API
	configSetKey string
}

// NewSender returns an SES sender. configSet may be empty.
func NewSender(client API, configSet string) *Sender {
	return &Sender{client: client, configSetKey: configSet}
}

func (s *Sender) Send(ctx context.Context, msg notifx.Email) error {
	input := buildInput(msg)
	if s.configSetKey != "" {
		input.ConfigurationSetName = aws.String(s.configSetKey)
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return notifx.ErrRegistry.NewWithCause(notifx.CodeSendFailed, err).
			WithDetail("provider", "ses").
			WithDetail("subject", msg.Subject)
	}
	return nil
}

func buildInput(msg notifx.Email) *ses.SendEmailInput {
	body := &types.Body{}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String(charset)}
	}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String(charset)}
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(msg.From),
		Destination: &types.Destination{ToAddresses: msg.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charset)},
			Body:    body,
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	keys := make([]string, 0, len(msg.Tags))
	for k := range msg.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		input.Tags = append(input.Tags, types.MessageTag{Name: aws.String(k), Value: aws.String(msg.Tags[k])})
	}
	return input
}
