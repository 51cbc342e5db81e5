package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESAPI defines the subset of the SES v2 client used by SESSender.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers messages as plain-text email through Amazon SES.
type SESSender struct {
	Client SESAPI
	From   string
}

// NewSESSender creates a new SESSender.
func NewSESSender(client SESAPI, from string) *SESSender {
	return &SESSender{Client: client, From: from}
}

var _ Sender = (*SESSender)(nil)

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	_, err := s.Client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}
