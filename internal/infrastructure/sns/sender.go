package sns

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/credential-api/internal/config"
)

// Sender delivers notification templates as SMS via AWS SNS. Deployments that
// register accounts against phone-backed destinations swap this in for the
// SMTP mailer; both satisfy the same Notifier collaborator.
type Sender struct {
	client *sns.Client
}

func NewSender(cfg *config.Config) (*Sender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &Sender{client: sns.NewFromConfig(awsCfg)}, nil
}

func (s *Sender) Send(ctx context.Context, destination, templateID string, data map[string]string) error {
	var message string
	switch templateID {
	case "verification":
		message = "Your verification code: " + data["ticket"]
	default:
		return fmt.Errorf("unknown template %q", templateID)
	}
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &destination,
		Message:     &message,
	})
	return err
}
