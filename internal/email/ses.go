package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures the SES v2 client. Empty keys fall back to the default credential chain.
type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
	From      string
	Templates map[Template]string
}

// SESSender sends stored SES templates with JSON template data.
type SESSender struct {
	client    sesAPI
	from      string
	templates map[Template]string
}

func NewSESSender(ctx context.Context, cfg SESConfig) (*SESSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newSESSender(client, cfg.From, cfg.Templates), nil
}

func newSESSender(client sesAPI, from string, templates map[Template]string) *SESSender {
	return &SESSender{client: client, from: from, templates: templates}
}

func (s *SESSender) Send(ctx context.Context, tmpl Template, recipient string, data map[string]string) error {
	name, ok := s.templates[tmpl]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, tmpl)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode template data: %w", err)
	}

	_, err = s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Content: &types.EmailContent{
			Template: &types.Template{
				TemplateName: aws.String(name),
				TemplateData: aws.String(string(payload)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses: send email: %w", err)
	}

	return nil
}
