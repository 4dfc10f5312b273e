package accounts

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/mrz1836/postmark"
)

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"`
}

// EmailSender represents an interface for sending emails.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// MailerConfig holds the Postmark sender configuration.
type MailerConfig struct {
	ServerToken  string
	AccountToken string
	SenderEmail  string
	SupportEmail string
}

type postmarkSender struct {
	client *postmark.Client
	config MailerConfig
}

// NewPostmarkSender creates a Postmark-backed email sender. Both tokens and
// the sender identity are required; a partially configured mailer fails here
// instead of at the first send.
func NewPostmarkSender(cfg MailerConfig) (EmailSender, error) {
	if cfg.ServerToken == "" {
		return nil, errors.New("postmark server token is required", errors.CategoryValidation)
	}
	if cfg.AccountToken == "" {
		return nil, errors.New("postmark account token is required", errors.CategoryValidation)
	}
	if !isEmail(cfg.SenderEmail) {
		return nil, errors.New("sender email must be a valid email address", errors.CategoryValidation)
	}
	if cfg.SupportEmail != "" && !isEmail(cfg.SupportEmail) {
		return nil, errors.New("support email must be a valid email address", errors.CategoryValidation)
	}

	return &postmarkSender{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
	}, nil
}

func (c *postmarkSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:     c.config.SenderEmail,
		ReplyTo:  c.config.SupportEmail,
		To:       params.SendTo,
		Subject:  params.Subject,
		Tag:      params.Tag,
		HTMLBody: params.BodyHTML,
	})
	if err != nil {
		return errors.Wrap(err, ErrEmailDeliveryFailed.Category, ErrEmailDeliveryFailed.Message).
			WithTextCode(ErrEmailDeliveryFailed.TextCode)
	}

	if resp.ErrorCode > 0 {
		return errors.New(ErrEmailDeliveryFailed.Message, ErrEmailDeliveryFailed.Category).
			WithTextCode(ErrEmailDeliveryFailed.TextCode).
			WithMetadata(map[string]any{
				"postmark_code":    resp.ErrorCode,
				"postmark_message": resp.Message,
			})
	}

	return nil
}

// DevEmailSender prints outbound mail instead of delivering it. Default for
// local runs so forgot-password works without Postmark credentials.
type DevEmailSender struct {
	Logger Logger
}

func (d DevEmailSender) SendEmail(_ context.Context, params SendEmailParams) error {
	logger := d.Logger
	if logger == nil {
		logger = defLogger{}
	}

	logger.Info("====== SENDING EMAIL NOTIFICATION =======")
	logger.Info(fmt.Sprintf("to: %s", params.SendTo))
	logger.Info(fmt.Sprintf("subject: %s", params.Subject))
	logger.Info(fmt.Sprintf("body: %s", params.BodyHTML))

	return nil
}
