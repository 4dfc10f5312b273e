package accounts

import (
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Config holds the service configuration. The signing key is required and has
// no baked-in default; the service refuses to boot without one.
type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file:accounts.db?cache=shared&mode=rwc"`
	Debug       bool   `env:"DEBUG"`

	SigningKey string        `env:"JWT_SIGNING_KEY,required"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"1h"`

	ResetBaseURL string `env:"RESET_BASE_URL" envDefault:"http://localhost:8080/password-reset"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL"`
	SupportEmail         string `env:"SUPPORT_EMAIL"`
}

var defaultEnvLoaded sync.Once

// LoadConfig parses the environment into a Config, reading a local .env file
// first when one exists.
func LoadConfig() (*Config, error) {
	defaultEnvLoaded.Do(func() {
		// the .env file might not exist and that's ok
		_ = godotenv.Load()
	})

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "failed to parse environment configuration")
	}

	return cfg, nil
}

// Mailer builds the EmailSender for this configuration: Postmark when tokens
// are present, the dev sender otherwise.
func (c *Config) Mailer(logger Logger) (EmailSender, error) {
	if c.PostmarkServerToken == "" && c.PostmarkAccountToken == "" {
		return DevEmailSender{Logger: logger}, nil
	}

	return NewPostmarkSender(MailerConfig{
		ServerToken:  c.PostmarkServerToken,
		AccountToken: c.PostmarkAccountToken,
		SenderEmail:  c.SenderEmail,
		SupportEmail: c.SupportEmail,
	})
}
