package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email" example:"pepe.rone@example.com" doc:"Customer email."`

	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	Reset     *PasswordReset
	ResetLink string
	Success   bool
}

type InitializePasswordResetHandler struct {
	repo         RepositoryManager
	mailer       EmailSender
	resetBaseURL string
	logger       Logger
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager, mailer EmailSender, resetBaseURL string) *InitializePasswordResetHandler {
	if mailer == nil {
		mailer = DevEmailSender{}
	}
	return &InitializePasswordResetHandler{
		repo:         repo,
		mailer:       mailer,
		resetBaseURL: resetBaseURL,
		logger:       defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifier(ctx, event.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return goerrors.New("No user found with this email address.", goerrors.CategoryNotFound).
					WithTextCode(TextCodeEmailNotFound).
					WithCode(goerrors.CodeBadRequest)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		reset := &PasswordReset{
			UserID: &user.ID,
			Email:  user.Email,
			Status: ResetRequestedStatus,
		}

		if reset, err = h.repo.PasswordResets().CreateTx(ctx, tx, reset); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create password reset record")
		}

		resp.Reset = reset
		resp.ResetLink = BuildPasswordResetLink(h.resetBaseURL, reset.ID.String())

		// the send stays inside the transaction so a rejected dispatch rolls
		// the reset record back with it
		if err := h.mailer.SendEmail(ctx, SendEmailParams{
			SendTo:   user.Email,
			Subject:  "Password Reset Request",
			BodyHTML: fmt.Sprintf(`<p>Click the link below to reset your password:</p><p><a href="%s">%s</a></p>`, resp.ResetLink, resp.ResetLink),
			Tag:      "password-reset",
		}); err != nil {
			h.logger.Error("password reset email dispatch failed", "error", err)
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, ErrEmailDeliveryFailed.Category, ErrEmailDeliveryFailed.Message).
				WithTextCode(ErrEmailDeliveryFailed.TextCode)
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// BuildPasswordResetLink joins the configured base URL and the reset session
// id into the link we email out.
func BuildPasswordResetLink(baseURL, resetID string) string {
	return strings.TrimRight(baseURL, "/") + "/" + resetID
}
