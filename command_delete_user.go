package accounts

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type DeleteUserMessage struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (p DeleteUserMessage) Type() string { return "user.delete" }

type DeleteUserHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewDeleteUserHandler(repo RepositoryManager) *DeleteUserHandler {
	return &DeleteUserHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *DeleteUserHandler) WithLogger(logger Logger) *DeleteUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *DeleteUserHandler) Execute(ctx context.Context, event DeleteUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteUserHandler) execute(ctx context.Context, event DeleteUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByID(ctx, event.UserID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return goerrors.New("No user found with this ID.", goerrors.CategoryNotFound).
					WithTextCode(TextCodeUserNotFound).
					WithCode(goerrors.CodeBadRequest)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for deletion")
		}

		// both identifiers must describe the same account before we touch it
		if !strings.EqualFold(user.Email, event.Email) {
			return goerrors.New("User ID and email do not match.", goerrors.CategoryValidation).
				WithTextCode(TextCodeAccountMismatch).
				WithCode(goerrors.CodeBadRequest)
		}

		if err := h.repo.Users().DeleteAccountTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
	}

	return nil
}
