package accounts_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestApp(repo *MockRepositoryManager, mailer accounts.EmailSender) (*fiber.App, *accounts.TokenService) {
	tokens := accounts.NewTokenService([]byte("test-signing-key"), time.Hour, nil)

	app := fiber.New()
	accounts.RegisterAccountRoutes(app,
		accounts.WithRepository(repo),
		accounts.WithTokenService(tokens),
		accounts.WithMailer(mailer),
		accounts.WithResetBaseURL("https://example.com/password-reset"),
	)

	return app, tokens
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestControllerRegister(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		created := &accounts.User{
			ID:        uuid.New(),
			Username:  "john",
			FirstName: "John",
			Email:     "john@example.com",
			Role:      accounts.RoleGuest,
		}

		repo.UsersRepo.On("EmailExistsTx", mock.Anything, mock.Anything, "john@example.com").
			Return(false, nil).Once()
		repo.UsersRepo.On("UsernameExistsTx", mock.Anything, mock.Anything, "john").
			Return(false, nil).Once()
		repo.UsersRepo.On("RegisterTx", mock.Anything, mock.Anything, mock.AnythingOfType("*accounts.User")).
			Return(created, nil).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/users/register", map[string]string{
			"first_name": "John",
			"email":      "john@example.com",
			"password":   "password123",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body accounts.RegisterResponse
		decodeBody(t, resp, &body)

		assert.Equal(t, 200, body.Code)
		assert.Equal(t, "User 'john' Registration was Successful", body.Message)
		assert.Equal(t, created.ID.String(), body.User.UserID)
		assert.Equal(t, "john", body.User.Username)
		assert.Equal(t, "John", body.User.FirstName)
		assert.Equal(t, "john@example.com", body.User.Email)
		assert.Empty(t, body.User.Token)

		repo.UsersRepo.AssertExpectations(t)
	})

	t.Run("first missing field wins", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		cases := []struct {
			name     string
			payload  map[string]string
			expected string
		}{
			{
				"empty body",
				map[string]string{},
				"First name field 'first_name' is required.",
			},
			{
				"missing email",
				map[string]string{"first_name": "John"},
				"Email field 'email' is required.",
			},
			{
				"missing password",
				map[string]string{"first_name": "John", "email": "john@example.com"},
				"Password field 'password' is required.",
			},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				resp, err := app.Test(jsonRequest(fiber.MethodPost, "/users/register", tc.payload), -1)
				require.NoError(t, err)
				assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

				var body accounts.ErrorResponse
				decodeBody(t, resp, &body)
				assert.Equal(t, tc.expected, body.Message)
			})
		}
	})

	t.Run("invalid email format", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/users/register", map[string]string{
			"first_name": "John",
			"email":      "not-an-email",
			"password":   "password123",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		repo.UsersRepo.On("EmailExistsTx", mock.Anything, mock.Anything, "john@example.com").
			Return(true, nil).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/users/register", map[string]string{
			"first_name": "John",
			"email":      "john@example.com",
			"password":   "password123",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestControllerLogin(t *testing.T) {
	t.Run("successful login", func(t *testing.T) {
		repo := newMockRepo()
		app, tokens := newTestApp(repo, nil)

		userID := uuid.New()
		passwordHash, _ := accounts.HashPassword("password123")
		user := &accounts.User{
			ID:           userID,
			Username:     "john",
			FirstName:    "John",
			Email:        "john@example.com",
			PasswordHash: passwordHash,
		}

		repo.UsersRepo.On("GetByIdentifier", mock.Anything, "john@example.com").Return(user, nil).Once()
		repo.UsersRepo.On("TrackSuccessfulLogin", mock.Anything, user).Return(nil).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/users/login", map[string]string{
			"email_or_username": "john@example.com",
			"password":          "password123",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body accounts.LoginResponse
		decodeBody(t, resp, &body)

		assert.Equal(t, 200, body.Code)
		assert.Equal(t, "User login successful.", body.Message)
		assert.Equal(t, userID.String(), body.UserID)
		assert.Equal(t, "john", body.Username)
		assert.Equal(t, "John", body.FirstName)
		assert.Equal(t, "john@example.com", body.Email)

		verified, err := tokens.Verify(body.Token)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), verified.UserID)

		repo.UsersRepo.AssertExpectations(t)
	})

	t.Run("missing identifier", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/users/login", map[string]string{
			"password": "password123",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		var body accounts.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "Email or username field 'email_or_username' is required.", body.Message)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		passwordHash, _ := accounts.HashPassword("password123")
		user := &accounts.User{
			ID:           uuid.New(),
			Username:     "john",
			Email:        "john@example.com",
			PasswordHash: passwordHash,
		}

		repo.UsersRepo.On("GetByIdentifier", mock.Anything, "john@example.com").Return(user, nil).Once()
		repo.UsersRepo.On("TrackAttemptedLogin", mock.Anything, user).Return(nil).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/users/login", map[string]string{
			"email_or_username": "john@example.com",
			"password":          "wrong",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var body accounts.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "Invalid email/username or password.", body.Message)
	})

	t.Run("unknown user answers like a wrong password", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		notFound := goerrors.New("record not found", goerrors.CategoryNotFound)
		repo.UsersRepo.On("GetByIdentifier", mock.Anything, "nobody@example.com").Return(nil, notFound).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/users/login", map[string]string{
			"email_or_username": "nobody@example.com",
			"password":          "password123",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var body accounts.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "Invalid email/username or password.", body.Message)
	})

	t.Run("too many attempts", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		now := time.Now()
		passwordHash, _ := accounts.HashPassword("password123")
		user := &accounts.User{
			ID:             uuid.New(),
			Email:          "john@example.com",
			PasswordHash:   passwordHash,
			LoginAttempts:  accounts.MaxLoginAttempts + 1,
			LoginAttemptAt: &now,
		}

		repo.UsersRepo.On("GetByIdentifier", mock.Anything, "john@example.com").Return(user, nil).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/users/login", map[string]string{
			"email_or_username": "john@example.com",
			"password":          "password123",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	})
}

func TestControllerForgotPassword(t *testing.T) {
	t.Run("sends the reset email", func(t *testing.T) {
		repo := newMockRepo()
		mailer := new(MockMailer)
		app, _ := newTestApp(repo, mailer)

		userID := uuid.New()
		user := &accounts.User{ID: userID, Email: "john@example.com"}
		stored := &accounts.PasswordReset{ID: uuid.New(), UserID: &userID, Email: "john@example.com"}

		repo.UsersRepo.On("GetByIdentifier", mock.Anything, "john@example.com").Return(user, nil).Once()
		repo.ResetsRepo.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(stored, nil).Once()
		mailer.On("SendEmail", mock.Anything, mock.Anything).Return(nil).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/forgot-password", map[string]string{
			"email": "john@example.com",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body accounts.MessageResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "Password reset email sent.", body.Message)

		mailer.AssertExpectations(t)
	})

	t.Run("unknown email is a 400", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		notFound := goerrors.New("record not found", goerrors.CategoryNotFound)
		repo.UsersRepo.On("GetByIdentifier", mock.Anything, "nobody@example.com").Return(nil, notFound).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/forgot-password", map[string]string{
			"email": "nobody@example.com",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		var body accounts.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "No user found with this email address.", body.Message)
	})

	t.Run("missing email", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/forgot-password", map[string]string{}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		var body accounts.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "Email field 'email' is required.", body.Message)
	})

	t.Run("mailer failure is a 500", func(t *testing.T) {
		repo := newMockRepo()
		mailer := new(MockMailer)
		app, _ := newTestApp(repo, mailer)

		userID := uuid.New()
		user := &accounts.User{ID: userID, Email: "john@example.com"}
		stored := &accounts.PasswordReset{ID: uuid.New(), UserID: &userID, Email: "john@example.com"}

		repo.UsersRepo.On("GetByIdentifier", mock.Anything, "john@example.com").Return(user, nil).Once()
		repo.ResetsRepo.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).Return(stored, nil).Once()
		mailer.On("SendEmail", mock.Anything, mock.Anything).Return(accounts.ErrEmailDeliveryFailed).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/forgot-password", map[string]string{
			"email": "john@example.com",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})
}

func TestControllerChangePassword(t *testing.T) {
	t.Run("updates the password", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		userID := uuid.New()
		oldHash, _ := accounts.HashPassword("old-password")
		user := &accounts.User{ID: userID, PasswordHash: oldHash}

		repo.UsersRepo.On("GetByID", mock.Anything, userID.String()).Return(user, nil).Once()
		repo.UsersRepo.On("UpdatePasswordTx", mock.Anything, mock.Anything, userID, mock.Anything).
			Return(nil).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/change-password", map[string]string{
			"user_id":      userID.String(),
			"old_password": "old-password",
			"new_password": "new-password",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body accounts.MessageResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "Password updated successfully.", body.Message)
	})

	t.Run("wrong old password is a 400", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		userID := uuid.New()
		oldHash, _ := accounts.HashPassword("old-password")
		user := &accounts.User{ID: userID, PasswordHash: oldHash}

		repo.UsersRepo.On("GetByID", mock.Anything, userID.String()).Return(user, nil).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/change-password", map[string]string{
			"user_id":      userID.String(),
			"old_password": "wrong",
			"new_password": "new-password",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		var body accounts.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "Old password is incorrect.", body.Message)
	})

	t.Run("missing fields keep contract order", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/change-password", map[string]string{
			"user_id": "abc",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		var body accounts.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "Old password field 'old_password' is required.", body.Message)
	})
}

func TestControllerDeleteUser(t *testing.T) {
	t.Run("deletes the account", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		userID := uuid.New()
		user := &accounts.User{ID: userID, Email: "john@example.com"}

		repo.UsersRepo.On("GetByID", mock.Anything, userID.String()).Return(user, nil).Once()
		repo.UsersRepo.On("DeleteAccountTx", mock.Anything, mock.Anything, userID).Return(nil).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/users/delete", map[string]string{
			"user_id": userID.String(),
			"email":   "john@example.com",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body accounts.MessageResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "User deleted successfully", body.Message)
	})

	t.Run("mismatched email is a 400", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		userID := uuid.New()
		user := &accounts.User{ID: userID, Email: "john@example.com"}

		repo.UsersRepo.On("GetByID", mock.Anything, userID.String()).Return(user, nil).Once()

		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/users/delete", map[string]string{
			"user_id": userID.String(),
			"email":   "someone-else@example.com",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		var body accounts.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "User ID and email do not match.", body.Message)
	})
}

func TestControllerCheckEmail(t *testing.T) {
	t.Run("known email returns the user with a token", func(t *testing.T) {
		repo := newMockRepo()
		app, tokens := newTestApp(repo, nil)

		userID := uuid.New()
		user := &accounts.User{
			ID:        userID,
			Username:  "john",
			FirstName: "John",
			Email:     "john@example.com",
		}

		repo.UsersRepo.On("GetByIdentifier", mock.Anything, "john@example.com").Return(user, nil).Once()

		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/check-email?email=john%40example.com", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body accounts.CheckEmailResponse
		decodeBody(t, resp, &body)

		assert.Equal(t, 200, body.Code)
		assert.Equal(t, userID.String(), body.User.UserID)
		assert.Equal(t, "john", body.User.Username)

		verified, err := tokens.Verify(body.User.Token)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), verified.UserID)
	})

	t.Run("unknown email is a 404", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		notFound := goerrors.New("record not found", goerrors.CategoryNotFound)
		repo.UsersRepo.On("GetByIdentifier", mock.Anything, "nobody@example.com").Return(nil, notFound).Once()

		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/check-email?email=nobody%40example.com", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		var body accounts.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, 404, body.Code)
		assert.Equal(t, "No user found with this email address.", body.Message)
	})

	t.Run("missing email is a 400", func(t *testing.T) {
		repo := newMockRepo()
		app, _ := newTestApp(repo, nil)

		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/check-email", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}
