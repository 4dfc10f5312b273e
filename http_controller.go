package accounts

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

type AccountsControllerRoutes struct {
	Register       string
	Login          string
	ForgotPassword string
	ChangePassword string
	DeleteUser     string
	CheckEmail     string
}

type AccountsController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       Authenticator
	Tokens       *TokenService
	Mailer       EmailSender
	ResetBaseURL string
	Routes       *AccountsControllerRoutes
}

type AccountsControllerOption func(*AccountsController) *AccountsController

func NewAccountsController(opts ...AccountsControllerOption) *AccountsController {
	c := &AccountsController{
		Logger: defLogger{},
		Routes: &AccountsControllerRoutes{
			Register:       "/users/register",
			Login:          "/users/login",
			ForgotPassword: "/forgot-password",
			ChangePassword: "/change-password",
			DeleteUser:     "/users/delete",
			CheckEmail:     "/check-email",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in accounts controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in accounts controller...")
	}

	if c.Auther == nil {
		c.Auther = NewAuthenticator(NewUserProvider(c.Repo.Users()), c.Tokens)
	}

	if c.Mailer == nil {
		c.Mailer = DevEmailSender{Logger: c.Logger}
	}

	return c
}

func WithRepository(repo RepositoryManager) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Repo = repo
		return c
	}
}

func WithAuthenticator(auther Authenticator) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Auther = auther
		return c
	}
}

func WithTokenService(tokens *TokenService) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Tokens = tokens
		return c
	}
}

func WithMailer(mailer EmailSender) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Mailer = mailer
		return c
	}
}

func WithResetBaseURL(baseURL string) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.ResetBaseURL = baseURL
		return c
	}
}

func WithControllerLogger(logger Logger) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithDebug(debug bool) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Debug = debug
		return c
	}
}

// RegisterAccountRoutes mounts the account endpoints on the app.
func RegisterAccountRoutes(app *fiber.App, opts ...AccountsControllerOption) *AccountsController {
	controller := NewAccountsController(opts...)

	app.Post(controller.Routes.Register, controller.Register)
	app.Post(controller.Routes.Login, controller.Login)
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPassword)
	app.Post(controller.Routes.ChangePassword, controller.ChangePassword)
	app.Post(controller.Routes.DeleteUser, controller.DeleteUser)
	app.Get(controller.Routes.CheckEmail, controller.CheckEmail)

	return controller
}

// UserEnvelope is the user fragment shared by register and check-email
// responses.
type UserEnvelope struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Token     string `json:"token,omitempty"`
}

type RegisterResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	User    UserEnvelope `json:"user"`
}

type LoginResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Token     string `json:"token"`
}

type CheckEmailResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	User    UserEnvelope `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RegistrationCreatePayload is the register request body
type RegistrationCreatePayload struct {
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// MissingField walks the required fields in contract order and reports the
// first empty one.
func (r RegistrationCreatePayload) MissingField() *goerrors.Error {
	if r.FirstName == "" {
		return NewMissingFieldError("First name", "first_name")
	}
	if r.Email == "" {
		return NewMissingFieldError("Email", "email")
	}
	if r.Password == "" {
		return NewMissingFieldError("Password", "password")
	}
	return nil
}

// Validate will run validation rules
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *AccountsController) Register(ctx *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return a.respondParseError(ctx, err)
	}

	if missing := payload.MissingField(); missing != nil {
		return a.respondError(ctx, missing)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload", "error", err)
		return a.respondValidationError(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= ACCOUNTS REGISTER =======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=================================")
	}

	var user *User
	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
		OnResponse: func(u *User) {
			user = u
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo).WithLogger(a.Logger)
	if err := registerUser.Execute(ctx.UserContext(), req); err != nil {
		a.Logger.Error("register user error", "error", err)
		return a.respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(RegisterResponse{
		Code:    fiber.StatusOK,
		Message: fmt.Sprintf("User '%s' Registration was Successful", user.Username),
		User: UserEnvelope{
			UserID:    user.ID.String(),
			Username:  user.Username,
			FirstName: user.FirstName,
			Email:     user.Email,
		},
	})
}

// LoginPayload is the login request body
type LoginPayload struct {
	EmailOrUsername string `json:"email_or_username"`
	Password        string `json:"password"`
}

func (r LoginPayload) MissingField() *goerrors.Error {
	if r.EmailOrUsername == "" {
		return NewMissingFieldError("Email or username", "email_or_username")
	}
	if r.Password == "" {
		return NewMissingFieldError("Password", "password")
	}
	return nil
}

func (a *AccountsController) Login(ctx *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.respondParseError(ctx, err)
	}

	if missing := payload.MissingField(); missing != nil {
		return a.respondError(ctx, missing)
	}

	identity, token, err := a.Auther.Login(ctx.UserContext(), payload.EmailOrUsername, payload.Password)
	if err != nil {
		a.Logger.Error("login error", "error", err)

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			switch richErr.Category {
			case goerrors.CategoryAuth, goerrors.CategoryNotFound:
				// unknown user and bad password answer identically
				return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
					Code:    fiber.StatusUnauthorized,
					Message: "Invalid email/username or password.",
				})
			}
		}

		return a.respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(LoginResponse{
		Code:      fiber.StatusOK,
		Message:   "User login successful.",
		UserID:    identity.ID(),
		Username:  identity.Username(),
		FirstName: identity.FirstName(),
		Email:     identity.Email(),
		Token:     token,
	})
}

// ForgotPasswordPayload is the forgot-password request body
type ForgotPasswordPayload struct {
	Email string `json:"email"`
}

func (r ForgotPasswordPayload) MissingField() *goerrors.Error {
	if r.Email == "" {
		return NewMissingFieldError("Email", "email")
	}
	return nil
}

// Validate will run validation rules
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AccountsController) ForgotPassword(ctx *fiber.Ctx) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("forgot password parse payload", "error", err)
		return a.respondParseError(ctx, err)
	}

	if missing := payload.MissingField(); missing != nil {
		return a.respondError(ctx, missing)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("forgot password validate payload", "error", err)
		return a.respondValidationError(ctx, err)
	}

	req := InitializePasswordResetMessage{
		Email: payload.Email,
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo, a.Mailer, a.ResetBaseURL).
		WithLogger(a.Logger)

	if err := initPwdReset.Execute(ctx.UserContext(), req); err != nil {
		a.Logger.Error("forgot password error", "error", err)
		return a.respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(MessageResponse{
		Message: "Password reset email sent.",
	})
}

// ChangePasswordPayload is the change-password request body
type ChangePasswordPayload struct {
	UserID      string `json:"user_id"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (r ChangePasswordPayload) MissingField() *goerrors.Error {
	if r.UserID == "" {
		return NewMissingFieldError("User ID", "user_id")
	}
	if r.OldPassword == "" {
		return NewMissingFieldError("Old password", "old_password")
	}
	if r.NewPassword == "" {
		return NewMissingFieldError("New password", "new_password")
	}
	return nil
}

// Validate will run validation rules
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 100)),
	)
}

func (a *AccountsController) ChangePassword(ctx *fiber.Ctx) error {
	payload := new(ChangePasswordPayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("change password parse payload", "error", err)
		return a.respondParseError(ctx, err)
	}

	if missing := payload.MissingField(); missing != nil {
		return a.respondError(ctx, missing)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("change password validate payload", "error", err)
		return a.respondValidationError(ctx, err)
	}

	req := ChangePasswordMessage{
		UserID:      payload.UserID,
		OldPassword: payload.OldPassword,
		NewPassword: payload.NewPassword,
	}

	changePwd := NewChangePasswordHandler(a.Repo).WithLogger(a.Logger)
	if err := changePwd.Execute(ctx.UserContext(), req); err != nil {
		a.Logger.Error("change password error", "error", err)
		return a.respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(MessageResponse{
		Message: "Password updated successfully.",
	})
}

// DeleteUserPayload is the delete-user request body
type DeleteUserPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (r DeleteUserPayload) MissingField() *goerrors.Error {
	if r.UserID == "" {
		return NewMissingFieldError("User ID", "user_id")
	}
	if r.Email == "" {
		return NewMissingFieldError("Email", "email")
	}
	return nil
}

func (a *AccountsController) DeleteUser(ctx *fiber.Ctx) error {
	payload := new(DeleteUserPayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("delete user parse payload", "error", err)
		return a.respondParseError(ctx, err)
	}

	if missing := payload.MissingField(); missing != nil {
		return a.respondError(ctx, missing)
	}

	req := DeleteUserMessage{
		UserID: payload.UserID,
		Email:  payload.Email,
	}

	deleteUser := NewDeleteUserHandler(a.Repo).WithLogger(a.Logger)
	if err := deleteUser.Execute(ctx.UserContext(), req); err != nil {
		a.Logger.Error("delete user error", "error", err)
		return a.respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(MessageResponse{
		Message: "User deleted successfully",
	})
}

func (a *AccountsController) CheckEmail(ctx *fiber.Ctx) error {
	email := ctx.Query("email")
	if email == "" {
		return a.respondError(ctx, NewMissingFieldError("Email", "email"))
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.UserContext(), email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// this endpoint is the one place an unknown email is a 404
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Code:    fiber.StatusNotFound,
				Message: "No user found with this email address.",
			})
		}
		a.Logger.Error("check email lookup error", "error", err)
		return a.respondError(ctx, err)
	}

	token, err := a.Tokens.Issue(user.ID.String())
	if err != nil {
		a.Logger.Error("check email token issuance error", "error", err)
		return a.respondError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(CheckEmailResponse{
		Code:    fiber.StatusOK,
		Message: "User found.",
		User: UserEnvelope{
			UserID:    user.ID.String(),
			Username:  user.Username,
			FirstName: user.FirstName,
			Email:     user.Email,
			Token:     token,
		},
	})
}

func (a *AccountsController) respondParseError(ctx *fiber.Ctx, err error) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Code:    fiber.StatusBadRequest,
		Message: "Error parsing body",
	})
}

func (a *AccountsController) respondValidationError(ctx *fiber.Ctx, err error) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Code:    fiber.StatusBadRequest,
		Message: err.Error(),
	})
}

func (a *AccountsController) respondError(ctx *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	if a.Debug {
		fmt.Println("======= ACCOUNTS ERROR =======")
		fmt.Println(print.MaybePrettyJSON(richErr))
		fmt.Println("==============================")
	}

	status := statusForError(richErr)
	return ctx.Status(status).JSON(ErrorResponse{
		Code:    status,
		Message: richErr.Message,
	})
}

// statusForError keeps the domain category and the wire status separate: the
// category describes what went wrong, the mapping below decides what the
// envelope reports.
func statusForError(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryNotFound:
		// unknown accounts surface as 400 everywhere except check-email,
		// which answers 404 directly
		return fiber.StatusBadRequest
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
