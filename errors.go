package accounts

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeTooManyAttempts    = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeMissingField       = "MISSING_REQUIRED_FIELD"
	TextCodeEmailExists        = "EMAIL_EXISTS"
	TextCodeUsernameExists     = "USERNAME_EXISTS"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeEmailNotFound      = "EMAIL_NOT_FOUND"
	TextCodeAccountMismatch    = "ACCOUNT_MISMATCH"
	TextCodeOldPasswordInvalid = "OLD_PASSWORD_INVALID"
	TextCodeEmailDeliveryFail  = "EMAIL_DELIVERY_FAILED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeEmptySubject       = "EMPTY_TOKEN_SUBJECT"
	TextCodeEmptySigningKey    = "EMPTY_SIGNING_KEY"
)

// ErrIdentityNotFound is returned when no account matches an identifier.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is returned for a wrong password or an unknown
// login identifier; the two are deliberately indistinguishable to the caller.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned once the cooldown window is exhausted.
var ErrTooManyLoginAttempts = errors.New("too many login attempts, try again later", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrEmailAlreadyExists is returned when registering an email already on file.
var ErrEmailAlreadyExists = errors.New("email address is already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(errors.CodeBadRequest)

// ErrUsernameAlreadyExists is returned when an explicit username is taken.
var ErrUsernameAlreadyExists = errors.New("username is already taken", errors.CategoryConflict).
	WithTextCode(TextCodeUsernameExists).
	WithCode(errors.CodeBadRequest)

// ErrEmailDeliveryFailed is returned when the mail dependency rejects a send.
var ErrEmailDeliveryFailed = errors.New("unable to send email", errors.CategoryInternal).
	WithTextCode(TextCodeEmailDeliveryFail).
	WithCode(errors.CodeInternal)

// ErrTokenExpired is returned when a token's exp claim has elapsed.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens we cannot parse or whose signature
// does not verify.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// NewMissingFieldError builds the 400 validation error for a required request
// field, in the envelope wording callers depend on.
func NewMissingFieldError(label, field string) *errors.Error {
	return errors.New(label+" field '"+field+"' is required.", errors.CategoryValidation).
		WithTextCode(TextCodeMissingField).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{"field": field})
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
