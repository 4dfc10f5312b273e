package accounts_test

import (
	"context"
	"database/sql"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockUsers implements accounts.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id string) (*accounts.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*accounts.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string) (*accounts.User, error) {
	args := m.Called(ctx, identifier)
	if user, ok := args.Get(0).(*accounts.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, user)
	if record, ok := args.Get(0).(*accounts.User); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, tx, user)
	if record, ok := args.Get(0).(*accounts.User); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) UsernameExistsTx(ctx context.Context, tx bun.IDB, username string) (bool, error) {
	args := m.Called(ctx, tx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) EmailExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	args := m.Called(ctx, tx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) DeleteAccountTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockUsers) TrackAttemptedLogin(ctx context.Context, user *accounts.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, user *accounts.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockUserTracker implements accounts.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByIdentifier(ctx context.Context, identifier string) (*accounts.User, error) {
	args := m.Called(ctx, identifier)
	if user, ok := args.Get(0).(*accounts.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *accounts.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *accounts.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockIdentityProvider implements accounts.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (accounts.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if identity, ok := args.Get(0).(accounts.Identity); ok {
		return identity, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (accounts.Identity, error) {
	args := m.Called(ctx, identifier)
	if identity, ok := args.Get(0).(accounts.Identity); ok {
		return identity, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPasswordResets implements accounts.PasswordResets
type MockPasswordResets struct {
	mock.Mock
}

func (m *MockPasswordResets) GetByID(ctx context.Context, id string) (*accounts.PasswordReset, error) {
	args := m.Called(ctx, id)
	if reset, ok := args.Get(0).(*accounts.PasswordReset); ok {
		return reset, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPasswordResets) Create(ctx context.Context, record *accounts.PasswordReset) (*accounts.PasswordReset, error) {
	args := m.Called(ctx, record)
	if reset, ok := args.Get(0).(*accounts.PasswordReset); ok {
		return reset, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPasswordResets) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.PasswordReset) (*accounts.PasswordReset, error) {
	args := m.Called(ctx, tx, record)
	if reset, ok := args.Get(0).(*accounts.PasswordReset); ok {
		return reset, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPasswordResets) UpdateTx(ctx context.Context, tx bun.IDB, record *accounts.PasswordReset) (*accounts.PasswordReset, error) {
	args := m.Called(ctx, tx, record)
	if reset, ok := args.Get(0).(*accounts.PasswordReset); ok {
		return reset, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMailer implements accounts.EmailSender and records every send.
type MockMailer struct {
	mock.Mock
	Sent []accounts.SendEmailParams
}

func (m *MockMailer) SendEmail(ctx context.Context, params accounts.SendEmailParams) error {
	args := m.Called(ctx, params)
	if args.Error(0) == nil {
		m.Sent = append(m.Sent, params)
	}
	return args.Error(0)
}

// MockRepositoryManager wires the mock stores behind the
// accounts.RepositoryManager contract. RunInTx hands the closure a zero
// bun.Tx; the mock stores never touch it.
type MockRepositoryManager struct {
	UsersRepo  *MockUsers
	ResetsRepo *MockPasswordResets
}

func newMockRepo() *MockRepositoryManager {
	return &MockRepositoryManager{
		UsersRepo:  new(MockUsers),
		ResetsRepo: new(MockPasswordResets),
	}
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() accounts.Users {
	return m.UsersRepo
}

func (m *MockRepositoryManager) PasswordResets() accounts.PasswordResets {
	return m.ResetsRepo
}
