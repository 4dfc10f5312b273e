package accounts

import (
	"context"
	"reflect"
)

// Auther authenticates credentials and mints bearer tokens
type Auther struct {
	provider     IdentityProvider
	tokenService *TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, tokenService *TokenService) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() *TokenService {
	return s.tokenService
}

// Login verifies the identifier/password pair and issues a bearer token for
// the matching account.
func (s *Auther) Login(ctx context.Context, identifier, password string) (Identity, string, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		return nil, "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return nil, "", ErrIdentityNotFound
	}

	token, err := s.tokenService.Issue(identity.ID())
	if err != nil {
		s.logger.Error("Login token issuance error", "error", err)
		return nil, "", err
	}

	return identity, token, nil
}
