package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultTokenTTL is the expiry window applied when no TTL is configured.
const DefaultTokenTTL = time.Hour

// AccessClaims is the token payload: the subject identifier plus the exp
// registered claim. No issuer, audience, or key id; the token carries exactly
// what the login envelope promises.
type AccessClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// VerifiedToken is the outcome of verifying a raw token string.
type VerifiedToken struct {
	UserID  string
	Valid   bool
	Expired bool
}

// TokenService issues and verifies HS256-signed bearer tokens. Tokens are
// stateless: once issued they verify until exp elapses, there is no
// revocation and a password change does not invalidate them.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	logger     Logger
}

// NewTokenService creates a new TokenService instance. A zero ttl falls back
// to DefaultTokenTTL at issuance time.
func NewTokenService(signingKey []byte, ttl time.Duration, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		signingKey: signingKey,
		ttl:        ttl,
		logger:     logger,
	}
}

// Issue signs a token for the given subject using the configured TTL.
func (ts *TokenService) Issue(subjectID string) (string, error) {
	return ts.IssueWithTTL(subjectID, ts.ttl)
}

// IssueWithTTL signs a token for the given subject expiring after ttl. A
// negative ttl produces an already expired token; callers get exactly what
// they asked for.
func (ts *TokenService) IssueWithTTL(subjectID string, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", errors.New("token subject must not be empty", errors.CategoryBadInput).
			WithTextCode(TextCodeEmptySubject)
	}

	if len(ts.signingKey) == 0 {
		return "", errors.New("token signing key must not be empty", errors.CategoryBadInput).
			WithTextCode(TextCodeEmptySigningKey)
	}

	if ttl == 0 {
		ttl = DefaultTokenTTL
	}

	claims := &AccessClaims{
		UserID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Verify recomputes the signature over the first two token segments and
// checks the exp claim. An expired token still reports its subject so callers
// can distinguish "stale" from "forged".
func (ts *TokenService) Verify(raw string) (*VerifiedToken, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return &VerifiedToken{UserID: claims.UserID, Expired: true}, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	return &VerifiedToken{UserID: claims.UserID, Valid: true}, nil
}
