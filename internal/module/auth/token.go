package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/simp-lee/jwt"

	"github.com/simp-lee/gymadmin/internal/domain"
)

const issuer = "gymadmin"

// MaxTokenLifetime bounds the ttl Issue accepts. It covers the dashboard's
// year-long service token.
const MaxTokenLifetime = 366 * 24 * time.Hour

// Tokens issues and verifies signed admin tokens.
type Tokens struct {
	svc jwt.Service
}

// NewTokens creates a Tokens signing with secret, which must be at least 32
// characters. opts are applied after the defaults.
func NewTokens(secret string, opts ...jwt.Option) (*Tokens, error) {
	defaults := []jwt.Option{
		jwt.WithIssuer(issuer),
		jwt.WithMaxTokenLifetime(MaxTokenLifetime),
		jwt.WithUserRevocationTTL(MaxTokenLifetime),
	}
	svc, err := jwt.New(secret, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create token service: %w", err)
	}
	return &Tokens{svc: svc}, nil
}

// Issue signs a token for userID with the given role, valid for ttl.
func (t *Tokens) Issue(userID uint, role string, ttl time.Duration) (string, time.Time, error) {
	signed, err := t.svc.GenerateToken(strconv.FormatUint(uint64(userID), 10), []string{role}, ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	parsed, err := t.svc.ParseToken(signed)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read issued token: %w", err)
	}
	return signed, parsed.ExpiresAt, nil
}

// Verify parses token and returns the principal it identifies. Every
// failure is reported as domain.ErrUnauthorized.
func (t *Tokens) Verify(_ context.Context, token string) (domain.Principal, error) {
	parsed, err := t.svc.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return domain.Principal{}, domain.NewAppError(domain.CodeUnauthorized, "token expired", err)
		}
		return domain.Principal{}, domain.NewAppError(domain.CodeUnauthorized, "invalid token", err)
	}

	id, err := strconv.ParseUint(parsed.UserID, 10, 64)
	if err != nil {
		return domain.Principal{}, domain.NewAppError(domain.CodeUnauthorized, "invalid token subject", err)
	}
	if len(parsed.Roles) != 1 {
		return domain.Principal{}, domain.NewAppError(domain.CodeUnauthorized, "invalid token role", nil)
	}
	return domain.Principal{UserID: uint(id), Role: parsed.Roles[0]}, nil
}

// Close stops the revocation sweeper. It is safe to call more than once.
func (t *Tokens) Close() {
	t.svc.Close()
}
