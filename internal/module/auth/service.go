package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/gymadmin/internal/domain"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID uint, role string, ttl time.Duration) (string, time.Time, error)
}

// Service signs admins in and manages their accounts.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	// Register creates an account. The first account of a fresh
	// installation is an admin, every later one an editor. With a policy
	// set, later accounts may only be added by a caller it allows to
	// register users; by is nil for an anonymous caller.
	Register(ctx context.Context, req RegisterRequest, by *domain.Principal) (*domain.User, error)
	Account(ctx context.Context, userID uint) (*domain.User, error)
}

type service struct {
	tokens TokenIssuer
	users  domain.UserRepository
	policy domain.Authorizer
	ttl    time.Duration
	cost   int
}

// NewService creates a Service issuing tokens valid for ttl. A nil policy
// leaves registration open.
func NewService(tokens TokenIssuer, users domain.UserRepository, policy domain.Authorizer, ttl time.Duration) Service {
	return &service{tokens: tokens, users: users, policy: policy, ttl: ttl, cost: bcrypt.DefaultCost}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	switch {
	case domain.IsNotFound(err):
		return nil, domain.ErrUnauthorized
	case err != nil:
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, domain.ErrUnauthorized
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role, s.ttl)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to issue token", err)
	}
	return &Session{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		Role:      user.Role,
		Account:   newAccount(user),
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest, by *domain.Principal) (*domain.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := checkRegistration(req); err != nil {
		return nil, err
	}

	existing, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	role := domain.RoleEditor
	if existing == 0 {
		role = domain.RoleAdmin
	} else if err := s.mayRegister(ctx, by); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}
	user := &domain.User{Name: req.Name, Email: req.Email, Role: role, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) mayRegister(ctx context.Context, by *domain.Principal) error {
	switch {
	case s.policy == nil:
		return nil
	case by == nil:
		return domain.ErrUnauthorized
	}
	allowed, err := s.policy.Allow(ctx, *by, domain.ResourceUsers, domain.ActionRegister)
	switch {
	case err != nil:
		return domain.NewAppError(domain.CodeInternal, "failed to check permission", err)
	case !allowed:
		return domain.ErrForbidden
	}
	return nil
}

func (s *service) Account(ctx context.Context, userID uint) (*domain.User, error) {
	if userID == 0 {
		// Service tokens carry no account.
		return nil, domain.ErrNotFound
	}
	return s.users.GetByID(ctx, userID)
}

// checkRegistration expects name and email already trimmed.
func checkRegistration(req RegisterRequest) error {
	invalid := func(msg string) error { return domain.NewAppError(domain.CodeValidation, msg, nil) }

	switch n := utf8.RuneCountInString(req.Name); {
	case n == 0:
		return invalid("name is required")
	case n > 100:
		return invalid("name must not exceed 100 characters")
	}

	if req.Email == "" {
		return invalid("email is required")
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Name != "" || addr.Address != req.Email {
		return invalid("email must be a valid email address")
	}

	// bcrypt ignores bytes past 72.
	switch n := len(req.Password); {
	case n < 8:
		return invalid("password must be at least 8 characters")
	case n > 72:
		return invalid("password must not exceed 72 characters")
	}
	return nil
}
