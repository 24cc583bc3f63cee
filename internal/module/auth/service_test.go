package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/simp-lee/gymadmin/internal/domain"
)

// newTestService wires a service to a fresh in-memory user table. A nil
// policy leaves registration open.
func newTestService(t *testing.T, policy domain.Authorizer) (*service, *Tokens) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tokens := newTokens(t)
	svc := NewService(tokens, NewUserRepository(db), policy, 2*time.Hour).(*service)
	svc.cost = bcrypt.MinCost
	return svc, tokens
}

func register(t *testing.T, svc Service, name, email string, by *domain.Principal) *domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterRequest{Name: name, Email: email, Password: "barbell-123"}, by)
	if err != nil {
		t.Fatalf("Register %s: %v", email, err)
	}
	return u
}

func TestRegister_FirstAccountIsAdmin(t *testing.T) {
	svc, _ := newTestService(t, nil)

	owner := register(t, svc, "  Salma ", " Salma@Gym.Example ", nil)
	if owner.Role != domain.RoleAdmin {
		t.Errorf("owner role = %q, want admin", owner.Role)
	}
	if owner.Name != "Salma" || owner.Email != "salma@gym.example" {
		t.Errorf("owner = %q <%s>, want trimmed and lowercased", owner.Name, owner.Email)
	}
	if owner.ID == 0 {
		t.Error("owner has no ID")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte("barbell-123")); err != nil {
		t.Errorf("stored hash does not match the password: %v", err)
	}

	staff := register(t, svc, "Omar", "omar@gym.example", nil)
	if staff.Role != domain.RoleEditor {
		t.Errorf("staff role = %q, want editor", staff.Role)
	}
}

func TestRegister_WithPolicy(t *testing.T) {
	svc, _ := newTestService(t, newTestPolicy(t))
	owner := register(t, svc, "Salma", "salma@gym.example", nil)
	admin := &domain.Principal{UserID: owner.ID, Role: domain.RoleAdmin}
	editor := &domain.Principal{UserID: owner.ID + 1, Role: domain.RoleEditor}

	tests := []struct {
		name  string
		by    *domain.Principal
		check func(error) bool
	}{
		{"anonymous", nil, domain.IsUnauthorized},
		{"editor", editor, domain.IsForbidden},
		{"admin", admin, func(err error) bool { return err == nil }},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := RegisterRequest{Name: "Omar", Email: "omar" + string(rune('a'+i)) + "@gym.example", Password: "barbell-123"}
			u, err := svc.Register(context.Background(), req, tt.by)
			if !tt.check(err) {
				t.Fatalf("Register err = %v", err)
			}
			if err == nil && u.Role != domain.RoleEditor {
				t.Errorf("role = %q, want editor", u.Role)
			}
		})
	}

	n, err := svc.users.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("accounts = %d, want the owner and the one the admin added", n)
	}
}

type brokenPolicy struct{}

func (brokenPolicy) Allow(context.Context, domain.Principal, string, string) (bool, error) {
	return false, errors.New("store offline")
}

func TestRegister_PolicyFailureIsInternal(t *testing.T) {
	svc, _ := newTestService(t, brokenPolicy{})
	owner := register(t, svc, "Salma", "salma@gym.example", nil)

	_, err := svc.Register(context.Background(),
		RegisterRequest{Name: "Omar", Email: "omar@gym.example", Password: "barbell-123"},
		&domain.Principal{UserID: owner.ID, Role: domain.RoleAdmin})
	if !domain.IsInternal(err) {
		t.Fatalf("err = %v, want internal", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t, nil)
	register(t, svc, "Salma", "salma@gym.example", nil)

	_, err := svc.Register(context.Background(), RegisterRequest{Name: "Other", Email: "SALMA@gym.example", Password: "barbell-123"}, nil)
	if !domain.IsAlreadyExists(err) {
		t.Errorf("err = %v, want already exists", err)
	}
}

func TestRegister_InvalidInputNeverTouchesStore(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{Name: "Salma", Email: "salma@", Password: "barbell-123"}, nil)
	if !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}

	n, err := svc.users.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("accounts = %d, want 0", n)
	}
}

func TestLogin(t *testing.T) {
	svc, tokens := newTestService(t, nil)
	owner := register(t, svc, "Salma", "salma@gym.example", nil)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		session, err := svc.Login(ctx, LoginRequest{Email: "Salma@gym.example", Password: "barbell-123"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if session.Role != domain.RoleAdmin || session.Account.ID != owner.ID {
			t.Errorf("session = role %q account %d", session.Role, session.Account.ID)
		}
		if d := time.Now().Add(2*time.Hour).Unix() - session.ExpiresAt; d < -5 || d > 5 {
			t.Errorf("ExpiresAt is %ds off two hours from now", d)
		}

		p, err := tokens.Verify(ctx, session.Token)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if want := (domain.Principal{UserID: owner.ID, Role: domain.RoleAdmin}); p != want {
			t.Errorf("principal = %+v, want %+v", p, want)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "salma@gym.example", Password: "dumbbell-123"})
		if !domain.IsUnauthorized(err) {
			t.Errorf("err = %v, want unauthorized", err)
		}
	})

	t.Run("unknown email looks the same as a wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "nobody@gym.example", Password: "barbell-123"})
		if err != domain.ErrUnauthorized {
			t.Errorf("err = %v, want the ErrUnauthorized sentinel", err)
		}
	})
}

type failingIssuer struct{}

func (failingIssuer) Issue(uint, string, time.Duration) (string, time.Time, error) {
	return "", time.Time{}, errors.New("key unavailable")
}

func TestLogin_IssueFailureIsInternal(t *testing.T) {
	svc, _ := newTestService(t, nil)
	register(t, svc, "Salma", "salma@gym.example", nil)
	svc.tokens = failingIssuer{}

	_, err := svc.Login(context.Background(), LoginRequest{Email: "salma@gym.example", Password: "barbell-123"})
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("err = %v, want *domain.AppError", err)
	}
	if appErr.Code != domain.CodeInternal {
		t.Errorf("code = %d, want internal", appErr.Code)
	}
}

func TestAccount(t *testing.T) {
	svc, _ := newTestService(t, nil)
	owner := register(t, svc, "Salma", "salma@gym.example", nil)
	ctx := context.Background()

	got, err := svc.Account(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if got.Email != "salma@gym.example" {
		t.Errorf("Email = %q", got.Email)
	}

	if _, err := svc.Account(ctx, 0); !domain.IsNotFound(err) {
		t.Errorf("service principal has no account, got %v", err)
	}
	if _, err := svc.Account(ctx, owner.ID+100); !domain.IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestCheckRegistration(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr string
	}{
		{"valid", RegisterRequest{"Salma", "salma@gym.example", "barbell-123"}, ""},
		{"arabic name", RegisterRequest{"سلمى", "salma@gym.example", "barbell-123"}, ""},
		{"empty name", RegisterRequest{"", "salma@gym.example", "barbell-123"}, "name is required"},
		{"name of 100 runes", RegisterRequest{strings.Repeat("س", 100), "salma@gym.example", "barbell-123"}, ""},
		{"name of 101 runes", RegisterRequest{strings.Repeat("s", 101), "salma@gym.example", "barbell-123"}, "name must not exceed"},
		{"empty email", RegisterRequest{"Salma", "", "barbell-123"}, "email is required"},
		{"no domain", RegisterRequest{"Salma", "salma@", "barbell-123"}, "valid email"},
		{"display name form", RegisterRequest{"Salma", "Salma <salma@gym.example>", "barbell-123"}, "valid email"},
		{"angle brackets", RegisterRequest{"Salma", "<salma@gym.example>", "barbell-123"}, "valid email"},
		{"short password", RegisterRequest{"Salma", "salma@gym.example", "squat"}, "at least 8"},
		{"password of 72 bytes", RegisterRequest{"Salma", "salma@gym.example", strings.Repeat("p", 72)}, ""},
		{"password of 73 bytes", RegisterRequest{"Salma", "salma@gym.example", strings.Repeat("p", 73)}, "must not exceed 72"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRegistration(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
