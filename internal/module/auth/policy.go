package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/simp-lee/rbac"

	"github.com/simp-lee/gymadmin/internal/domain"
)

type roleGrant struct {
	role, name string
	actions    []string
}

// Admins may do anything. Editors manage content but cannot delete it,
// toggle it, or add accounts.
var roleGrants = []roleGrant{
	{domain.RoleAdmin, "Administrator", []string{"*"}},
	{domain.RoleEditor, "Editor", []string{domain.ActionRead, domain.ActionCreate, domain.ActionUpdate}},
}

// Policy answers permission checks from the role grants kept by an rbac
// service. Each caller is bound to the role its token carries the first
// time it is checked.
type Policy struct {
	svc rbac.Service
}

// NewPolicy creates the rbac service from opts and makes sure the admin and
// editor roles carry their grants. Without opts the grants live in memory.
func NewPolicy(opts ...rbac.Option) (*Policy, error) {
	svc, err := rbac.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create rbac service: %w", err)
	}
	for _, g := range roleGrants {
		if err := svc.CreateRole(g.role, g.name, ""); err != nil && !errors.Is(err, rbac.ErrRoleAlreadyExists) {
			_ = svc.Close()
			return nil, fmt.Errorf("create role %s: %w", g.role, err)
		}
		if err := svc.AddRolePermissions(g.role, "*", g.actions); err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("grant role %s: %w", g.role, err)
		}
	}
	return &Policy{svc: svc}, nil
}

// Allow reports whether who may perform action on resource. Unknown roles
// are denied.
func (p *Policy) Allow(_ context.Context, who domain.Principal, resource, action string) (bool, error) {
	if !slices.ContainsFunc(roleGrants, func(g roleGrant) bool { return g.role == who.Role }) {
		return false, nil
	}
	subject := "user-" + strconv.FormatUint(uint64(who.UserID), 10)
	if err := p.bind(subject, who.Role); err != nil {
		return false, fmt.Errorf("bind %s to %s: %w", subject, who.Role, err)
	}
	return p.svc.HasPermission(subject, resource, action)
}

// bind leaves role as the only role of subject.
func (p *Policy) bind(subject, role string) error {
	roles, err := p.svc.GetUserRoles(subject)
	if err != nil {
		return err
	}
	if slices.Equal(roles, []string{role}) {
		return nil
	}
	for _, r := range roles {
		if r == role {
			continue
		}
		if err := p.svc.UnassignRole(subject, r); err != nil && !errors.Is(err, rbac.ErrUserDoesNotHaveRole) {
			return err
		}
	}
	if err := p.svc.AssignRole(subject, role); err != nil && !errors.Is(err, rbac.ErrUserAlreadyHasRole) {
		return err
	}
	return nil
}

// Close releases the rbac store. It is safe to call more than once.
func (p *Policy) Close() error {
	return p.svc.Close()
}
