package service

import (
	"errors"
	"testing"

	"github.com/rauth/examprep-backend/internal/model"
)

func rolePtr(r model.Role) *model.Role { return &r }

func TestCheckPlanChange(t *testing.T) {
	tests := []struct {
		name      string
		current   model.Role
		requested *model.Role
		wantErr   error
	}{
		{"no role in request", model.RoleStudent, nil, nil},
		{"student subscribes", model.RoleStudent, rolePtr(model.RolePremium), nil},
		{"premium cancels", model.RolePremium, rolePtr(model.RoleStudent), nil},
		{"same plan", model.RolePremium, rolePtr(model.RolePremium), nil},
		{"student claims admin", model.RoleStudent, rolePtr(model.RoleAdmin), ErrRoleChangeForbidden},
		{"admin downgrades", model.RoleAdmin, rolePtr(model.RoleStudent), ErrRoleChangeForbidden},
		{"admin keeps role", model.RoleAdmin, rolePtr(model.RoleAdmin), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := checkPlanChange(tt.current, tt.requested); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRoleHasPremiumAccess(t *testing.T) {
	for role, want := range map[model.Role]bool{
		model.RoleStudent: false,
		model.RolePremium: true,
		model.RoleAdmin:   true,
	} {
		if got := role.HasPremiumAccess(); got != want {
			t.Errorf("%s: expected %v, got %v", role, want, got)
		}
	}
}
