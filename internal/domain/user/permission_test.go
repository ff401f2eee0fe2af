package user

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestRoleAuthorizer(t *testing.T) {
	auth := NewRoleAuthorizer()
	ctx := context.Background()

	cases := []struct {
		name    string
		role    Role
		cap     Capability
		allowed bool
	}{
		{"owner reverses ledger", RoleOwner, Can(ResourceLedger, ActionReverse), true},
		{"manager cannot reverse ledger", RoleManager, Can(ResourceLedger, ActionReverse), false},
		{"manager cannot pay payroll", RoleManager, Can(ResourcePayroll, ActionPay), false},
		{"cashier posts ledger", RoleCashier, Can(ResourceLedger, ActionCreate), true},
		{"cashier cannot close day", RoleCashier, Can(ResourceLedger, ActionClose), false},
		{"employee requests advance", RoleEmployee, Can(ResourceAdvance, ActionCreate), true},
		{"employee cannot approve advance", RoleEmployee, Can(ResourceAdvance, ActionApprove), false},
		{"unknown role", Role("ghost"), Can(ResourceLedger, ActionRead), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := auth.Authorize(ctx, Actor{UserID: "u1", BusinessID: "b1", Role: tc.role}, tc.cap)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, shared.ErrForbidden))
		})
	}
}

func TestRoleAuthorizerRequiresBusiness(t *testing.T) {
	err := NewRoleAuthorizer().Authorize(context.Background(), Actor{UserID: "u1", Role: RoleOwner}, Can(ResourceLedger, ActionRead))
	assert.ErrorIs(t, err, ErrBusinessIDRequired)
}
