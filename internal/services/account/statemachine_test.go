package account

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pillarmind/account-service/internal/models"
)

func TestLookupTransition(t *testing.T) {
	tests := []struct {
		name      string
		from      models.State
		to        models.State
		wantOK    bool
		adminOnly bool
		allowSelf bool
		reason    bool
	}{
		{name: "active to suspended needs admin and reason", from: models.StateActive, to: models.StateSuspended, wantOK: true, adminOnly: true, reason: true},
		{name: "active to deactivated allowed for owner", from: models.StateActive, to: models.StateDeactivated, wantOK: true, allowSelf: true},
		{name: "active to deleted is admin only", from: models.StateActive, to: models.StateDeleted, wantOK: true, adminOnly: true},
		{name: "suspended back to active", from: models.StateSuspended, to: models.StateActive, wantOK: true, adminOnly: true},
		{name: "suspended to deactivated", from: models.StateSuspended, to: models.StateDeactivated, wantOK: true, adminOnly: true},
		{name: "suspended to deleted", from: models.StateSuspended, to: models.StateDeleted, wantOK: true, adminOnly: true},
		{name: "deactivated back to active", from: models.StateDeactivated, to: models.StateActive, wantOK: true, adminOnly: true},
		{name: "deactivated to deleted", from: models.StateDeactivated, to: models.StateDeleted, wantOK: true, adminOnly: true},

		{name: "same state active is rejected", from: models.StateActive, to: models.StateActive},
		{name: "same state suspended is rejected", from: models.StateSuspended, to: models.StateSuspended},
		{name: "deactivated cannot be suspended", from: models.StateDeactivated, to: models.StateSuspended},
		{name: "deleted is terminal to active", from: models.StateDeleted, to: models.StateActive},
		{name: "deleted is terminal to suspended", from: models.StateDeleted, to: models.StateSuspended},
		{name: "deleted is terminal to deactivated", from: models.StateDeleted, to: models.StateDeactivated},
		{name: "deleted is terminal to deleted", from: models.StateDeleted, to: models.StateDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := lookupTransition(tt.from, tt.to)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.adminOnly, rule.AdminOnly)
				assert.Equal(t, tt.allowSelf, rule.AllowSelf)
				assert.Equal(t, tt.reason, rule.RequireReason)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	owner := models.Principal{UID: "uid-1", Role: models.RoleUser}
	stranger := models.Principal{UID: "uid-2", Role: models.RoleUser}
	clinician := models.Principal{UID: "uid-3", Role: models.RoleClinician}
	admin := models.Principal{UID: "uid-4", Role: models.RoleAdmin}

	tests := []struct {
		name      string
		principal models.Principal
		target    string
		op        Operation
		wantErr   bool
	}{
		{name: "owner reads own account", principal: owner, target: "uid-1", op: OpReadAccount},
		{name: "owner updates own profile", principal: owner, target: "uid-1", op: OpUpdateProfile},
		{name: "owner changes own password", principal: owner, target: "uid-1", op: OpChangePassword},
		{name: "owner deactivates self", principal: owner, target: "uid-1", op: OpDeactivateSelf},

		{name: "user cannot read another account", principal: stranger, target: "uid-1", op: OpReadAccount, wantErr: true},
		{name: "user cannot update another profile", principal: stranger, target: "uid-1", op: OpUpdateProfile, wantErr: true},
		{name: "user cannot list accounts", principal: stranger, target: "", op: OpListAccounts, wantErr: true},

		{name: "clinician reads another account", principal: clinician, target: "uid-1", op: OpReadAccount},
		{name: "clinician cannot update another profile", principal: clinician, target: "uid-1", op: OpUpdateProfile, wantErr: true},
		{name: "clinician cannot transition state", principal: clinician, target: "uid-1", op: OpTransitionState, wantErr: true},
		{name: "clinician cannot bypass privacy", principal: clinician, target: "uid-1", op: OpBypassPrivacy, wantErr: true},

		{name: "admin reads any account", principal: admin, target: "uid-1", op: OpReadAccount},
		{name: "admin updates any profile", principal: admin, target: "uid-1", op: OpUpdateProfile},
		{name: "admin transitions state", principal: admin, target: "uid-1", op: OpTransitionState},
		{name: "admin changes roles", principal: admin, target: "uid-1", op: OpChangeRole},
		{name: "admin lists accounts", principal: admin, target: "", op: OpListAccounts},
		{name: "admin reads audit trail", principal: admin, target: "uid-1", op: OpReadAuditTrail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorize(tt.principal, tt.target, tt.op)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrPermissionDenied)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
