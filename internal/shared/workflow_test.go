package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testExpensePolicy = TwoStagePolicy{
	AccountsRoles: []Role{RoleAccountManager},
	HOFRoles:      []Role{RoleHOF},
	RejectRoles:   ApproverRoles(),
	Denied:        ErrUnauthorized,
}

var testRefundPolicy = TwoStagePolicy{
	AccountsRoles: []Role{RoleAccountManager, RoleAdmin},
	HOFRoles:      []Role{RoleHOF, RoleAdmin},
	GateReject:    true,
	Denied:        ErrForbidden,
}

func TestTwoStagePolicyApprovePath(t *testing.T) {
	status, err := testExpensePolicy.Submit(StatusDraft)
	require.NoError(t, err)
	require.Equal(t, StatusPendingAccounts, status)

	status, err = testExpensePolicy.Approve(RoleAccountManager, status)
	require.NoError(t, err)
	require.Equal(t, StatusPendingHOF, status)

	status, err = testExpensePolicy.Approve(RoleHOF, status)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, status)
}

func TestTwoStagePolicyApproveGuards(t *testing.T) {
	cases := []struct {
		name    string
		policy  TwoStagePolicy
		role    Role
		current ApprovalStatus
		want    error
	}{
		{"hof at accounts stage", testExpensePolicy, RoleHOF, StatusPendingAccounts, ErrUnauthorized},
		{"account manager at hof stage", testExpensePolicy, RoleAccountManager, StatusPendingHOF, ErrUnauthorized},
		{"admin on expense", testExpensePolicy, RoleAdmin, StatusPendingAccounts, ErrUnauthorized},
		{"already approved", testExpensePolicy, RoleHOF, StatusApproved, ErrInvalidState},
		{"draft", testExpensePolicy, RoleAccountManager, StatusDraft, ErrInvalidState},
		{"refund hof at accounts stage", testRefundPolicy, RoleHOF, StatusPendingAccounts, ErrForbidden},
		{"refund account manager at hof stage", testRefundPolicy, RoleAccountManager, StatusPendingHOF, ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, err := tc.policy.Approve(tc.role, tc.current)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, tc.current, status)
		})
	}
}

func TestTwoStagePolicyAdminBypassesRefundStages(t *testing.T) {
	status, err := testRefundPolicy.Approve(RoleAdmin, StatusPendingAccounts)
	require.NoError(t, err)
	require.Equal(t, StatusPendingHOF, status)
	status, err = testRefundPolicy.Approve(RoleAdmin, status)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, status)
}

func TestTwoStagePolicyReject(t *testing.T) {
	_, err := testExpensePolicy.Reject(RoleHOF, StatusPendingAccounts, "  ")
	require.ErrorIs(t, err, ErrMissingField)

	status, err := testExpensePolicy.Reject(RoleHOF, StatusPendingAccounts, "duplicate invoice")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, status)

	_, err = testExpensePolicy.Reject(RoleHOF, StatusApproved, "late")
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = testRefundPolicy.Reject(RoleHOF, StatusPendingAccounts, "wrong stage")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestTwoStagePolicyQueueFor(t *testing.T) {
	assert.Equal(t, []ApprovalStatus{StatusPendingAccounts}, testExpensePolicy.QueueFor(RoleAccountManager))
	assert.Equal(t, []ApprovalStatus{StatusPendingHOF}, testExpensePolicy.QueueFor(RoleHOF))
	assert.Equal(t, []ApprovalStatus{StatusPendingAccounts, StatusPendingHOF}, testRefundPolicy.QueueFor(RoleAdmin))
}
