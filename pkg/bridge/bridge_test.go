package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/regalspin/gamepanel/pkg/entities"
)

func TestTokens(t *testing.T) {
	assert.Equal(t, "approve:u1:r1", ApproveToken("u1", "r1"))
	assert.Equal(t, "decline:u1:r1", DeclineToken("u1", "r1"))
}

func TestMatchToken(t *testing.T) {
	testCases := []struct {
		name        string
		token       string
		correlation string
		action      Action
		matched     bool
	}{
		{
			name:        "Approve press",
			token:       "approve:u1:r1",
			correlation: "r1",
			action:      ActionApprove,
			matched:     true,
		},
		{
			name:        "Decline press",
			token:       "decline:u1:r1",
			correlation: "r1",
			action:      ActionDecline,
			matched:     true,
		},
		{
			name:        "Press for another request",
			token:       "approve:u1:r2",
			correlation: "r1",
			matched:     false,
		},
		{
			name:        "Completed-marker press",
			token:       "ignore_completed",
			correlation: "r1",
			matched:     false,
		},
		{
			name:        "Empty correlation never matches",
			token:       "approve:u1:r1",
			correlation: "",
			matched:     false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			action, matched := MatchToken(tc.token, tc.correlation)
			assert.Equal(t, tc.matched, matched)
			if tc.matched {
				assert.Equal(t, tc.action, action)
			}
		})
	}
}

func TestSetFor(t *testing.T) {
	def := &nopBridge{}
	create := &nopBridge{}
	transaction := &nopBridge{}

	set := Set{Default: def, Create: create, Transaction: transaction}

	assert.Same(t, create, set.For(entities.RequestTypeSave))
	assert.Same(t, transaction, set.For(entities.RequestTypeAdd))
	assert.Same(t, transaction, set.For(entities.RequestTypeRedeem))
	assert.Same(t, def, set.For(entities.RequestTypeReset), "Unset kinds fall back to Default")
	assert.Same(t, def, set.For(entities.RequestTypeFreePlay))
}

type nopBridge struct{ Bridge }
