package roles

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpellings(t *testing.T) {
	cases := map[string]Role{
		"Product Owner": ProductOwner,
		"product_owner": ProductOwner,
		"ProductOwner":  ProductOwner,
		"superadmin":    SuperAdmin,
		"Super Admin":   SuperAdmin,
		"scrum-master":  ScrumMaster,
		" Developer ":   Developer,
		"billing_admin": BillingAdmin,
		"ADMIN":         Admin,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseUnknown(t *testing.T) {
	r, err := Parse("janitor")
	require.True(t, errors.Is(err, ErrUnknownRole))
	assert.Equal(t, Unknown, r)
	assert.Equal(t, LoginRoute, r.Home())
}

func TestEveryRoleHasDistinctHome(t *testing.T) {
	seen := map[string]Role{}
	for _, r := range All {
		home := r.Home()
		assert.NotEqual(t, LoginRoute, home, r.String())
		if prev, ok := seen[home]; ok {
			t.Fatalf("%s and %s share home %s", prev, r, home)
		}
		seen[home] = r
	}
}

func TestRoundTripLabel(t *testing.T) {
	for _, r := range All {
		got, err := Parse(r.Label())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}
