package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRolePrecedence(t *testing.T) {
	t.Parallel()

	assert.Less(t, rolePrecedence(RoleAdmin), rolePrecedence(RoleRouteSetter))
	assert.Less(t, rolePrecedence(RoleRouteSetter), rolePrecedence(RoleMember))
	assert.Less(t, rolePrecedence(RoleMember), rolePrecedence("belay_volunteer"))
}

func TestPrimarySlug(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		slugs []string
		want  string
	}{
		{"empty defaults to member", nil, RoleMember},
		{"single", []string{RoleRouteSetter}, RoleRouteSetter},
		{"admin wins", []string{RoleMember, RoleAdmin, RoleRouteSetter}, RoleAdmin},
		{"setter over member", []string{RoleMember, RoleRouteSetter}, RoleRouteSetter},
		{"unknown slug loses to member", []string{"belay_volunteer", RoleMember}, RoleMember},
		{"unknown only still returned", []string{"belay_volunteer"}, "belay_volunteer"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, primarySlug(tc.slugs))
		})
	}
}

func TestParseCapabilities(t *testing.T) {
	t.Parallel()

	set := ParseCapabilities("manage_routes, delete_routes ,admin")
	assert.Len(t, set, 3)
	assert.Contains(t, set, "manage_routes")
	assert.Contains(t, set, "delete_routes")
	assert.Contains(t, set, "admin")

	assert.Empty(t, ParseCapabilities(""))
	assert.Empty(t, ParseCapabilities(" , ,"))
}
