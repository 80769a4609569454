package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	u := &User{Password: "s3cret!"}
	require.NoError(t, u.HashPassword())
	assert.NotEqual(t, "s3cret!", u.Password)
	assert.True(t, u.ComparePassword("s3cret!"))
	assert.False(t, u.ComparePassword("wrong"))
}

func TestCallerRoles(t *testing.T) {
	assert.False(t, Caller{Role: RoleCitizen}.IsStaff())
	assert.True(t, Caller{Role: RoleMunicipalStaff}.IsStaff())
	assert.False(t, Caller{Role: RoleMunicipalStaff}.IsAdmin())
	assert.True(t, Caller{Role: RoleAdmin}.IsStaff())
	assert.True(t, Caller{Role: RoleAdmin}.IsAdmin())
}
