package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChangedPasswordAfter(t *testing.T) {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	u := &User{}
	assert.False(t, u.ChangedPasswordAfter(issued), "never changed")

	changed := issued.Add(time.Minute)
	u.PasswordChangedAt = &changed
	assert.True(t, u.ChangedPasswordAfter(issued))
	assert.False(t, u.ChangedPasswordAfter(changed), "same second is not after")
	assert.False(t, u.ChangedPasswordAfter(changed.Add(time.Second)))
}

func TestHasRole(t *testing.T) {
	u := &User{Role: RoleLeadGuide}
	assert.True(t, u.HasRole(RoleAdmin, RoleLeadGuide))
	assert.False(t, u.HasRole(RoleAdmin))
	assert.False(t, u.HasRole())
}
