package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialExpired(t *testing.T) {
	now := time.Now()
	cred := &AccessCredential{ValidUntil: now.Add(time.Hour)}

	assert.False(t, cred.Expired(now))
	// The boundary instant itself is already outside the window.
	assert.True(t, cred.Expired(cred.ValidUntil))
	assert.True(t, cred.Expired(now.Add(2*time.Hour)))
}

func TestCredentialConfigValidity(t *testing.T) {
	fallback := 72 * time.Hour

	cfg := CredentialConfig{}
	assert.Equal(t, fallback, cfg.Validity(fallback))

	cfg.ValidHours = 6
	assert.Equal(t, 6*time.Hour, cfg.Validity(fallback))
}
