package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/gymbro-match/internal/auth"
)

func TestSignAndVerify(t *testing.T) {
	sig := auth.Sign("s3cret", "12345")
	assert.Len(t, sig, 64)
	assert.True(t, auth.Verify("s3cret", "12345", sig))

	// forged id with a valid signature for another id
	assert.False(t, auth.Verify("s3cret", "99999", sig))
	assert.False(t, auth.Verify("other", "12345", sig))
	assert.False(t, auth.Verify("s3cret", "12345", ""))
}

func TestVerifyWithoutSecret(t *testing.T) {
	assert.Empty(t, auth.Sign("", "1"))
	assert.True(t, auth.Verify("", "1", ""))
}

func TestSameID(t *testing.T) {
	assert.True(t, auth.SameID("42", "42"))
	assert.False(t, auth.SameID("42", "43"))
	assert.False(t, auth.SameID("", ""))
}
