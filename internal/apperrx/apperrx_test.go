package apperrx

import (
	"errors"
	"testing"

	"github.com/pannpers/go-apperr/apperr"
	"github.com/pannpers/go-apperr/apperr/codes"
	"github.com/stretchr/testify/assert"
)

func TestCodeOfPrefersTheCarriedCodeOnAnApperrxError(t *testing.T) {
	err := New(codes.FailedPrecondition, "TAG_VERIFICATION_FAILED", "tag mismatch")

	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, codes.FailedPrecondition, code)
}

func TestCodeOfClassifiesAPlainApperrErrorBySentinel(t *testing.T) {
	err := apperr.Wrap(errors.New("database is locked"), codes.Unavailable, "failed to insert event")

	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, codes.Unavailable, code)
}

func TestCodeOfReturnsTheCarriedCodeOfAnApperrxWrapOverAnApperrCause(t *testing.T) {
	cause := apperr.Wrap(errors.New("UNIQUE constraint failed"), codes.AlreadyExists, "alias taken")
	err := Wrap(cause, codes.AlreadyExists, "ALIAS_TAKEN", "alias is already taken")

	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, codes.AlreadyExists, code)

	ae, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "ALIAS_TAKEN", ae.Token)
}

func TestCodeOfReturnsFalseForAnUnrecognizedError(t *testing.T) {
	_, ok := CodeOf(errors.New("boom"))
	assert.False(t, ok)
}
