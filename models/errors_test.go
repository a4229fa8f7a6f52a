package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInternalError("failed to create post", cause)

	assert.Equal(t, "failed to create post: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewNotFoundError(ResourcePost))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindForbidden))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, ResourcePost, appErr.Resource)
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestNoUsableUser(t *testing.T) {
	err := NewNoUsableUserError()

	assert.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t, ResourceUser, err.Resource)
	assert.Equal(t, ReasonNoUsableUser, err.Reason)
}

func TestMissingField(t *testing.T) {
	err := NewMissingFieldError("title")

	assert.Equal(t, "title", err.Field)
	assert.Equal(t, "title is required", err.Error())
}
