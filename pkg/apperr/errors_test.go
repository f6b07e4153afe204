package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKindAndMessage(t *testing.T) {
	errThing := New(KindNotFound, "thing not found")
	errOther := New(KindNotFound, "other not found")
	wrapped := fmt.Errorf("load: %w", errThing)

	assert.True(t, errors.Is(wrapped, errThing))
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, errOther))
	assert.False(t, errors.Is(wrapped, ErrInvalid))
}

func TestKindOfAndMessage(t *testing.T) {
	err := fmt.Errorf("ctx: %w", Invalid("quantity must be %d or more", 1))

	assert.Equal(t, KindInvalid, KindOf(err))
	assert.Equal(t, "quantity must be 1 or more", Message(err))

	plain := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(plain))
	assert.Equal(t, "", Message(plain))
}
