package httpclient

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	e := &Error{Kind: KindError, Message: "  not found  ", Method: "GET", Resource: "nexus/regions", HTTPStatus: 404}
	assert.Equal(t, "error: GET nexus/regions (status 404): not found", e.Error())

	timeout := newTimeoutError("POST", "validate", nil)
	assert.Equal(t, "POST validate: Request timed out.", timeout.Error())
	assert.Zero(t, timeout.HTTPStatus)
	assert.Empty(t, timeout.RequestBody)
}

func TestErrorStringTruncatesLongBodies(t *testing.T) {
	e := &Error{Kind: KindMalformed, Message: strings.Repeat("x", 2000), Method: "GET", Resource: "categories", HTTPStatus: 200}
	assert.Less(t, len(e.Error()), 600)
	assert.Len(t, e.Message, 2000)
}

func TestHelpersSeeThroughWrapping(t *testing.T) {
	base := &Error{Kind: KindTimeout, Message: TimeoutMessage}
	wrapped := fmt.Errorf("list categories: %w", base)

	assert.True(t, IsTimeout(wrapped))
	assert.False(t, IsMalformed(wrapped))
	assert.Zero(t, StatusOf(wrapped))

	got, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Same(t, base, got)

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)
	assert.Zero(t, StatusOf(errors.New("plain")))
}
