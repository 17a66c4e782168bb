package sperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(NotConnected, "publish NDATA")
	assert.Equal(t, "not connected: publish NDATA", err.Error())

	wrapped := Wrap(ConnectFailed, errors.New("dial tcp: refused"), "connect to tcp://broker:1883")
	assert.Equal(t, "connect failed: connect to tcp://broker:1883: dial tcp: refused", wrapped.Error())
}

func TestKindMatching(t *testing.T) {
	err := New(PreconditionViolated, "DBIRTH before NBIRTH")

	assert.True(t, IsKind(err, PreconditionViolated))
	assert.False(t, IsKind(err, NotConnected))

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, PreconditionViolated, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestKindMatchingThroughWrapping(t *testing.T) {
	inner := New(Timeout, "connect")
	outer := fmt.Errorf("session setup: %w", inner)

	assert.True(t, IsKind(outer, Timeout))
	assert.True(t, errors.Is(outer, &Error{Kind: Timeout}))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("broken pipe")
	err := Wrap(PublishFailed, cause, "publish")
	assert.True(t, errors.Is(err, cause))
}
