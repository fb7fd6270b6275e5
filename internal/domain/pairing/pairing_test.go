package pairing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestTrims(t *testing.T) {
	req, err := NewRequest("  123456 ", "\tKitchen TV\n")
	require.NoError(t, err)
	assert.Equal(t, Request{OTP: "123456", Label: "Kitchen TV"}, req)
}

func TestNewRequestRequiresBothFields(t *testing.T) {
	cases := []struct{ otp, label string }{
		{"", "Kitchen TV"},
		{"123456", ""},
		{"   ", "Kitchen TV"},
		{"123456", "  "},
		{"", ""},
	}
	for _, tc := range cases {
		_, err := NewRequest(tc.otp, tc.label)
		assert.ErrorIs(t, err, ErrValidation, "otp=%q label=%q", tc.otp, tc.label)
	}
}

func TestErrorFormatsKindFirst(t *testing.T) {
	cause := errors.New("timeout 20000ms exceeded")
	err := NewError(KindNavigation, "dashboard not reached after login", cause)

	assert.Equal(t, "NavigationTimeout: dashboard not reached after login: timeout 20000ms exceeded", err.Error())
	assert.ErrorIs(t, err, ErrNavigation)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrFieldNotFound)
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("pair: %w", NewError(KindControlNotFound, "submit", nil))
	assert.Equal(t, KindControlNotFound, KindOf(err))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("boom")))
}

func TestFailedCarriesMessage(t *testing.T) {
	res := Failed(NewError(KindNotConfirmed, "pairing not confirmed in the UI", nil))
	assert.False(t, res.OK)
	assert.Equal(t, "ConfirmationNotDetected: pairing not confirmed in the UI", res.Error)
	assert.Equal(t, KindNotConfirmed, res.Kind)
	assert.True(t, Succeeded().OK)
}
