package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignToken_KnownConcatenation(t *testing.T) {
	fields := map[string]string{
		"TerminalKey": "term",
		"PaymentId":   "700001",
	}

	token, err := signToken(fields, stateSignedFields, "secret")
	require.NoError(t, err)

	// sorted by field name: Password, PaymentId, TerminalKey
	sum := sha256.Sum256([]byte("secret" + "700001" + "term"))
	assert.Equal(t, hex.EncodeToString(sum[:]), token)
}

func TestSignToken_Deterministic(t *testing.T) {
	first := map[string]string{
		"TerminalKey": "term",
		"Amount":      "1000",
		"OrderId":     "42",
		"Description": "top-up",
		"CustomerKey": "100500",
	}
	// same pairs, different insertion order
	second := map[string]string{}
	for _, k := range []string{"CustomerKey", "Description", "OrderId", "Amount", "TerminalKey"} {
		second[k] = first[k]
	}

	tokenFirst, err := signToken(first, initSignedFields, "secret")
	require.NoError(t, err)
	tokenSecond, err := signToken(second, initSignedFields, "secret")
	require.NoError(t, err)

	assert.Equal(t, tokenFirst, tokenSecond)
}

func TestSignToken_EveryFieldIsLoadBearing(t *testing.T) {
	fields := map[string]string{
		"TerminalKey": "term",
		"Amount":      "1000",
		"OrderId":     "42",
		"Description": "top-up",
		"CustomerKey": "100500",
	}

	base, err := signToken(fields, initSignedFields, "secret")
	require.NoError(t, err)

	for _, name := range initSignedFields {
		changed := map[string]string{}
		for k, v := range fields {
			changed[k] = v
		}
		changed[name] = changed[name] + "x"

		token, err := signToken(changed, initSignedFields, "secret")
		require.NoError(t, err)
		assert.NotEqual(t, base, token, "changing %s must change the token", name)
	}

	// different secret, different token
	token, err := signToken(fields, initSignedFields, "other")
	require.NoError(t, err)
	assert.NotEqual(t, base, token)
}

func TestSignToken_MissingFieldFailsFast(t *testing.T) {
	fields := map[string]string{
		"TerminalKey": "term",
		"Amount":      "1000",
		"OrderId":     "42",
		"Description": "top-up",
		"CustomerKey": "100500",
	}

	for _, name := range initSignedFields {
		incomplete := map[string]string{}
		for k, v := range fields {
			if k != name {
				incomplete[k] = v
			}
		}

		_, err := signToken(incomplete, initSignedFields, "secret")
		assert.Error(t, err, "omitting %s must fail", name)
	}
}

func TestSignToken_EmptyPassword(t *testing.T) {
	_, err := signToken(map[string]string{"TerminalKey": "term", "PaymentId": "1"}, stateSignedFields, "")
	assert.Error(t, err)
}
