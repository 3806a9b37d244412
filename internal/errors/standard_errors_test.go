package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducesBareError(t *testing.T) {
	err := New(KindNotFound, "memory not found")

	assert.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t, "memory not found", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrapCarriesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindStoreUnavailable, "fetching memory", cause)

	assert.Equal(t, "fetching memory: connection refused", err.Error())
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestWithDetailsAttachesAndReturnsSameError(t *testing.T) {
	err := New(KindInvalidInput, "bad weight").WithDetails(map[string]interface{}{"field": "recency_weight"})

	require.NotNil(t, err.Details)
	assert.Equal(t, "recency_weight", err.Details["field"])
}

func TestIsMatchesOnKindNotIdentity(t *testing.T) {
	err := New(KindConflict, "duplicate already merged")

	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))
	assert.False(t, Is(errors.New("plain error"), KindConflict))
}

func TestToHTTPStatusCoversEveryKind(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidInput:         http.StatusUnprocessableEntity,
		KindNotFound:             http.StatusNotFound,
		KindStoreUnavailable:     http.StatusServiceUnavailable,
		KindConflict:             http.StatusConflict,
		KindEmbeddingUnavailable: http.StatusInternalServerError,
		KindComputationError:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, New(kind, "x").ToHTTPStatus(), "kind=%s", kind)
	}
}

func TestToJSONRoundTripsKindAndMessage(t *testing.T) {
	err := New(KindInvalidInput, "bad input").WithDetails(map[string]interface{}{"field": "x"})

	data, jsonErr := err.ToJSON()
	require.NoError(t, jsonErr)
	assert.Contains(t, string(data), `"kind":"INVALID_INPUT"`)
	assert.Contains(t, string(data), `"message":"bad input"`)
	assert.Contains(t, string(data), `"field":"x"`)
}
