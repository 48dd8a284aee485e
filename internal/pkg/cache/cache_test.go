package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRememberWithoutStoreCallsLoad(t *testing.T) {
	calls := 0
	v, err := Remember(context.Background(), nil, "k", time.Minute, func() (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestRememberPropagatesLoadError(t *testing.T) {
	_, err := Remember(context.Background(), nil, "k", time.Minute, func() (string, error) {
		return "", errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}
