package mqttpub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresBroker(t *testing.T) {
	_, err := New(Config{Topic: "gps/position"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "broker")
}
