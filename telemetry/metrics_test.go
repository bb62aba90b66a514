package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	m.PacketsPerSecond.Set(42)
	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
