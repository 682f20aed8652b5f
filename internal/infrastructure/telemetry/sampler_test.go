package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  string
	}{
		{"always", 1.0, "AlwaysOnSampler"},
		{"above one", 2.0, "AlwaysOnSampler"},
		{"never", 0.0, "AlwaysOffSampler"},
		{"negative", -1, "AlwaysOffSampler"},
		{"ratio", 0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, samplerFor(tt.ratio).Description(), tt.want)
		})
	}
}

func TestServiceVersion(t *testing.T) {
	assert.Equal(t, defaultServiceVersion, serviceVersion(""))
	assert.Equal(t, "2.3.4", serviceVersion("2.3.4"))
}
