package config

import "fmt"

// TracingConfig configures distributed tracing export. A zero value
// disables tracing: NewTracer returns a no-op tracer when Endpoint is empty.
type TracingConfig struct {
	Endpoint     string  `yaml:"endpoint"` // OTLP gRPC collector, e.g. "localhost:4317"
	SamplingRate float64 `yaml:"sampling_rate"`
}

func (t *TracingConfig) applyDefaults() {
	if t.SamplingRate == 0 {
		t.SamplingRate = 1.0
	}
}

// Validate reports an out-of-range sampling rate.
func (t TracingConfig) Validate() error {
	if t.SamplingRate < 0 || t.SamplingRate > 1 {
		return fmt.Errorf("sampling_rate must be between 0 and 1, got %v", t.SamplingRate)
	}
	return nil
}
