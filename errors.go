package arlam

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid or internally inconsistent model
// setup, discovered at construction or on first use.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Msg }

func confErrf(format string, a ...interface{}) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, a...)}
}

// ShapeMismatchError reports tensor dimensions that do not line up.
type ShapeMismatchError struct {
	Op        string
	Got, Want []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: got %v, want %v", e.Op, e.Got, e.Want)
}

func shapeErr(op string, got, want []int) error {
	return &ShapeMismatchError{Op: op, Got: got, Want: want}
}

// UnknownMetricError reports a metric name absent from the registry.
type UnknownMetricError struct {
	Name string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("unknown metric %q (have: %s)", e.Name, strings.Join(MetricNames(), ", "))
}
