package kpi

import (
	"encoding/json"
	"math"
)

// SafeDivide returns n/d, or 0 when d is zero or the result is not finite.
func SafeDivide(n, d float64) float64 {
	if d == 0 || math.IsNaN(d) {
		return 0
	}
	v := n / d
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Value is a metric that may be unmeasurable in the current context.
// An unavailable Value is distinct from a measured zero and encodes as null.
type Value struct {
	Amount    float64
	Available bool
}

// Measured returns an available Value.
func Measured(v float64) Value { return Value{Amount: v, Available: true} }

// Unavailable returns the sentinel for a metric with no defined meaning.
func Unavailable() Value { return Value{} }

// Get returns the amount and whether it is available.
func (v Value) Get() (float64, bool) { return v.Amount, v.Available }

// MarshalJSON encodes an unavailable value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Available {
		return []byte("null"), nil
	}
	return json.Marshal(v.Amount)
}

// UnmarshalJSON decodes null as unavailable.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Unavailable()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Measured(f)
	return nil
}
