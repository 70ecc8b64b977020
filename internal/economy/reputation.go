package economy

import "github.com/talgya/campaign-world/internal/mathx"

// Reputation is a standing bounded by Min and Max.
type Reputation struct {
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// NewReputation builds a standing with the value clamped into range.
func NewReputation(min, max, value float64) Reputation {
	r := Reputation{Min: min, Max: max}
	r.Set(value)
	return r
}

// Set stores a value clamped into range.
func (r *Reputation) Set(v float64) {
	r.Value = mathx.Clamp(v, r.Min, r.Max)
}

// Add shifts the value, staying in range.
func (r *Reputation) Add(delta float64) {
	r.Set(r.Value + delta)
}

// Fraction returns how far the value is toward its bound on its own side of zero:
// Value/Max when positive, Value/Min when negative. Always in [0, 1].
func (r Reputation) Fraction() float64 {
	switch {
	case r.Value > 0 && r.Max > 0:
		return mathx.Clamp(r.Value/r.Max, 0, 1)
	case r.Value < 0 && r.Min < 0:
		return mathx.Clamp(r.Value/r.Min, 0, 1)
	default:
		return 0
	}
}
