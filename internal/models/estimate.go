package models

// EstimateType selects the sampling distribution used to propagate
// uncertainty in an analyst estimate.
type EstimateType string

const (
	EstimateUniform EstimateType = "UNIFORM"
	EstimateNormal  EstimateType = "NORMAL"
)

// Estimate holds the distribution parameters for one analyst estimate.
// For UNIFORM (A, B) are the min and max; for NORMAL they bound a 90%
// confidence interval.
type Estimate struct {
	Type EstimateType `gorm:"not null" json:"type"`
	A    float64      `gorm:"not null" json:"a"`
	B    float64      `gorm:"not null" json:"b"`
}

// Valid reports whether the estimate has a known type and ordered bounds
// inside the unit interval.
func (e Estimate) Valid() bool {
	if e.Type != EstimateUniform && e.Type != EstimateNormal {
		return false
	}
	return 0 <= e.A && e.A <= e.B && e.B <= 1
}
