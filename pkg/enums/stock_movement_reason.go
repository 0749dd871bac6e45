package enums

import "fmt"

// StockMovementReason explains why a product's stock changed.
type StockMovementReason string

const (
	StockMovementJobReserve StockMovementReason = "job_reserve"
	StockMovementJobRelease StockMovementReason = "job_release"
	StockMovementManualSet  StockMovementReason = "manual_set"
	StockMovementInitial    StockMovementReason = "initial"
)

var validStockMovementReasons = []StockMovementReason{
	StockMovementJobReserve,
	StockMovementJobRelease,
	StockMovementManualSet,
	StockMovementInitial,
}

func (r StockMovementReason) String() string {
	return string(r)
}

// IsValid reports whether the value matches a known reason.
func (r StockMovementReason) IsValid() bool {
	for _, candidate := range validStockMovementReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStockMovementReason converts raw input into StockMovementReason.
func ParseStockMovementReason(value string) (StockMovementReason, error) {
	for _, candidate := range validStockMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement reason %q", value)
}
