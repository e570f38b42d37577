package document

import (
	"testing"

	"github.com/athlinked/searchkit/internal/domain/search/filter"
)

func mustScalar(t *testing.T, field, value string) []filter.Condition {
	t.Helper()
	c, err := filter.NewScalar(field, value)
	if err != nil {
		t.Fatalf("NewScalar: %v", err)
	}
	return []filter.Condition{c}
}

func mustNumericRange(t *testing.T, field string, min, max *float64) []filter.Condition {
	t.Helper()
	c, err := filter.NewNumericRange(field, filter.NumericRange{Min: min, Max: max})
	if err != nil {
		t.Fatalf("NewNumericRange: %v", err)
	}
	return []filter.Condition{c}
}
