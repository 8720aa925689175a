package enums

import "fmt"

// AllocationMethod is the default strategy used when seeding daily records.
type AllocationMethod string

const (
	AllocationMethodPercentage AllocationMethod = "percentage"
	AllocationMethodFixed      AllocationMethod = "fixed"
	AllocationMethodDynamic    AllocationMethod = "dynamic"
)

var validAllocationMethods = []AllocationMethod{
	AllocationMethodPercentage,
	AllocationMethodFixed,
	AllocationMethodDynamic,
}

// String implements fmt.Stringer.
func (a AllocationMethod) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AllocationMethod.
func (a AllocationMethod) IsValid() bool {
	for _, candidate := range validAllocationMethods {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAllocationMethod converts raw input into an AllocationMethod.
func ParseAllocationMethod(value string) (AllocationMethod, error) {
	for _, candidate := range validAllocationMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allocation method %q", value)
}
