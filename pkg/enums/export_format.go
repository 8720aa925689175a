package enums

import "fmt"

// ExportFormat selects the audit/inventory export encoding.
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
)

var validExportFormats = []ExportFormat{
	ExportFormatJSON,
	ExportFormatCSV,
}

// String implements fmt.Stringer.
func (e ExportFormat) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExportFormat.
func (e ExportFormat) IsValid() bool {
	for _, candidate := range validExportFormats {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExportFormat converts raw input into an ExportFormat.
func ParseExportFormat(value string) (ExportFormat, error) {
	for _, candidate := range validExportFormats {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid export format %q", value)
}
