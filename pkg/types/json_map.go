package types

// JSONMap is a free-form JSON object column.
type JSONMap map[string]any
