package analyzer

import "fmt"

// NewDetector creates a detector based on the specified variant
func NewDetector(variant string, params Params) (Detector, error) {
	switch variant {
	case "avni", "rowcol", "":
		return NewRowColumnSegmenter(params), nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}
