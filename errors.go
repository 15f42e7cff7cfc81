package dissim

import "fmt"

// ShapeMismatchError reports two samples whose feature counts differ after
// canonicalization. Every dissimilarity requires both samples to live in the
// same feature space.
type ShapeMismatchError struct {
	XFeatures, YFeatures int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("dissim: mismatched feature counts %d and %d", e.XFeatures, e.YFeatures)
}

// DimensionalityError reports a feature count too large for nearest-neighbor
// density estimation. Distances concentrate in high dimensions and the
// estimates stop carrying information well before they stop computing.
type DimensionalityError struct {
	Features int
}

func (e *DimensionalityError) Error() string {
	return fmt.Sprintf("dissim: %d features is not supported, nearest-neighbor estimation requires fewer than %d", e.Features, MaxFeatures)
}

// UnknownAlgorithmError reports a dissimilarity name that is not in the
// registry. The registry is closed; there is no way to register new names.
type UnknownAlgorithmError struct {
	Name string
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("dissim: unknown dissimilarity algorithm %q", e.Name)
}
