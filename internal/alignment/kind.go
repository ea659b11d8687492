package alignment

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedTransformKind is returned for an unknown transform family.
var ErrUnsupportedTransformKind = errors.New("unsupported transform kind")

// TransformKind is the parametric family a registration is fit in.
type TransformKind int

const (
	// Euclidean is rotation plus translation.
	Euclidean TransformKind = iota + 1
	// Similarity adds uniform scale.
	Similarity
	// Affine adds non-uniform scale and shear.
	Affine
)

func (k TransformKind) String() string {
	switch k {
	case Euclidean:
		return "euclidean"
	case Similarity:
		return "similarity"
	case Affine:
		return "affine"
	default:
		return fmt.Sprintf("TransformKind(%d)", int(k))
	}
}

// DegreesOfFreedom returns the number of free parameters of the family.
func (k TransformKind) DegreesOfFreedom() int {
	switch k {
	case Euclidean:
		return 3
	case Similarity:
		return 4
	case Affine:
		return 6
	}
	return 0
}

// MinPoints returns the number of matched points needed for an estimate.
// Every family needs three so that estimates are comparable across kinds.
func (k TransformKind) MinPoints() int {
	return MinPoints
}

// ParseTransformKind converts a family name (case-insensitive) to a TransformKind.
func ParseTransformKind(name string) (TransformKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "euclidean":
		return Euclidean, nil
	case "similarity":
		return Similarity, nil
	case "affine":
		return Affine, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedTransformKind, name)
}
