package errors

import (
	"math"
	"path/filepath"
	"strings"
	"unicode"
)

// maxVertexIDLength bounds vertex identifiers read from documents and requests.
const maxVertexIDLength = 256

// MaxMagnitude bounds coordinates and distances. The solver cubes
// differences of these values, which stays finite below this limit.
const MaxMagnitude = 1e90

// ValidateVertexID validates a vertex identifier.
//
// The rules are deliberately small:
//   - No empty identifiers
//   - No control characters (they break logs, DOT output and terminals)
//   - Maximum length of 256 bytes
func ValidateVertexID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidVertex, "vertex id cannot be empty")
	}

	if len(id) > maxVertexIDLength {
		return New(ErrCodeInvalidVertex, "vertex id too long (max %d characters)", maxVertexIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidVertex, "vertex id %q contains control characters", id)
		}
	}

	return nil
}

// ValidateDistance checks that d is a finite, non-negative distance.
func ValidateDistance(d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return New(ErrCodeInvalidDistance, "distance must be finite, got %v", d)
	}
	if d < 0 {
		return New(ErrCodeInvalidDistance, "distance must be non-negative, got %v", d)
	}
	if d > MaxMagnitude {
		return New(ErrCodeInvalidDistance, "distance %v exceeds %g", d, MaxMagnitude)
	}
	return nil
}

// ValidatePoint checks that both coordinates are finite and within
// ±MaxMagnitude.
func ValidatePoint(x, y float64) error {
	for _, c := range [2]float64{x, y} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return New(ErrCodeInvalidPoint, "coordinates must be finite, got (%v, %v)", x, y)
		}
		if math.Abs(c) > MaxMagnitude {
			return New(ErrCodeInvalidPoint, "coordinates (%v, %v) exceed ±%g", x, y, MaxMagnitude)
		}
	}
	return nil
}

// ValidatePath validates a user-supplied output or input file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - Path must not name a directory (trailing separator)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return New(ErrCodeInvalidPath, "path %q names a directory", path)
	}

	return nil
}

// ValidateFormat checks that format is one of the allowed values.
// The comparison is case-sensitive; callers normalise beforehand.
func ValidateFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return New(ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(allowed, ", "))
}
