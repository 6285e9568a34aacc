// Package verify scores client answers against the expected result.
package verify

import (
	"math"
	"strconv"
	"strings"

	"math-challenge-service/internal/domain"
)

// epsilon tolerates floating-point formatted answers like "24.0".
const epsilon = 1e-6

// Verify reports whether raw is a correct answer to the problem. The input
// is trimmed and parsed numerically; integer answers must match exactly and
// float-formatted answers match within a fixed epsilon. Anything unparsable
// is simply incorrect, never an error.
func Verify(p domain.Problem, raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n == p.Answer
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return math.Abs(f-float64(p.Answer)) < epsilon
	}
	return false
}
