package hint

import (
	"strconv"
	"unicode/utf16"
)

// ProblemID derives the storage key of a problem from its text: a 31-multiplier
// rolling hash over UTF-16 code units with 32-bit wraparound. Collisions are
// possible and accepted.
func ProblemID(problem string) string {
	var h int32
	for _, cu := range utf16.Encode([]rune(problem)) {
		h = h*31 + int32(cu)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return "problem_" + strconv.FormatInt(abs, 10)
}
