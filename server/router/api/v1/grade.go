package v1

import (
	"strconv"
	"strings"

	"github.com/hrygo/flashdeck/plugin/review"
)

// GradeParam accepts a grade as a JSON number (1-4) or name ("again", "hard", "good", "easy").
// Unknown values decode to an invalid grade, which the scheduler rejects.
type GradeParam review.Grade

func (g *GradeParam) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*g = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	grade, err := review.ParseGrade(raw)
	if err != nil {
		*g = 0
		return nil
	}
	*g = GradeParam(grade)
	return nil
}
