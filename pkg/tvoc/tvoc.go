// Package tvoc implements the Temporal-Violation-of-Context detector:
// a purely functional check for output text that references years
// beyond a declared boundary without corroborating context.
package tvoc

import (
	"regexp"
	"strconv"
	"time"
)

// Verdict is the detector's outcome.
type Verdict string

const (
	VerdictStrong Verdict = "STRONG"
	VerdictNone   Verdict = "NONE"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Result is the detector's output shape.
type Result struct {
	Verdict        Verdict `json:"verdict"`
	ViolatingYears []int   `json:"violating_years"`
	TTarget        int64   `json:"t_target"`
}

// ExtractYears returns every 1900-2099 four-digit year found in text,
// in order of appearance, without deduplication.
func ExtractYears(text string) []int {
	matches := yearPattern.FindAllString(text, -1)
	years := make([]int, 0, len(matches))
	for _, m := range matches {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	return years
}

// Detect evaluates text against tTarget (a Unix timestamp in seconds)
// and hasPostTargetContext (whether any context item corroborates a
// post-boundary reference). The detector never consults the ledger
// and has no side effects.
func Detect(text string, tTarget int64, hasPostTargetContext bool) Result {
	targetYear := time.Unix(tTarget, 0).UTC().Year()

	years := ExtractYears(text)
	var violating []int
	for _, y := range years {
		if y > targetYear {
			violating = append(violating, y)
		}
	}

	verdict := VerdictNone
	if len(violating) > 0 && !hasPostTargetContext {
		verdict = VerdictStrong
	}

	return Result{
		Verdict:        verdict,
		ViolatingYears: violating,
		TTarget:        tTarget,
	}
}
