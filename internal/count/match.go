package count

import "github.com/vbonduro/stockcount/internal/domain"

type MatchOutcome string

const (
	MatchNotFound        MatchOutcome = "not_found"
	MatchPending         MatchOutcome = "matched"
	MatchAlreadyResolved MatchOutcome = "already_resolved"
)

// NotFoundGuidance is shown when a scanned code is not part of the session.
const NotFoundGuidance = "batch not found in this location; check if it belongs to a different warehouse"

type MatchResult struct {
	Outcome MatchOutcome
	Line    *domain.CountLine
	Message string
}

// Match returns the first line whose batch number equals code exactly.
// Matching is case-sensitive and never partial.
func Match(code string, lines []*domain.CountLine) (*domain.CountLine, bool) {
	for _, line := range lines {
		if line.BatchNumber == code {
			return line, true
		}
	}
	return nil, false
}

// Scan classifies a scanned code against the session lines.
func Scan(code string, lines []*domain.CountLine) MatchResult {
	line, ok := Match(code, lines)
	if !ok {
		return MatchResult{Outcome: MatchNotFound, Message: NotFoundGuidance}
	}
	if Resolved(line) {
		return MatchResult{
			Outcome: MatchAlreadyResolved,
			Line:    line,
			Message: "batch " + code + " is already " + string(line.Status),
		}
	}
	return MatchResult{Outcome: MatchPending, Line: line}
}
