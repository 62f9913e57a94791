package conformance

// Report is the outcome of evaluating an assertion: a success/failure verdict
// plus an ordered list of evidence. Reports are immutable values; combining
// reports produces a new one.
//
// Combination is a monoid: Success is the identity, any error-severity issue
// is absorbing for the outcome, and evidence order follows combination order.
// The outcome itself is independent of the order in which reports are
// combined.
type Report struct {
	// Evidence holds the issues gathered during evaluation, in the order
	// the contributing rules were declared.
	Evidence []Issue
}

// Success is the empty, successful report. It is the identity of Combine.
var Success = Report{}

// ReportOf creates a report from the given evidence.
func ReportOf(evidence ...Issue) Report {
	if len(evidence) == 0 {
		return Success
	}
	return Report{Evidence: evidence}
}

// Combine merges the given reports into one, preserving evidence order.
// Combining zero reports yields Success.
func Combine(reports ...Report) Report {
	total := 0
	for _, r := range reports {
		total += len(r.Evidence)
	}
	if total == 0 {
		return Success
	}
	evidence := make([]Issue, 0, total)
	for _, r := range reports {
		evidence = append(evidence, r.Evidence...)
	}
	return Report{Evidence: evidence}
}

// Failed returns true if any evidence item has error or fatal severity.
// Warnings and informational traces never flip the outcome.
func (r Report) Failed() bool {
	for _, issue := range r.Evidence {
		if issue.IsError() {
			return true
		}
	}
	return false
}

// IsSuccessful returns true if the report carries no error-severity evidence.
func (r Report) IsSuccessful() bool {
	return !r.Failed()
}

// Errors returns all error and fatal issues.
func (r Report) Errors() []Issue {
	var errors []Issue
	for _, issue := range r.Evidence {
		if issue.IsError() {
			errors = append(errors, issue)
		}
	}
	return errors
}

// Warnings returns all warning issues.
func (r Report) Warnings() []Issue {
	var warnings []Issue
	for _, issue := range r.Evidence {
		if issue.IsWarning() {
			warnings = append(warnings, issue)
		}
	}
	return warnings
}

// ErrorCount returns the number of error and fatal issues.
func (r Report) ErrorCount() int {
	count := 0
	for _, issue := range r.Evidence {
		if issue.IsError() {
			count++
		}
	}
	return count
}

// WithoutTrace returns a report with information-severity evidence removed.
// The outcome is unchanged because traces never carry it.
func (r Report) WithoutTrace() Report {
	evidence := make([]Issue, 0, len(r.Evidence))
	for _, issue := range r.Evidence {
		if !issue.IsTrace() {
			evidence = append(evidence, issue)
		}
	}
	return ReportOf(evidence...)
}

// Truncated returns a report limited to the first max evidence items.
// A max of zero or less leaves the report unchanged.
func (r Report) Truncated(max int) Report {
	if max <= 0 || len(r.Evidence) <= max {
		return r
	}
	return Report{Evidence: r.Evidence[:max]}
}

// ToMap converts the report to a generic nested key-value structure for
// diagnostic tooling.
func (r Report) ToMap() map[string]any {
	evidence := make([]any, 0, len(r.Evidence))
	for _, issue := range r.Evidence {
		evidence = append(evidence, issue.ToMap())
	}
	outcome := "success"
	if r.Failed() {
		outcome = "failure"
	}
	return map[string]any{
		"outcome":  outcome,
		"evidence": evidence,
	}
}
