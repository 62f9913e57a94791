package conformance

// Severity represents the severity of a validation issue.
type Severity string

const (
	// SeverityFatal indicates the issue is fatal and validation cannot continue.
	SeverityFatal Severity = "fatal"
	// SeverityError indicates a conformance violation that makes the instance invalid.
	SeverityError Severity = "error"
	// SeverityWarning indicates a potential problem that should be reviewed.
	SeverityWarning Severity = "warning"
	// SeverityInformation indicates advisory feedback, including trace evidence
	// emitted when a rule is inapplicable to the value it was handed.
	SeverityInformation Severity = "information"
)

// IssueType represents the type of validation issue.
type IssueType string

const (
	// IssueTypeInvalid indicates the content is invalid against the profile.
	IssueTypeInvalid IssueType = "invalid"
	// IssueTypeStructure indicates a structural issue.
	IssueTypeStructure IssueType = "structure"
	// IssueTypeValue indicates an invalid value.
	IssueTypeValue IssueType = "value"
	// IssueTypeCodeInvalid indicates a coded value failed its binding.
	IssueTypeCodeInvalid IssueType = "code-invalid"
	// IssueTypeNotFound indicates a referenced schema or resource was not found.
	IssueTypeNotFound IssueType = "not-found"
	// IssueTypeNotSupported indicates a check could not be performed.
	IssueTypeNotSupported IssueType = "not-supported"
	// IssueTypeIncomplete indicates incomplete data or processing.
	IssueTypeIncomplete IssueType = "incomplete"
	// IssueTypeProcessing indicates a processing error in a collaborator.
	IssueTypeProcessing IssueType = "processing"
	// IssueTypeBusinessRule indicates a business rule violation.
	IssueTypeBusinessRule IssueType = "business-rule"
	// IssueTypeInformational indicates informational content.
	IssueTypeInformational IssueType = "informational"
)

// Issue represents a single validation finding. Issues are first-class
// evidence: they are collected into Reports and never raised as faults.
type Issue struct {
	// Severity of the issue
	Severity Severity `json:"severity"`

	// Code identifying the type of issue
	Code IssueType `json:"code"`

	// ID is the stable diagnostic identifier for the condition
	ID DiagnosticID `json:"id,omitempty"`

	// Diagnostics contains human-readable details about the issue
	Diagnostics string `json:"diagnostics,omitempty"`

	// Location is the path to the offending element in the instance
	Location string `json:"location,omitempty"`
}

// IsError returns true if this is an error or fatal issue.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError || i.Severity == SeverityFatal
}

// IsWarning returns true if this is a warning.
func (i Issue) IsWarning() bool {
	return i.Severity == SeverityWarning
}

// IsTrace returns true for advisory evidence that never affects the outcome.
func (i Issue) IsTrace() bool {
	return i.Severity == SeverityInformation
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	s := string(i.Severity) + ": " + i.Diagnostics
	if i.Location != "" {
		s += " at " + i.Location
	}
	return s
}

// ToMap converts the issue to a generic nested key-value structure for
// diagnostic tooling.
func (i Issue) ToMap() map[string]any {
	m := map[string]any{
		"severity": string(i.Severity),
		"code":     string(i.Code),
	}
	if i.ID != "" {
		m["id"] = string(i.ID)
	}
	if i.Diagnostics != "" {
		m["diagnostics"] = i.Diagnostics
	}
	if i.Location != "" {
		m["location"] = i.Location
	}
	return m
}
