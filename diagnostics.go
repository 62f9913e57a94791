package conformance

import (
	"fmt"
	"strings"
)

// DiagnosticID identifies a specific diagnostic condition. IDs are stable
// across releases so tooling can key on them.
type DiagnosticID string

// Diagnostic IDs for primitive value rules.
const (
	DiagPatternMismatch   DiagnosticID = "PATTERN_MISMATCH"
	DiagFixedMismatch     DiagnosticID = "FIXED_MISMATCH"
	DiagMaxLengthExceeded DiagnosticID = "MAXLENGTH_EXCEEDED"
	DiagMinValueBelow     DiagnosticID = "MINVALUE_BELOW"
	DiagMaxValueAbove     DiagnosticID = "MAXVALUE_ABOVE"
	DiagCardinalityMin    DiagnosticID = "CARDINALITY_MIN"
	DiagCardinalityMax    DiagnosticID = "CARDINALITY_MAX"
	DiagInapplicable      DiagnosticID = "INAPPLICABLE_TRACE"
)

// Diagnostic IDs for composite and slicing rules.
const (
	DiagPathNoResult        DiagnosticID = "PATH_NO_RESULT"
	DiagPathAmbiguous       DiagnosticID = "PATH_AMBIGUOUS"
	DiagPathEvalFailed      DiagnosticID = "PATH_EVAL_FAILED"
	DiagChildrenUnknown     DiagnosticID = "CHILDREN_UNKNOWN"
	DiagSliceClosed         DiagnosticID = "SLICE_CLOSED_UNMATCHED"
	DiagSliceOrder          DiagnosticID = "SLICE_ORDER"
	DiagSchemaUnresolvable  DiagnosticID = "SCHEMA_UNRESOLVABLE"
)

// Diagnostic IDs for reference validation.
const (
	DiagReferenceCycle        DiagnosticID = "REFERENCE_CYCLE"
	DiagReferenceUnresolvable DiagnosticID = "REFERENCE_UNRESOLVABLE"
	DiagReferenceUnavailable  DiagnosticID = "REFERENCE_UNAVAILABLE"
	DiagReferenceAggregation  DiagnosticID = "REFERENCE_AGGREGATION"
	DiagReferenceVersioning   DiagnosticID = "REFERENCE_VERSIONING"
)

// Diagnostic IDs for terminology binding validation.
const (
	DiagBindingNotBindable    DiagnosticID = "BINDING_NOT_BINDABLE"
	DiagBindingNotExtractable DiagnosticID = "BINDING_NOT_EXTRACTABLE"
	DiagBindingNoCode         DiagnosticID = "BINDING_NO_CODE"
	DiagBindingNoCodeOrText   DiagnosticID = "BINDING_NO_CODE_OR_TEXT"
	DiagBindingCodeInvalid    DiagnosticID = "BINDING_CODE_INVALID"
	DiagBindingServiceMessage DiagnosticID = "BINDING_SERVICE_MESSAGE"
	DiagBindingServiceFault   DiagnosticID = "BINDING_SERVICE_FAULT"
)

// DiagnosticTemplate defines the severity, code, and message template for a
// diagnostic. Templates use {placeholder} syntax for variable substitution.
type DiagnosticTemplate struct {
	Severity Severity
	Code     IssueType
	Template string
}

var diagnosticTemplates = map[DiagnosticID]DiagnosticTemplate{
	DiagPatternMismatch: {
		Severity: SeverityError,
		Code:     IssueTypeValue,
		Template: "Value '{value}' does not match pattern '{pattern}'",
	},
	DiagFixedMismatch: {
		Severity: SeverityError,
		Code:     IssueTypeValue,
		Template: "Value '{actual}' is not exactly equal to fixed value '{fixed}'",
	},
	DiagMaxLengthExceeded: {
		Severity: SeverityError,
		Code:     IssueTypeValue,
		Template: "Value '{value}' exceeds maximum length of {limit}",
	},
	DiagMinValueBelow: {
		Severity: SeverityError,
		Code:     IssueTypeValue,
		Template: "Value '{value}' is smaller than minimum value '{limit}'",
	},
	DiagMaxValueAbove: {
		Severity: SeverityError,
		Code:     IssueTypeValue,
		Template: "Value '{value}' is larger than maximum value '{limit}'",
	},
	DiagCardinalityMin: {
		Severity: SeverityError,
		Code:     IssueTypeStructure,
		Template: "Element requires at least {min} occurrence(s), found {count}",
	},
	DiagCardinalityMax: {
		Severity: SeverityError,
		Code:     IssueTypeStructure,
		Template: "Element allows at most {max} occurrence(s), found {count}",
	},
	DiagInapplicable: {
		Severity: SeverityInformation,
		Code:     IssueTypeInformational,
		Template: "{rule} is not applicable to a value of type {type}",
	},
	DiagPathNoResult: {
		Severity: SeverityError,
		Code:     IssueTypeStructure,
		Template: "Expression '{expression}' yielded no results",
	},
	DiagPathAmbiguous: {
		Severity: SeverityError,
		Code:     IssueTypeStructure,
		Template: "Expression '{expression}' is ambiguous: too many results ({count})",
	},
	DiagPathEvalFailed: {
		Severity: SeverityError,
		Code:     IssueTypeProcessing,
		Template: "Expression '{expression}' could not be evaluated: {error}",
	},
	DiagChildrenUnknown: {
		Severity: SeverityError,
		Code:     IssueTypeStructure,
		Template: "Unknown child element '{name}'",
	},
	DiagSliceClosed: {
		Severity: SeverityError,
		Code:     IssueTypeStructure,
		Template: "Element does not match any slice and the slicing is closed",
	},
	DiagSliceOrder: {
		Severity: SeverityError,
		Code:     IssueTypeStructure,
		Template: "Element does not match any slice and appears before the end of the sliced group",
	},
	DiagSchemaUnresolvable: {
		Severity: SeverityError,
		Code:     IssueTypeNotFound,
		Template: "Unable to resolve reference to schema '{uri}'",
	},
	DiagReferenceCycle: {
		Severity: SeverityInformation,
		Code:     IssueTypeInformational,
		Template: "Circular reference detected: '{reference}' was already visited on this path",
	},
	DiagReferenceUnresolvable: {
		Severity: SeverityError,
		Code:     IssueTypeNotFound,
		Template: "Cannot resolve reference '{reference}'",
	},
	DiagReferenceUnavailable: {
		Severity: SeverityWarning,
		Code:     IssueTypeNotFound,
		Template: "Referenced resource '{reference}' is unavailable: {error}",
	},
	DiagReferenceAggregation: {
		Severity: SeverityError,
		Code:     IssueTypeBusinessRule,
		Template: "Reference '{reference}' is {kind}, which is not one of the allowed aggregation kinds ({allowed})",
	},
	DiagReferenceVersioning: {
		Severity: SeverityError,
		Code:     IssueTypeBusinessRule,
		Template: "Reference '{reference}' is version-{kind}, but the element requires version-{required} references",
	},
	DiagBindingNotBindable: {
		Severity: SeverityInformation,
		Code:     IssueTypeInformational,
		Template: "Terminology binding is not applicable to a value of type {type}",
	},
	DiagBindingNotExtractable: {
		Severity: SeverityError,
		Code:     IssueTypeCodeInvalid,
		Template: "A {strength} binding to '{valueSet}' found no extractable coded value",
	},
	DiagBindingNoCode: {
		Severity: SeverityError,
		Code:     IssueTypeCodeInvalid,
		Template: "A required binding demands a non-empty code, but none was found",
	},
	DiagBindingNoCodeOrText: {
		Severity: SeverityError,
		Code:     IssueTypeCodeInvalid,
		Template: "An extensible binding demands a non-empty code or free text, but neither was found",
	},
	DiagBindingCodeInvalid: {
		Severity: SeverityError,
		Code:     IssueTypeCodeInvalid,
		Template: "Code '{code}' is not valid for value set '{valueSet}'",
	},
	DiagBindingServiceMessage: {
		Severity: SeverityWarning,
		Code:     IssueTypeCodeInvalid,
		Template: "{message}",
	},
	DiagBindingServiceFault: {
		Severity: SeverityWarning,
		Code:     IssueTypeNotSupported,
		Template: "Terminology service could not validate '{code}' against '{valueSet}': {error}",
	},
}

// Template returns the registered template for the given ID.
// The second return value is false for unknown IDs.
func Template(id DiagnosticID) (DiagnosticTemplate, bool) {
	t, ok := diagnosticTemplates[id]
	return t, ok
}

// NewIssue renders the diagnostic template for id with the given arguments
// and returns the resulting Issue. Unknown IDs produce a processing-error
// issue so a missing catalog entry is visible instead of silent.
func NewIssue(id DiagnosticID, location string, args map[string]any) Issue {
	tmpl, ok := diagnosticTemplates[id]
	if !ok {
		return Issue{
			Severity:    SeverityError,
			Code:        IssueTypeProcessing,
			ID:          id,
			Diagnostics: fmt.Sprintf("unregistered diagnostic %q", string(id)),
			Location:    location,
		}
	}
	return Issue{
		Severity:    tmpl.Severity,
		Code:        tmpl.Code,
		ID:          id,
		Diagnostics: renderTemplate(tmpl.Template, args),
		Location:    location,
	}
}

// renderTemplate substitutes {placeholder} occurrences with args values.
// Placeholders without a matching argument are left as-is.
func renderTemplate(template string, args map[string]any) string {
	if len(args) == 0 {
		return template
	}
	out := template
	for key, value := range args {
		out = strings.ReplaceAll(out, "{"+key+"}", fmt.Sprintf("%v", value))
	}
	return out
}
