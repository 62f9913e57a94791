package assertion

import (
	"context"
	"fmt"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
)

// BindingStrength is the conformance weight of a terminology binding.
type BindingStrength string

const (
	// BindingRequired means the code must come from the bound value set.
	BindingRequired BindingStrength = "required"
	// BindingExtensible means a code or free text must be present; codes
	// outside the value set are tolerated.
	BindingExtensible BindingStrength = "extensible"
	// BindingPreferred and BindingExample carry no enforceable minimum.
	BindingPreferred BindingStrength = "preferred"
	BindingExample   BindingStrength = "example"
)

// Binding validates a coded element against a value set through the
// terminology service collaborator. Only required bindings consult the
// service; weaker strengths enforce at most minimum-content rules locally.
type Binding struct {
	valueSet        string
	strength        BindingStrength
	abstractAllowed bool
	context         string
}

// BindingConfig holds the optional knobs of a Binding.
type BindingConfig struct {
	// AbstractAllowed permits abstract codes in the membership check.
	AbstractAllowed bool

	// Context is a free-form hint passed to the terminology service,
	// typically the path of the bound element.
	Context string
}

// NewBinding creates a terminology binding assertion. An empty value set URI
// or an unknown strength is a construction-time error.
func NewBinding(valueSet string, strength BindingStrength, cfg BindingConfig) (*Binding, error) {
	if valueSet == "" {
		return nil, fmt.Errorf("assertion: binding requires a value set URI")
	}
	switch strength {
	case BindingRequired, BindingExtensible, BindingPreferred, BindingExample:
	default:
		return nil, fmt.Errorf("assertion: unknown binding strength %q", strength)
	}
	return &Binding{
		valueSet:        valueSet,
		strength:        strength,
		abstractAllowed: cfg.AbstractAllowed,
		context:         cfg.Context,
	}, nil
}

// Validate implements Validator.
func (b *Binding) Validate(ctx context.Context, node element.Node, vc *Context, st State) (cf.Report, error) {
	concept, ok := extractConcept(node)
	if !ok {
		return b.reportUnbindable(node), nil
	}

	switch b.strength {
	case BindingRequired:
		if !concept.HasCode() {
			return cf.ReportOf(cf.NewIssue(cf.DiagBindingNoCode, node.Location(), nil)), nil
		}
		return b.validateCode(ctx, node, concept, vc)
	case BindingExtensible:
		if !concept.HasCode() && concept.Text == "" {
			return cf.ReportOf(cf.NewIssue(cf.DiagBindingNoCodeOrText, node.Location(), nil)), nil
		}
		return cf.Success, nil
	default:
		// Preferred and example bindings are advisory only.
		return cf.Success, nil
	}
}

// validateCode asks the terminology service for a membership verdict and
// maps the answer onto evidence. A transport or service fault is downgraded
// to an issue at the configured fault severity; a missing service under a
// required binding is a wiring mistake, not a data finding.
func (b *Binding) validateCode(ctx context.Context, node element.Node, concept Concept, vc *Context) (cf.Report, error) {
	if vc.Terminology == nil {
		return cf.Success, fmt.Errorf("assertion: required binding to %q needs a terminology service", b.valueSet)
	}

	req := ValidateCodeRequest{
		ValueSet:        b.valueSet,
		Concept:         concept,
		AbstractAllowed: b.abstractAllowed,
		Context:         b.context,
	}
	if len(concept.Codings) == 1 && concept.Text == "" {
		req.Coding = &concept.Codings[0]
	}

	result, err := vc.Terminology.ValidateCode(ctx, req)
	if err != nil {
		issue := cf.NewIssue(cf.DiagBindingServiceFault, node.Location(), map[string]any{
			"code":     concept.primaryCode(),
			"valueSet": b.valueSet,
			"error":    err.Error(),
		})
		issue.Severity = vc.faultSeverity()
		return cf.ReportOf(issue), nil
	}

	switch {
	case result.OK && result.Message == "":
		return cf.Success, nil
	case result.Message != "":
		issue := cf.NewIssue(cf.DiagBindingServiceMessage, node.Location(), map[string]any{
			"message": result.Message,
		})
		if !result.OK {
			issue.Severity = cf.SeverityError
		}
		return cf.ReportOf(issue), nil
	default:
		return cf.ReportOf(cf.NewIssue(cf.DiagBindingCodeInvalid, node.Location(), map[string]any{
			"code":     concept.primaryCode(),
			"valueSet": b.valueSet,
		})), nil
	}
}

// reportUnbindable distinguishes values a binding cannot apply to from
// bindable shapes whose coded content is missing. A value whose declared
// type is not codeable, or a primitive with no string form, gets an
// inapplicability trace; a declared codeable type or an anonymous complex
// node is an extraction failure whose severity follows the strength.
func (b *Binding) reportUnbindable(node element.Node) cf.Report {
	typ := node.Type()
	switch {
	case typ != "" && !codeableTypeName(typ):
		return cf.ReportOf(cf.NewIssue(cf.DiagBindingNotBindable, node.Location(), map[string]any{
			"type": typ,
		}))
	case node.Value() != nil:
		return cf.ReportOf(cf.NewIssue(cf.DiagBindingNotBindable, node.Location(), map[string]any{
			"type": fmt.Sprintf("%T", node.Value()),
		}))
	}

	issue := cf.NewIssue(cf.DiagBindingNotExtractable, node.Location(), map[string]any{
		"strength": string(b.strength),
		"valueSet": b.valueSet,
	})
	switch b.strength {
	case BindingRequired:
		issue.Severity = cf.SeverityError
	case BindingExtensible:
		issue.Severity = cf.SeverityWarning
	default:
		issue.Severity = cf.SeverityInformation
	}
	return cf.ReportOf(issue)
}

// codeableTypeName reports whether a declared type name is one of the
// shapes a binding can read a code from.
func codeableTypeName(typ string) bool {
	switch typ {
	case "code", "Coding", "CodeableConcept", "Quantity", "string", "uri":
		return true
	default:
		return false
	}
}

// extractConcept recognizes the bindable shapes and normalizes them to a
// Concept. The second return is false when the value has no coded form.
func extractConcept(node element.Node) (Concept, bool) {
	// A bare primitive string is a code.
	if s, ok := node.Value().(string); ok {
		return Concept{Codings: []Coding{{Code: s}}}, true
	}

	children := node.ChildNames()
	has := func(name string) bool {
		for _, c := range children {
			if c == name {
				return true
			}
		}
		return false
	}

	switch {
	case has("coding") || (has("text") && !has("value")):
		// CodeableConcept shape.
		concept := Concept{Text: childString(node, "text")}
		for _, coding := range node.Children("coding") {
			concept.Codings = append(concept.Codings, codingFrom(coding))
		}
		return concept, true
	case has("code") && has("value"):
		// Quantity shape: the unit code against its system.
		return Concept{Codings: []Coding{{
			System:  childString(node, "system"),
			Code:    childString(node, "code"),
			Display: childString(node, "unit"),
		}}}, true
	case has("code") || has("system"):
		// Coding shape.
		return Concept{Codings: []Coding{codingFrom(node)}}, true
	}
	return Concept{}, false
}

func codingFrom(node element.Node) Coding {
	return Coding{
		System:  childString(node, "system"),
		Version: childString(node, "version"),
		Code:    childString(node, "code"),
		Display: childString(node, "display"),
	}
}

func childString(node element.Node, name string) string {
	for _, child := range node.Children(name) {
		if s, ok := child.Value().(string); ok {
			return s
		}
	}
	return ""
}

// ToMap implements Assertion.
func (b *Binding) ToMap() map[string]any {
	m := map[string]any{
		"binding":  b.valueSet,
		"strength": string(b.strength),
	}
	if b.abstractAllowed {
		m["abstractAllowed"] = true
	}
	if b.context != "" {
		m["context"] = b.context
	}
	return m
}

var _ Validator = (*Binding)(nil)
