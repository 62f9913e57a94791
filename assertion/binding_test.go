package assertion

import (
	"context"
	"errors"
	"strings"
	"testing"

	cf "github.com/gofhir/conformance"
)

func mustBinding(t *testing.T, valueSet string, strength BindingStrength, cfg BindingConfig) *Binding {
	t.Helper()
	b, err := NewBinding(valueSet, strength, cfg)
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	return b
}

func TestNewBinding_Construction(t *testing.T) {
	if _, err := NewBinding("", BindingRequired, BindingConfig{}); err == nil {
		t.Error("empty value set should be rejected")
	}
	if _, err := NewBinding("http://example.org/vs", "mandatory", BindingConfig{}); err == nil {
		t.Error("unknown strength should be rejected")
	}
}

func TestExtractConcept_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		child    string
		ok       bool
		wantCode string
		wantSys  string
		wantText string
	}{
		{
			name: "bare code", data: `{"status": "final"}`, child: "status",
			ok: true, wantCode: "final",
		},
		{
			name: "coding", data: `{"c": {"system": "http://loinc.org", "code": "1234-5"}}`, child: "c",
			ok: true, wantCode: "1234-5", wantSys: "http://loinc.org",
		},
		{
			name: "codeable concept", data: `{"c": {"coding": [{"system": "s", "code": "a"}, {"code": "b"}], "text": "free text"}}`, child: "c",
			ok: true, wantCode: "a", wantSys: "s", wantText: "free text",
		},
		{
			name: "text only concept", data: `{"c": {"text": "just words"}}`, child: "c",
			ok: true, wantText: "just words",
		},
		{
			name: "quantity", data: `{"q": {"value": 5, "system": "http://unitsofmeasure.org", "code": "mg", "unit": "milligram"}}`, child: "q",
			ok: true, wantCode: "mg", wantSys: "http://unitsofmeasure.org",
		},
		{
			name: "not bindable", data: `{"n": {"family": "Chalmers"}}`, child: "n",
		},
		{
			name: "not bindable primitive", data: `{"n": 42}`, child: "n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := leaf(t, mustNode(t, tt.data), tt.child)
			concept, ok := extractConcept(node)
			if ok != tt.ok {
				t.Fatalf("extractConcept ok = %v; want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if concept.primaryCode() != tt.wantCode {
				t.Errorf("primaryCode = %q; want %q", concept.primaryCode(), tt.wantCode)
			}
			if tt.wantSys != "" && concept.Codings[0].System != tt.wantSys {
				t.Errorf("System = %q; want %q", concept.Codings[0].System, tt.wantSys)
			}
			if concept.Text != tt.wantText {
				t.Errorf("Text = %q; want %q", concept.Text, tt.wantText)
			}
		})
	}
}

func TestBinding_Strengths(t *testing.T) {
	vc := NewContext(mapSchemas{})
	vc.Terminology = &stubTerminology{result: ValidateCodeResult{OK: true}}

	tests := []struct {
		name     string
		strength BindingStrength
		data     string
		wantID   cf.DiagnosticID
		wantOK   bool
	}{
		{name: "required with code passes", strength: BindingRequired, data: `{"c": "final"}`, wantOK: true},
		{name: "required without code", strength: BindingRequired, data: `{"c": {"text": "words"}}`, wantID: cf.DiagBindingNoCode},
		{name: "extensible code passes", strength: BindingExtensible, data: `{"c": "anything"}`, wantOK: true},
		{name: "extensible text passes", strength: BindingExtensible, data: `{"c": {"text": "words"}}`, wantOK: true},
		{name: "extensible empty concept", strength: BindingExtensible, data: `{"c": {"coding": [{"display": "only display"}]}}`, wantID: cf.DiagBindingNoCodeOrText},
		{name: "preferred never enforced", strength: BindingPreferred, data: `{"c": {"coding": [{"display": "d"}]}}`, wantOK: true},
		{name: "example never enforced", strength: BindingExample, data: `{"c": {"text": ""}}`, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := leaf(t, mustNode(t, tt.data), "c")
			b := mustBinding(t, "http://example.org/vs", tt.strength, BindingConfig{})
			r, err := b.Validate(context.Background(), node, vc, NewState())
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantOK {
				if len(r.Evidence) != 0 {
					t.Errorf("want clean success, got %v", r.Evidence)
				}
				return
			}
			if got := countID(r, tt.wantID); got != 1 {
				t.Errorf("issues with %s = %d; want 1: %v", tt.wantID, got, r.Evidence)
			}
		})
	}
}

func TestBinding_NotBindable(t *testing.T) {
	vc := NewContext(mapSchemas{})

	t.Run("non-string primitive is advisory", func(t *testing.T) {
		node := leaf(t, mustNode(t, `{"n": 42}`), "n")
		b := mustBinding(t, "http://example.org/vs", BindingRequired, BindingConfig{})
		r, err := b.Validate(context.Background(), node, vc, NewState())
		if err != nil {
			t.Fatal(err)
		}
		if got := countID(r, cf.DiagBindingNotBindable); got != 1 {
			t.Fatalf("not-bindable issues = %d; want 1: %v", got, r.Evidence)
		}
		if !r.IsSuccessful() {
			t.Error("not-bindable is advisory, not a failure")
		}
	})

	t.Run("declared non-codeable type names itself", func(t *testing.T) {
		node := mustNode(t, `{"resourceType": "Patient", "id": "p1"}`)
		b := mustBinding(t, "http://example.org/vs", BindingRequired, BindingConfig{})
		r, err := b.Validate(context.Background(), node, vc, NewState())
		if err != nil {
			t.Fatal(err)
		}
		if got := countID(r, cf.DiagBindingNotBindable); got != 1 {
			t.Fatalf("not-bindable issues = %d; want 1: %v", got, r.Evidence)
		}
		if diag := r.Evidence[0].Diagnostics; !strings.Contains(diag, "Patient") {
			t.Errorf("Diagnostics = %q; want the declared type named", diag)
		}
	})
}

func TestBinding_NotExtractable(t *testing.T) {
	tests := []struct {
		name         string
		strength     BindingStrength
		wantSeverity cf.Severity
		wantFailed   bool
	}{
		{name: "required fails", strength: BindingRequired, wantSeverity: cf.SeverityError, wantFailed: true},
		{name: "extensible warns", strength: BindingExtensible, wantSeverity: cf.SeverityWarning},
		{name: "preferred is advisory", strength: BindingPreferred, wantSeverity: cf.SeverityInformation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// An empty complex value carries no coded content at all.
			node := leaf(t, mustNode(t, `{"cc": {}}`), "cc")
			b := mustBinding(t, "http://example.org/vs", tt.strength, BindingConfig{})
			r, err := b.Validate(context.Background(), node, NewContext(mapSchemas{}), NewState())
			if err != nil {
				t.Fatal(err)
			}
			if got := countID(r, cf.DiagBindingNotExtractable); got != 1 {
				t.Fatalf("not-extractable issues = %d; want 1: %v", got, r.Evidence)
			}
			if r.Evidence[0].Severity != tt.wantSeverity {
				t.Errorf("Severity = %q; want %q", r.Evidence[0].Severity, tt.wantSeverity)
			}
			if r.Failed() != tt.wantFailed {
				t.Errorf("Failed() = %v; want %v", r.Failed(), tt.wantFailed)
			}
		})
	}

	t.Run("non-coded complex shape", func(t *testing.T) {
		node := leaf(t, mustNode(t, `{"n": {"family": "Chalmers"}}`), "n")
		b := mustBinding(t, "http://example.org/vs", BindingRequired, BindingConfig{})
		r, err := b.Validate(context.Background(), node, NewContext(mapSchemas{}), NewState())
		if err != nil {
			t.Fatal(err)
		}
		if got := countID(r, cf.DiagBindingNotExtractable); got != 1 {
			t.Fatalf("not-extractable issues = %d; want 1: %v", got, r.Evidence)
		}
		if !r.Failed() {
			t.Error("a required binding with no coded content should fail")
		}
	})
}

func TestBinding_ServiceVerdicts(t *testing.T) {
	node := leaf(t, mustNode(t, `{"c": {"system": "s", "code": "x"}}`), "c")
	b := mustBinding(t, "http://example.org/vs", BindingRequired, BindingConfig{})

	tests := []struct {
		name         string
		result       ValidateCodeResult
		wantID       cf.DiagnosticID
		wantSeverity cf.Severity
		wantFailed   bool
	}{
		{name: "membership confirmed", result: ValidateCodeResult{OK: true}},
		{
			name: "rejected without message", result: ValidateCodeResult{OK: false},
			wantID: cf.DiagBindingCodeInvalid, wantSeverity: cf.SeverityError, wantFailed: true,
		},
		{
			name: "rejected with message", result: ValidateCodeResult{OK: false, Message: "code retired"},
			wantID: cf.DiagBindingServiceMessage, wantSeverity: cf.SeverityError, wantFailed: true,
		},
		{
			name: "accepted with advisory message", result: ValidateCodeResult{OK: true, Message: "display mismatch"},
			wantID: cf.DiagBindingServiceMessage, wantSeverity: cf.SeverityWarning,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := NewContext(mapSchemas{})
			vc.Terminology = &stubTerminology{result: tt.result}
			r, err := b.Validate(context.Background(), node, vc, NewState())
			if err != nil {
				t.Fatal(err)
			}
			if r.Failed() != tt.wantFailed {
				t.Errorf("Failed() = %v; want %v", r.Failed(), tt.wantFailed)
			}
			if tt.wantID == "" {
				if len(r.Evidence) != 0 {
					t.Errorf("want clean success, got %v", r.Evidence)
				}
				return
			}
			if got := countID(r, tt.wantID); got != 1 {
				t.Fatalf("issues with %s = %d; want 1: %v", tt.wantID, got, r.Evidence)
			}
			if r.Evidence[0].Severity != tt.wantSeverity {
				t.Errorf("Severity = %q; want %q", r.Evidence[0].Severity, tt.wantSeverity)
			}
		})
	}
}

func TestBinding_ServiceFaultPolicy(t *testing.T) {
	node := leaf(t, mustNode(t, `{"c": "x"}`), "c")
	b := mustBinding(t, "http://example.org/vs", BindingRequired, BindingConfig{})

	t.Run("default warning", func(t *testing.T) {
		vc := NewContext(mapSchemas{})
		vc.Terminology = &stubTerminology{err: errors.New("server unreachable")}
		r, err := b.Validate(context.Background(), node, vc, NewState())
		if err != nil {
			t.Fatalf("service fault must not surface as error: %v", err)
		}
		if got := countID(r, cf.DiagBindingServiceFault); got != 1 {
			t.Fatalf("fault issues = %d; want 1: %v", got, r.Evidence)
		}
		if r.Evidence[0].Severity != cf.SeverityWarning {
			t.Errorf("Severity = %q; want warning", r.Evidence[0].Severity)
		}
		if r.Failed() {
			t.Error("default fault policy must not fail the validation")
		}
	})

	t.Run("escalated to error", func(t *testing.T) {
		vc := NewContext(mapSchemas{})
		vc.Terminology = &stubTerminology{err: errors.New("server unreachable")}
		vc.TerminologyFaultSeverity = cf.SeverityError
		r, err := b.Validate(context.Background(), node, vc, NewState())
		if err != nil {
			t.Fatal(err)
		}
		if !r.Failed() {
			t.Error("escalated fault policy should fail the validation")
		}
	})
}

func TestBinding_RequestShape(t *testing.T) {
	b := mustBinding(t, "http://example.org/vs", BindingRequired, BindingConfig{
		AbstractAllowed: true,
		Context:         "Observation.code",
	})

	t.Run("single coding promoted", func(t *testing.T) {
		stub := &stubTerminology{result: ValidateCodeResult{OK: true}}
		vc := NewContext(mapSchemas{})
		vc.Terminology = stub
		node := leaf(t, mustNode(t, `{"c": {"coding": [{"system": "s", "code": "x"}]}}`), "c")
		if _, err := b.Validate(context.Background(), node, vc, NewState()); err != nil {
			t.Fatal(err)
		}
		if stub.last.Coding == nil || stub.last.Coding.Code != "x" {
			t.Errorf("Coding = %v; want the single coding promoted", stub.last.Coding)
		}
		if !stub.last.AbstractAllowed || stub.last.Context != "Observation.code" {
			t.Errorf("request = %+v; abstract and context not carried", stub.last)
		}
	})

	t.Run("multiple codings stay in concept", func(t *testing.T) {
		stub := &stubTerminology{result: ValidateCodeResult{OK: true}}
		vc := NewContext(mapSchemas{})
		vc.Terminology = stub
		node := leaf(t, mustNode(t, `{"c": {"coding": [{"code": "x"}, {"code": "y"}]}}`), "c")
		if _, err := b.Validate(context.Background(), node, vc, NewState()); err != nil {
			t.Fatal(err)
		}
		if stub.last.Coding != nil {
			t.Errorf("Coding = %v; want nil for multi-coding concept", stub.last.Coding)
		}
		if len(stub.last.Concept.Codings) != 2 {
			t.Errorf("Concept.Codings = %v; want both codings", stub.last.Concept.Codings)
		}
	})
}

func TestBinding_MissingServiceIsContractError(t *testing.T) {
	node := leaf(t, mustNode(t, `{"c": "x"}`), "c")
	b := mustBinding(t, "http://example.org/vs", BindingRequired, BindingConfig{})
	if _, err := b.Validate(context.Background(), node, NewContext(mapSchemas{}), NewState()); err == nil {
		t.Error("required binding without a terminology service should fault")
	}
}
