package engine

import (
	"context"
	"testing"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/assertion"
	"github.com/gofhir/conformance/element"
	"github.com/gofhir/conformance/registry"
	"github.com/gofhir/conformance/terminology"
)

const patientURL = "http://example.org/schemas/Patient"

// patientRegistry builds a registry with a small Patient schema: id is
// mandatory, gender is pattern-constrained, maritalStatus carries a required
// binding.
func patientRegistry(t *testing.T) *registry.InMemory {
	t.Helper()

	must := func(a assertion.Assertion, err error) assertion.Assertion {
		if err != nil {
			t.Fatal(err)
		}
		return a
	}

	schema := must(assertion.NewSchema(patientURL,
		assertion.NewChildren([]assertion.ChildRule{
			{Name: "id", Assertion: must(assertion.NewCardinality(1, 1))},
			{Name: "gender", Assertion: must(assertion.NewPattern("male|female|other|unknown"))},
			{Name: "maritalStatus", Assertion: must(assertion.NewBinding(
				"http://example.org/vs/marital-status", assertion.BindingRequired, assertion.BindingConfig{},
			))},
		}, true),
	))

	r := registry.NewInMemory()
	r.MustRegister(schema.(*assertion.Schema))
	return r
}

func newValidator(t *testing.T, opts ...cf.Option) *Validator {
	t.Helper()
	v, err := New(patientRegistry(t), opts...)
	if err != nil {
		t.Fatal(err)
	}
	svc := terminology.NewInMemory()
	svc.AddCodes("http://example.org/vs/marital-status", "http://example.org/cs", "M", "S", "D")
	v.SetTerminologyService(svc)
	return v
}

func TestNew_RequiresSchemas(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("nil schema resolver should be rejected")
	}
}

func TestValidateJSON(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		instance string
		wantOK   bool
		wantID   cf.DiagnosticID
	}{
		{
			name:     "conformant",
			instance: `{"resourceType": "Patient", "id": "p1", "gender": "female", "maritalStatus": {"coding": [{"system": "http://example.org/cs", "code": "M"}]}}`,
			wantOK:   true,
		},
		{
			name:     "missing mandatory id",
			instance: `{"resourceType": "Patient", "gender": "male"}`,
			wantID:   cf.DiagCardinalityMin,
		},
		{
			name:     "pattern violation",
			instance: `{"resourceType": "Patient", "id": "p1", "gender": "YES"}`,
			wantID:   cf.DiagPatternMismatch,
		},
		{
			name:     "code outside value set",
			instance: `{"resourceType": "Patient", "id": "p1", "maritalStatus": {"coding": [{"system": "http://example.org/cs", "code": "X"}]}}`,
			wantID:   cf.DiagBindingServiceMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newValidator(t)
			report, err := v.ValidateJSON(ctx, patientURL, []byte(tt.instance))
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantOK {
				if report.Failed() {
					t.Errorf("want success, got %v", report.Evidence)
				}
				return
			}
			if !report.Failed() {
				t.Fatalf("want failure, got %v", report.Evidence)
			}
			found := false
			for _, issue := range report.Evidence {
				if issue.ID == tt.wantID {
					found = true
				}
			}
			if !found {
				t.Errorf("evidence %v lacks %s", report.Evidence, tt.wantID)
			}
		})
	}
}

func TestValidate_ContractErrors(t *testing.T) {
	ctx := context.Background()
	v := newValidator(t)

	if _, err := v.Validate(ctx, patientURL, nil); err == nil {
		t.Error("nil instance should be a contract error")
	}
	if _, err := v.ValidateJSON(ctx, "", []byte(`{}`)); err == nil {
		t.Error("empty schema URI should be a contract error")
	}
	if _, err := v.ValidateJSON(ctx, patientURL, []byte(`{"truncated": `)); err == nil {
		t.Error("malformed JSON should be a contract error")
	}
}

func TestValidate_UnknownSchemaIsEvidence(t *testing.T) {
	v := newValidator(t)
	report, err := v.ValidateJSON(context.Background(), "http://example.org/schemas/absent", []byte(`{"id": "x"}`))
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, issue := range report.Evidence {
		if issue.ID == cf.DiagSchemaUnresolvable {
			found = true
		}
	}
	if !found {
		t.Errorf("evidence %v lacks an unresolvable-schema issue", report.Evidence)
	}
}

func TestValidate_TraceFiltering(t *testing.T) {
	ctx := context.Background()
	// A numeric gender makes the pattern inapplicable, which is trace-level
	// evidence.
	instance := []byte(`{"resourceType": "Patient", "id": "p1", "gender": 5}`)

	withTrace := newValidator(t)
	report, err := withTrace.ValidateJSON(ctx, patientURL, instance)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Evidence) == 0 {
		t.Fatal("expected trace evidence with the default options")
	}

	noTrace := newValidator(t, cf.WithTrace(false))
	report, err = noTrace.ValidateJSON(ctx, patientURL, instance)
	if err != nil {
		t.Fatal(err)
	}
	for _, issue := range report.Evidence {
		if issue.IsTrace() {
			t.Errorf("trace issue survived filtering: %v", issue)
		}
	}
}

func TestValidate_MaxIssues(t *testing.T) {
	v := newValidator(t, cf.WithMaxIssues(1))
	// Two findings: missing id and a pattern violation.
	report, err := v.ValidateJSON(context.Background(), patientURL, []byte(`{"resourceType": "Patient", "gender": "YES"}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Evidence) != 1 {
		t.Errorf("evidence count = %d; want the configured cap", len(report.Evidence))
	}
}

func TestValidate_Metrics(t *testing.T) {
	ctx := context.Background()
	v := newValidator(t)

	if _, err := v.ValidateJSON(ctx, patientURL, []byte(`{"resourceType": "Patient", "id": "p1"}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := v.ValidateJSON(ctx, patientURL, []byte(`{"resourceType": "Patient"}`)); err != nil {
		t.Fatal(err)
	}

	snap := v.Metrics().Snapshot()
	if snap.ValidationsTotal != 2 {
		t.Errorf("ValidationsTotal = %d; want 2", snap.ValidationsTotal)
	}
	if snap.ValidationsFailed != 1 {
		t.Errorf("ValidationsFailed = %d; want 1", snap.ValidationsFailed)
	}
}

func TestValidateSchema(t *testing.T) {
	ctx := context.Background()
	v := newValidator(t)

	// An unregistered ad-hoc schema that demands a "status" child.
	must := func(a assertion.Assertion, err error) assertion.Assertion {
		if err != nil {
			t.Fatal(err)
		}
		return a
	}
	schema := must(assertion.NewSchema("http://example.org/schemas/adhoc",
		assertion.NewChildren([]assertion.ChildRule{
			{Name: "status", Assertion: must(assertion.NewCardinality(1, 1))},
		}, true),
	)).(*assertion.Schema)

	node, err := element.FromJSON([]byte(`{"status": "active"}`))
	if err != nil {
		t.Fatal(err)
	}
	report, err := v.ValidateSchema(ctx, schema, node)
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed() {
		t.Errorf("want success, got %v", report.Evidence)
	}

	node, err = element.FromJSON([]byte(`{"id": "x"}`))
	if err != nil {
		t.Fatal(err)
	}
	report, err = v.ValidateSchema(ctx, schema, node)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Failed() {
		t.Fatal("missing status should fail")
	}
	if got := report.Evidence[0].ID; got != cf.DiagCardinalityMin {
		t.Errorf("issue ID = %s; want %s", got, cf.DiagCardinalityMin)
	}

	if _, err := v.ValidateSchema(ctx, nil, node); err == nil {
		t.Error("nil schema should be a contract error")
	}
	if _, err := v.ValidateSchema(ctx, schema, nil); err == nil {
		t.Error("nil instance should be a contract error")
	}
}
