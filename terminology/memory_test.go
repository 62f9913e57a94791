package terminology

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gofhir/conformance/assertion"
)

const vsURL = "http://example.org/fhir/ValueSet/observation-status"

func request(system, code string) assertion.ValidateCodeRequest {
	return assertion.ValidateCodeRequest{
		ValueSet: vsURL,
		Concept:  assertion.Concept{Codings: []assertion.Coding{{System: system, Code: code}}},
	}
}

func TestValidateCode(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemory()
	svc.AddCodes(vsURL, "http://hl7.org/fhir/observation-status", "registered", "preliminary", "final")

	tests := []struct {
		name   string
		req    assertion.ValidateCodeRequest
		wantOK bool
	}{
		{name: "member", req: request("http://hl7.org/fhir/observation-status", "final"), wantOK: true},
		{name: "non-member", req: request("http://hl7.org/fhir/observation-status", "bogus")},
		{name: "wrong system", req: request("http://example.org/other", "final")},
		{name: "systemless lookup searches all systems", req: request("", "final"), wantOK: true},
		{name: "empty code", req: request("http://hl7.org/fhir/observation-status", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.ValidateCode(ctx, tt.req)
			if err != nil {
				t.Fatal(err)
			}
			if result.OK != tt.wantOK {
				t.Errorf("OK = %v (%q); want %v", result.OK, result.Message, tt.wantOK)
			}
			if !tt.wantOK && result.Message == "" {
				t.Error("a rejection should carry a message")
			}
		})
	}
}

func TestValidateCode_UnknownValueSetIsMiss(t *testing.T) {
	svc := NewInMemory()
	if _, err := svc.ValidateCode(context.Background(), request("s", "x")); !errors.Is(err, assertion.ErrNotFound) {
		t.Errorf("err = %v; want ErrNotFound", err)
	}
}

func TestValidateCode_VersionedValueSetURL(t *testing.T) {
	svc := NewInMemory()
	svc.AddCodes(vsURL, "s", "final")

	req := request("s", "final")
	req.ValueSet = vsURL + "|4.0.1"
	result, err := svc.ValidateCode(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.OK {
		t.Error("the version designator should be stripped before lookup")
	}
}

func TestValidateCode_CodingOverridesConcept(t *testing.T) {
	svc := NewInMemory()
	svc.AddCodes(vsURL, "s", "final")

	req := assertion.ValidateCodeRequest{
		ValueSet: vsURL,
		Concept:  assertion.Concept{Codings: []assertion.Coding{{System: "s", Code: "final"}}},
		Coding:   &assertion.Coding{System: "s", Code: "bogus"},
	}
	result, err := svc.ValidateCode(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.OK {
		t.Error("an explicit Coding should be validated instead of the concept")
	}
}

func TestValidateCode_Cancelled(t *testing.T) {
	svc := NewInMemory()
	svc.AddCodes(vsURL, "s", "final")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.ValidateCode(ctx, request("s", "final")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v; want context.Canceled", err)
	}
}

func TestLoadJSON_ValueSetExpansion(t *testing.T) {
	svc := NewInMemory()
	stats, err := svc.LoadJSON([]byte(`{
		"resourceType": "ValueSet",
		"url": "http://example.org/vs/colors",
		"expansion": {
			"contains": [
				{"system": "http://example.org/cs", "code": "red", "display": "Red"},
				{"system": "http://example.org/cs", "code": "hue", "abstract": true, "contains": [
					{"system": "http://example.org/cs", "code": "blue"}
				]}
			]
		}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if stats.ValueSetsLoaded != 1 {
		t.Fatalf("stats = %+v; want one value set", stats)
	}

	ctx := context.Background()
	check := func(code string, wantOK bool, abstractAllowed bool) {
		t.Helper()
		req := assertion.ValidateCodeRequest{
			ValueSet:        "http://example.org/vs/colors",
			Coding:          &assertion.Coding{System: "http://example.org/cs", Code: code},
			AbstractAllowed: abstractAllowed,
		}
		result, err := svc.ValidateCode(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		if result.OK != wantOK {
			t.Errorf("code %q OK = %v (%q); want %v", code, result.OK, result.Message, wantOK)
		}
	}

	check("red", true, false)
	check("blue", true, false)
	check("hue", false, false)
	check("hue", true, true)
}

func TestLoadJSON_AbstractRejectionMessage(t *testing.T) {
	svc := NewInMemory()
	if _, err := svc.LoadJSON([]byte(`{
		"resourceType": "ValueSet",
		"url": "http://example.org/vs",
		"expansion": {"contains": [{"system": "cs", "code": "root", "abstract": true}]}
	}`)); err != nil {
		t.Fatal(err)
	}
	result, err := svc.ValidateCode(context.Background(), assertion.ValidateCodeRequest{
		ValueSet: "http://example.org/vs",
		Coding:   &assertion.Coding{System: "cs", Code: "root"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.OK || !strings.Contains(result.Message, "abstract") {
		t.Errorf("result = %+v; want an abstract rejection", result)
	}
}

func TestLoadJSON_ComposeWithFilters(t *testing.T) {
	svc := NewInMemory()

	if _, err := svc.LoadJSON([]byte(`{
		"resourceType": "CodeSystem",
		"url": "http://example.org/cs/animals",
		"concept": [
			{"code": "animal"},
			{"code": "dog", "property": [{"code": "subsumedBy", "valueCode": "animal"}]},
			{"code": "poodle", "property": [{"code": "subsumedBy", "valueCode": "dog"}]},
			{"code": "rock"}
		]
	}`)); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.LoadJSON([]byte(`{
		"resourceType": "ValueSet",
		"url": "http://example.org/vs/dogs",
		"compose": {
			"include": [{
				"system": "http://example.org/cs/animals",
				"filter": [{"property": "concept", "op": "is-a", "value": "dog"}]
			}]
		}
	}`)); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	check := func(code string, wantOK bool) {
		t.Helper()
		result, err := svc.ValidateCode(ctx, assertion.ValidateCodeRequest{
			ValueSet: "http://example.org/vs/dogs",
			Coding:   &assertion.Coding{System: "http://example.org/cs/animals", Code: code},
		})
		if err != nil {
			t.Fatal(err)
		}
		if result.OK != wantOK {
			t.Errorf("code %q OK = %v; want %v", code, result.OK, wantOK)
		}
	}

	check("dog", true) // is-a includes the root
	check("poodle", true)
	check("animal", false)
	check("rock", false)
}

func TestLoadJSON_ComposeBareIncludePullsWholeSystem(t *testing.T) {
	svc := NewInMemory()

	if _, err := svc.LoadJSON([]byte(`{
		"resourceType": "CodeSystem",
		"url": "http://example.org/cs",
		"concept": [{"code": "a"}, {"code": "b"}]
	}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.LoadJSON([]byte(`{
		"resourceType": "ValueSet",
		"url": "http://example.org/vs",
		"compose": {"include": [{"system": "http://example.org/cs"}]}
	}`)); err != nil {
		t.Fatal(err)
	}

	result, err := svc.ValidateCode(context.Background(), assertion.ValidateCodeRequest{
		ValueSet: "http://example.org/vs",
		Coding:   &assertion.Coding{System: "http://example.org/cs", Code: "b"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.OK {
		t.Error("a bare include should admit every code of the system")
	}
}

func TestLoadJSON_Bundle(t *testing.T) {
	svc := NewInMemory()
	stats, err := svc.LoadJSON([]byte(`{
		"resourceType": "Bundle",
		"entry": [
			{"resource": {"resourceType": "CodeSystem", "url": "http://example.org/cs", "concept": [{"code": "a"}]}},
			{"resource": {"resourceType": "ValueSet", "url": "http://example.org/vs", "expansion": {"contains": [{"system": "http://example.org/cs", "code": "a"}]}}},
			{"resource": {"resourceType": "Patient", "id": "ignored"}}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if stats.CodeSystemsLoaded != 1 || stats.ValueSetsLoaded != 1 {
		t.Errorf("stats = %+v; want 1 code system and 1 value set", stats)
	}
	if svc.CountCodeSystems() != 1 || svc.CountValueSets() != 1 {
		t.Errorf("counts = %d, %d; want 1, 1", svc.CountCodeSystems(), svc.CountValueSets())
	}
}

func TestLoadJSON_Rejections(t *testing.T) {
	svc := NewInMemory()
	if _, err := svc.LoadJSON([]byte(`{"resourceType": "Patient"}`)); err == nil {
		t.Error("unsupported resourceType should be rejected")
	}
	if _, err := svc.LoadJSON([]byte(`not json`)); err == nil {
		t.Error("invalid JSON should be rejected")
	}
	if _, err := svc.LoadJSON([]byte(`{"resourceType": "ValueSet"}`)); err == nil {
		t.Error("a ValueSet without a URL should be rejected")
	}
}
