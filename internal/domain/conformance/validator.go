// Package conformance checks FHIR message Bundles against the FR-Core
// profile rules held by the frcore catalog.
package conformance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/types"

	"github.com/ehr/frbridge/internal/domain/frcore"
	"github.com/ehr/frbridge/internal/platform/fhir"
)

// Validator checks Bundles against a catalog. All FHIRPath requirements are
// compiled once in New; a Validator is safe for concurrent use.
type Validator struct {
	catalog *frcore.Catalog
	checks  map[string]*typeCheck
}

type typeCheck struct {
	rule         frcore.ProfileRule
	requirements []compiledRequirement
}

type compiledRequirement struct {
	frcore.Requirement
	expr *fhirpath.Expression
}

// New compiles the catalog's requirement expressions.
func New(catalog *frcore.Catalog) (*Validator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("conformance: nil catalog")
	}
	v := &Validator{catalog: catalog, checks: make(map[string]*typeCheck)}
	for _, rt := range catalog.ResourceTypes() {
		rule, _ := catalog.Rule(rt)
		tc := &typeCheck{rule: rule}
		for _, req := range rule.Requirements {
			expr, err := fhirpath.Compile(req.Expression)
			if err != nil {
				return nil, fmt.Errorf("conformance: compiling %s requirement %q: %w", rt, req.Expression, err)
			}
			tc.requirements = append(tc.requirements, compiledRequirement{Requirement: req, expr: expr})
		}
		v.checks[rt] = tc
	}
	return v, nil
}

type rawBundle struct {
	ResourceType string     `json:"resourceType"`
	Type         string     `json:"type"`
	Entry        []rawEntry `json:"entry"`
}

type rawEntry struct {
	FullURL  string          `json:"fullUrl"`
	Resource json.RawMessage `json:"resource"`
}

// ValidateBundle serializes b and validates it.
func (v *Validator) ValidateBundle(b *fhir.Bundle) *ValidationResult {
	if b == nil {
		r := newResult()
		r.errorf("no Bundle to validate")
		return r.finish()
	}
	data, err := json.Marshal(b)
	if err != nil {
		r := newResult()
		r.errorf("cannot serialize Bundle: %v", err)
		return r.finish()
	}
	return v.Validate(data)
}

// Validate checks a serialized Bundle. Input that is not a non-empty JSON
// Bundle yields an invalid result explaining why.
func (v *Validator) Validate(data []byte) *ValidationResult {
	r := newResult()

	if len(strings.TrimSpace(string(data))) == 0 {
		r.errorf("empty input")
		return r.finish()
	}
	var bundle rawBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		r.errorf("input is not valid JSON: %v", err)
		return r.finish()
	}
	if bundle.ResourceType != "Bundle" {
		r.errorf("resourceType is %q, expected Bundle", bundle.ResourceType)
		return r.finish()
	}
	if len(bundle.Entry) == 0 {
		r.errorf("Bundle has no entries")
		return r.finish()
	}
	if bundle.Type != fhir.BundleTypeMessage {
		r.warnf("Bundle.type is %q, expected message", bundle.Type)
	}

	for i, entry := range bundle.Entry {
		v.validateEntry(r, i, entry)
	}
	return r.finish()
}

func (v *Validator) validateEntry(r *ValidationResult, i int, entry rawEntry) {
	if len(entry.Resource) == 0 {
		r.errorf("entry[%d]: no resource", i)
		return
	}
	var res map[string]interface{}
	if err := json.Unmarshal(entry.Resource, &res); err != nil {
		r.errorf("entry[%d]: resource is not a JSON object", i)
		return
	}
	r.ResourcesSeen++

	rt, _ := res["resourceType"].(string)
	where := fmt.Sprintf("%s entry[%d]", rt, i)

	if i == 0 && rt != fhir.TypeMessageHeader {
		r.errorf("entry[0]: first entry must be a MessageHeader, got %q", rt)
	}
	if i > 0 && rt == fhir.TypeMessageHeader {
		r.errorf("%s: MessageHeader must be the first entry", where)
	}
	if id, _ := res["id"].(string); id != "" && strings.HasPrefix(entry.FullURL, fhir.URNPrefix) && entry.FullURL != fhir.URN(id) {
		r.warnf("%s: fullUrl %s does not match id %s", where, entry.FullURL, id)
	}

	tc, ok := v.checks[rt]
	if !ok {
		return
	}
	r.ResourcesValidated++

	v.checkProfile(r, where, rt, tc.rule, res)
	v.checkSlices(r, where, tc.rule, res)
	v.checkExtensions(r, where, tc.rule, res)
	v.checkBindings(r, where, tc.rule, res)
	checkRequirements(r, where, tc.requirements, entry.Resource)
}

func (v *Validator) checkProfile(r *ValidationResult, where, rt string, rule frcore.ProfileRule, res map[string]interface{}) {
	profiles := stringsAt(res, "meta.profile")
	if rule.Profile != "" && !contains(profiles, rule.Profile) {
		if rt == fhir.TypeMessageHeader {
			r.warnf("%s: meta.profile does not declare %s", where, rule.Profile)
		} else {
			r.errorf("%s: meta.profile does not declare %s", where, rule.Profile)
		}
	}

	if rt == fhir.TypePatient && !contains(profiles, frcore.ProfilePatientINS) {
		if slice, ok := rule.Slices[frcore.SliceINSNIR]; ok && hasIdentifierType(res, slice.TypeCode) {
			r.warnf("%s: carries an INS-NIR identifier but does not declare %s", where, frcore.ProfilePatientINS)
		}
	}
}

func hasIdentifierType(res map[string]interface{}, code string) bool {
	for _, id := range valuesAt(res, "identifier") {
		if contains(stringsAt(id, "type.coding.code"), code) {
			return true
		}
	}
	return false
}

func (v *Validator) checkSlices(r *ValidationResult, where string, rule frcore.ProfileRule, res map[string]interface{}) {
	if len(rule.Slices) == 0 {
		return
	}

	for n, id := range valuesAt(res, "identifier") {
		codings := valuesAt(id, "type.coding")
		if len(codings) == 0 {
			continue
		}
		code, typeSystem := stringAt(codings[0], "code"), stringAt(codings[0], "system")
		slice, ok := rule.SliceByTypeCode(code)
		if !ok {
			r.warnf("%s: identifier[%d] type %q matches no slice", where, n, code)
			continue
		}
		if slice.TypeSystem != "" && typeSystem != slice.TypeSystem {
			r.errorf("%s: identifier[%d] slice %s type system is %q, expected %s", where, n, slice.Name, typeSystem, slice.TypeSystem)
		}
		if system := stringAt(id, "system"); system != slice.System {
			r.errorf("%s: identifier[%d] slice %s system is %q, expected %s", where, n, slice.Name, system, slice.System)
		}
		if use := stringAt(id, "use"); slice.Use != "" && use != "" && use != slice.Use {
			r.warnf("%s: identifier[%d] slice %s use is %q, expected %s", where, n, slice.Name, use, slice.Use)
		}
	}

	for _, slice := range rule.Slices {
		if slice.Element == "" {
			continue
		}
		for _, id := range valuesAt(res, slice.Element) {
			if system := stringAt(id, "system"); system != slice.System {
				r.errorf("%s: %s slice %s system is %q, expected %s", where, slice.Element, slice.Name, system, slice.System)
			}
		}
	}
}

func (v *Validator) checkExtensions(r *ValidationResult, where string, rule frcore.ProfileRule, res map[string]interface{}) {
	exts := valuesAt(res, "extension")
	for _, er := range rule.Extensions {
		for _, ext := range exts {
			m, ok := ext.(map[string]interface{})
			if !ok || m["url"] != er.URL {
				continue
			}
			value, ok := m[er.ValueType]
			if !ok {
				r.errorf("%s: extension %s must carry %s", where, er.URL, er.ValueType)
				continue
			}
			if er.ValueSet == "" {
				continue
			}
			if code := stringAt(value, "code"); !v.catalog.Contains(er.ValueSet, stringAt(value, "system"), code) {
				r.warnf("%s: extension %s code %q is not in %s", where, er.URL, code, er.ValueSet)
			}
		}
	}
}

func (v *Validator) checkBindings(r *ValidationResult, where string, rule frcore.ProfileRule, res map[string]interface{}) {
	for _, b := range rule.Bindings {
		for _, value := range valuesAt(res, b.Element) {
			switch b.Kind {
			case frcore.BindCode:
				code, _ := value.(string)
				if !v.catalog.Contains(b.ValueSet, "", code) {
					r.warnf("%s: %s code %q is not in %s", where, b.Element, code, b.ValueSet)
				}
			case frcore.BindCoding:
				v.checkCoding(r, where, b, value)
			case frcore.BindConcept:
				for _, coding := range valuesAt(value, "coding") {
					v.checkCoding(r, where, b, coding)
				}
			}
		}
	}
}

func (v *Validator) checkCoding(r *ValidationResult, where string, b frcore.Binding, coding interface{}) {
	system, code := stringAt(coding, "system"), stringAt(coding, "code")
	if !v.catalog.Contains(b.ValueSet, system, code) {
		r.warnf("%s: %s code %s|%s is not in %s", where, b.Element, system, code, b.ValueSet)
	}
}

func checkRequirements(r *ValidationResult, where string, reqs []compiledRequirement, raw json.RawMessage) {
	for _, req := range reqs {
		result, err := req.expr.Evaluate(raw)
		if err != nil {
			r.errorf("%s: evaluating %s: %v", where, req.Expression, err)
			continue
		}
		if !truthy(result) {
			r.errorf("%s: missing required element %s", where, req.Element)
		}
	}
}

// truthy applies FHIRPath boolean conversion: empty is false, a single
// Boolean is its value, anything else is true.
func truthy(c types.Collection) bool {
	if len(c) == 0 {
		return false
	}
	if len(c) == 1 {
		if b, ok := c[0].(types.Boolean); ok {
			return b.Bool()
		}
	}
	return true
}

// Conforms reports whether b passes validation without errors.
func (v *Validator) Conforms(b *fhir.Bundle) bool {
	return v.ValidateBundle(b).Valid
}
