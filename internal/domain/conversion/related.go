package conversion

import (
	"fmt"
	"strings"

	"github.com/ehr/frbridge/internal/domain/frcore"
	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

// mapRelationship reduces NK1-3 to the three relationships the mapping knows.
func mapRelationship(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "MTH":
		return "MTH"
	case "FTH":
		return "FTH"
	default:
		return "O"
	}
}

var relationshipDisplay = map[string]string{
	"MTH": "mother",
	"FTH": "father",
	"O":   "other",
}

// buildRelatedPerson maps one NK1 instance. ok is false when NK1-2 carries no
// usable name.
func buildRelatedPerson(nk1 hl7v2.ParsedSegment, patient *fhir.Reference, cat *frcore.Catalog) (rp *fhir.RelatedPerson, ok bool, err error) {
	name, err := buildName(nk1.Field(2))
	if err != nil {
		return nil, false, fmt.Errorf("NK1-2: %w", err)
	}
	if name == nil {
		return nil, false, nil
	}

	code := mapRelationship(nk1.Component(3, 1))
	rp = &fhir.RelatedPerson{
		Base:    fhir.Base{ResourceType: fhir.TypeRelatedPerson, ID: newID()},
		Patient: patient,
		Relationship: []fhir.CodeableConcept{
			*fhir.Concept(frcore.CodeSystemRoleCode, code, relationshipDisplay[code]),
		},
		Name: []fhir.HumanName{*name},
	}
	rp.AddProfile(cat.Profile(fhir.TypeRelatedPerson))

	if phone := scalarTelecom(nk1.Field(5)); phone != "" {
		rp.Telecom = append(rp.Telecom, fhir.ContactPoint{System: "phone", Value: phone})
	}

	addr, err := buildAddress(nk1.Field(4))
	if err != nil {
		return nil, false, fmt.Errorf("NK1-4: %w", err)
	}
	if addr != nil {
		rp.Address = append(rp.Address, *addr)
	}
	return rp, true, nil
}

// buildCoverage maps IN1 (IN2-2 backs up a missing IN1-36). It always returns
// the Coverage followed by its payor Organization.
func buildCoverage(in1 hl7v2.ParsedSegment, in2 *hl7v2.ParsedSegment, patient *fhir.Reference, cat *frcore.Catalog) []fhir.Resource {
	payer := cat.Payer()

	org := &fhir.Organization{
		Base: fhir.Base{ResourceType: fhir.TypeOrganization, ID: newID()},
		Name: payer.Name,
	}
	org.AddProfile(cat.Profile(fhir.TypeOrganization))

	beneficiary := patient
	if beneficiary == nil {
		beneficiary = &fhir.Reference{Reference: fhir.URN(newID()), Type: fhir.TypePatient}
	}

	coverageType := boundCoding(cat, frcore.ValueSetCoverageType, frcore.CodeSystemCoverageType, payer.CoverageType)
	cov := &fhir.Coverage{
		Base:        fhir.Base{ResourceType: fhir.TypeCoverage, ID: newID()},
		Status:      "active",
		Type:        &fhir.CodeableConcept{Coding: []fhir.Coding{coverageType}},
		Beneficiary: beneficiary,
		Payor:       []fhir.Reference{*fhir.ReferenceTo(org)},
	}
	cov.Payor[0].Display = payer.Name
	cov.AddProfile(cat.Profile(fhir.TypeCoverage))

	insured := strings.TrimSpace(in1.Component(36, 1))
	if insured == "" && in2 != nil {
		insured = strings.TrimSpace(in2.Component(2, 1))
	}
	if insured != "" {
		cov.Extension = append(cov.Extension, fhir.Extension{
			URL:             frcore.ExtInsuredID,
			ValueIdentifier: &fhir.Identifier{System: payer.InsuredIDSystem, Value: insured},
		})
	}

	if plan := strings.TrimSpace(in1.Component(2, 1)); plan != "" {
		cov.Identifier = append(cov.Identifier, fhir.Identifier{Value: plan})
	}

	return []fhir.Resource{cov, org}
}
