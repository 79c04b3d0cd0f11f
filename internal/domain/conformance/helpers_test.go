package conformance

import (
	"testing"

	"github.com/ehr/frbridge/internal/domain/frcore"
	"github.com/ehr/frbridge/internal/platform/fhir"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	cat, err := frcore.Load()
	if err != nil {
		t.Fatalf("frcore.Load: %v", err)
	}
	v, err := New(cat)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func profiled(rt, id string, profiles ...string) fhir.Base {
	return fhir.Base{ResourceType: rt, ID: id, Meta: &fhir.Meta{Profile: profiles}}
}

func withType(system, code string) *fhir.CodeableConcept {
	return &fhir.CodeableConcept{Coding: []fhir.Coding{{System: system, Code: code}}}
}

// fixture is a conformant ADT-like message Bundle. Tests mutate the typed
// resources before validating.
type fixture struct {
	header       *fhir.MessageHeader
	patient      *fhir.Patient
	practitioner *fhir.Practitioner
	encounter    *fhir.Encounter
	coverage     *fhir.Coverage
	payer        *fhir.Organization
}

func newFixture() *fixture {
	f := &fixture{}
	f.header = &fhir.MessageHeader{
		Base:        profiled(fhir.TypeMessageHeader, "mh-1", frcore.ProfileMessageHeader),
		EventURI:    "http://hl7.org/fhir/message/event/A01",
		Destination: []fhir.MessageDestination{{Name: "DPI", Endpoint: "urn:oid:1.2.250.1.71.4.2.3"}},
		Source:      &fhir.MessageSource{Name: "SIH", Software: "frbridge", Endpoint: "urn:oid:1.2.250.1.71.4.2.2"},
	}
	f.patient = &fhir.Patient{
		Base: profiled(fhir.TypePatient, "pat-1", frcore.ProfilePatient, frcore.ProfilePatientINS),
		Extension: []fhir.Extension{
			{URL: frcore.ExtIdentityReliability, ValueCoding: &fhir.Coding{System: frcore.CodeSystemIdentityReliability, Code: "VALI"}},
			{URL: frcore.ExtBirthPlace, ValueAddress: &fhir.Address{City: "NANTES"}},
		},
		Identifier: []fhir.Identifier{
			{Use: "usual", Type: withType(frcore.CodeSystemV2IdentifierType, "PI"), System: "urn:oid:1.2.250.1.71.4.2.7", Value: "123456"},
			{Use: "official", Type: withType(frcore.CodeSystemFRIdentifierType, "INS-NIR"), System: "urn:oid:1.2.250.1.213.1.4.8", Value: "123456789012345"},
		},
		Name:   []fhir.HumanName{{Use: "official", Family: "DUPONT", Given: []string{"JEAN"}}},
		Gender: "male",
	}
	f.practitioner = &fhir.Practitioner{
		Base: profiled(fhir.TypePractitioner, "practitioner-10001", frcore.ProfilePractitioner),
		Identifier: []fhir.Identifier{
			{Use: "official", Type: withType(frcore.CodeSystemFRIdentifierType, "IDNPS"), System: "urn:oid:1.2.250.1.71.4.2.1", Value: "10001"},
		},
	}
	f.encounter = &fhir.Encounter{
		Base:    profiled(fhir.TypeEncounter, "enc-1", frcore.ProfileEncounter),
		Status:  "finished",
		Class:   &fhir.Coding{System: frcore.CodeSystemActCode, Code: "IMP"},
		Subject: &fhir.Reference{Reference: fhir.URN("pat-1")},
		Identifier: []fhir.Identifier{
			{Use: "official", Type: withType(frcore.CodeSystemV2IdentifierType, "VN"), System: "urn:oid:1.2.250.1.71.4.2.7", Value: "VN1"},
		},
		Hospitalization: &fhir.EncounterHospitalization{
			PreAdmissionIdentifier: &fhir.Identifier{System: "urn:oid:1.2.250.1.71.4.2.7", Value: "PRE1"},
			AdmitSource:            withType(frcore.CodeSystemModeEntree, "8"),
			DischargeDisposition:   withType(frcore.CodeSystemModeSortie, "8"),
		},
		Extension: []fhir.Extension{
			{URL: frcore.ExtEstimatedDischargeDate, ValueDateTime: "2025-06-19T10:00:00+02:00"},
		},
	}
	f.payer = &fhir.Organization{
		Base: profiled(fhir.TypeOrganization, "org-1", frcore.ProfileOrganization),
		Name: "Assurance Maladie Obligatoire",
	}
	f.coverage = &fhir.Coverage{
		Base:        profiled(fhir.TypeCoverage, "cov-1", frcore.ProfileCoverage),
		Status:      "active",
		Type:        withType(frcore.CodeSystemCoverageType, "AMO"),
		Beneficiary: &fhir.Reference{Reference: fhir.URN("pat-1")},
		Payor:       []fhir.Reference{{Reference: fhir.URN("org-1")}},
		Extension: []fhir.Extension{
			{URL: frcore.ExtInsuredID, ValueIdentifier: &fhir.Identifier{Value: "180054400012345"}},
		},
	}
	return f
}

func (f *fixture) bundle(extra ...fhir.Resource) *fhir.Bundle {
	b := &fhir.Bundle{ResourceType: "Bundle", ID: "bundle-1", Type: fhir.BundleTypeMessage}
	for _, r := range []fhir.Resource{f.header, f.patient, f.practitioner, f.encounter, f.coverage, f.payer} {
		b.Entry = append(b.Entry, fhir.NewEntry(r))
	}
	for _, r := range extra {
		b.Entry = append(b.Entry, fhir.NewEntry(r))
	}
	return b
}
