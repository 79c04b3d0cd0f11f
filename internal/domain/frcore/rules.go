package frcore

import "fmt"

// OIDs used by identifier slices. The internal patient identifier (PI), the
// visit number (VN) and the pre-admission number all share oidEstablishment
// in the mapping this catalog was built from; SharedSlices reports it so the
// systems can be corrected per slice through WithSliceSystem.
const (
	oidEstablishment = "urn:oid:1.2.250.1.71.4.2.7"
	oidINS           = "urn:oid:1.2.250.1.213.1.4.8"
	oidRPPS          = "urn:oid:1.2.250.1.71.4.2.1"
)

func exists(element string) Requirement {
	return Requirement{Element: element, Expression: element + ".exists()"}
}

func extensionExists(url string) Requirement {
	return Requirement{
		Element:    "extension(" + url + ")",
		Expression: fmt.Sprintf("extension.where(url = '%s').exists()", url),
	}
}

func defaultRules() map[string]ProfileRule {
	return map[string]ProfileRule{
		"MessageHeader": {
			ResourceType: "MessageHeader",
			Profile:      ProfileMessageHeader,
			Requirements: []Requirement{
				{Element: "event[x]", Expression: "eventCoding.exists() or eventUri.exists()"},
				exists("destination"),
				exists("source"),
			},
		},
		"Patient": {
			ResourceType: "Patient",
			Profile:      ProfilePatient,
			Slices: map[string]Slice{
				SlicePI: {
					Name:       SlicePI,
					System:     oidEstablishment,
					TypeSystem: CodeSystemV2IdentifierType,
					TypeCode:   "PI",
					Use:        "usual",
				},
				SliceINSNIR: {
					Name:       SliceINSNIR,
					System:     oidINS,
					TypeSystem: CodeSystemFRIdentifierType,
					TypeCode:   "INS-NIR",
					Use:        "official",
				},
			},
			Extensions: []ExtensionRule{
				{URL: ExtIdentityReliability, ValueType: "valueCoding", Required: true, ValueSet: ValueSetIdentityReliability},
				{URL: ExtBirthPlace, ValueType: "valueAddress"},
			},
			Bindings: []Binding{
				{Element: "gender", Kind: BindCode, ValueSet: ValueSetGender},
			},
			Requirements: []Requirement{
				extensionExists(ExtIdentityReliability),
			},
		},
		"Encounter": {
			ResourceType: "Encounter",
			Profile:      ProfileEncounter,
			Slices: map[string]Slice{
				SliceVN: {
					Name:       SliceVN,
					System:     oidEstablishment,
					TypeSystem: CodeSystemV2IdentifierType,
					TypeCode:   "VN",
					Use:        "official",
				},
				SlicePreAdmission: {
					Name:    SlicePreAdmission,
					System:  oidEstablishment,
					Element: "hospitalization.preAdmissionIdentifier",
				},
			},
			Extensions: []ExtensionRule{
				{URL: ExtModePriseEnCharge, ValueType: "valueCodeableConcept"},
				{URL: ExtEstimatedDischargeDate, ValueType: "valueDateTime"},
			},
			Bindings: []Binding{
				{Element: "class", Kind: BindCoding, ValueSet: ValueSetEncounterClass},
				{Element: "hospitalization.admitSource", Kind: BindConcept, ValueSet: ValueSetModeEntree},
				{Element: "hospitalization.dischargeDisposition", Kind: BindConcept, ValueSet: ValueSetModeSortie},
			},
			Requirements: []Requirement{
				exists("class"),
				exists("status"),
			},
		},
		"Location": {
			ResourceType: "Location",
			Profile:      ProfileLocation,
			Requirements: []Requirement{exists("name")},
		},
		"Practitioner": {
			ResourceType: "Practitioner",
			Profile:      ProfilePractitioner,
			Slices: map[string]Slice{
				SliceIDNPS: {
					Name:       SliceIDNPS,
					System:     oidRPPS,
					TypeSystem: CodeSystemFRIdentifierType,
					TypeCode:   "IDNPS",
					Use:        "official",
				},
			},
			Requirements: []Requirement{exists("identifier")},
		},
		"PractitionerRole": {
			ResourceType: "PractitionerRole",
			Profile:      ProfilePractitionerRole,
		},
		"RelatedPerson": {
			ResourceType: "RelatedPerson",
			Profile:      ProfileRelatedPerson,
			Bindings: []Binding{
				{Element: "relationship", Kind: BindConcept, ValueSet: ValueSetRelationship},
			},
			Requirements: []Requirement{
				exists("patient"),
				exists("relationship"),
				exists("telecom"),
				exists("address"),
			},
		},
		"Coverage": {
			ResourceType: "Coverage",
			Profile:      ProfileCoverage,
			Extensions: []ExtensionRule{
				{URL: ExtInsuredID, ValueType: "valueIdentifier"},
			},
			Bindings: []Binding{
				{Element: "type", Kind: BindConcept, ValueSet: ValueSetCoverageType},
			},
			Requirements: []Requirement{
				exists("status"),
				exists("beneficiary"),
				exists("payor"),
			},
		},
		"Organization": {
			ResourceType: "Organization",
			Profile:      ProfileOrganization,
			Requirements: []Requirement{exists("name")},
		},
	}
}

func defaultMessaging() Messaging {
	return Messaging{
		EventURIBase:        "http://hl7.org/fhir/message/event/",
		SourceFallback:      "urn:oid:1.2.250.1.71.4.2.2",
		DestinationFallback: "urn:oid:1.2.250.1.71.4.2.3",
		SourceSoftware:      "frbridge",
	}
}

func defaultPayer() Payer {
	return Payer{
		Name:            "Assurance Maladie Obligatoire",
		CoverageType:    "AMO",
		InsuredIDSystem: oidINS,
	}
}
