package frcore

// Canonical profile URLs.
const (
	StructureDefinitionBase = "https://hl7.fr/ig/fhir/core/StructureDefinition/"

	ProfilePatient          = StructureDefinitionBase + "fr-core-patient"
	ProfilePatientINS       = StructureDefinitionBase + "fr-core-patient-ins"
	ProfileEncounter        = StructureDefinitionBase + "fr-core-encounter"
	ProfileLocation         = StructureDefinitionBase + "fr-core-location"
	ProfilePractitioner     = StructureDefinitionBase + "fr-core-practitioner"
	ProfilePractitionerRole = StructureDefinitionBase + "fr-core-practitioner-role"
	ProfileRelatedPerson    = StructureDefinitionBase + "fr-core-related-person"
	ProfileCoverage         = StructureDefinitionBase + "fr-core-coverage"
	ProfileOrganization     = StructureDefinitionBase + "fr-core-organization"
	ProfileMessageHeader    = "http://hl7.org/fhir/StructureDefinition/MessageHeader"
)

// Extension URLs.
const (
	ExtIdentityReliability    = StructureDefinitionBase + "fr-core-identity-reliability"
	ExtBirthListGivenName     = StructureDefinitionBase + "fr-core-patient-birth-list-given-name"
	ExtBirthPlace             = "http://hl7.org/fhir/StructureDefinition/patient-birthPlace"
	ExtModePriseEnCharge      = StructureDefinitionBase + "fr-core-encounter-mode-prise-en-charge"
	ExtEstimatedDischargeDate = StructureDefinitionBase + "fr-core-estimated-discharge-date"
	ExtInsuredID              = StructureDefinitionBase + "fr-core-coverage-insured-id"
)

// Code systems.
const (
	CodeSystemV2IdentifierType    = "http://terminology.hl7.org/CodeSystem/v2-0203"
	CodeSystemFRIdentifierType    = "https://hl7.fr/ig/fhir/core/CodeSystem/fr-core-cs-v2-0203"
	CodeSystemV2EventType         = "http://terminology.hl7.org/CodeSystem/v2-0003"
	CodeSystemRoleCode            = "http://terminology.hl7.org/CodeSystem/v3-RoleCode"
	CodeSystemActCode             = "http://terminology.hl7.org/CodeSystem/v3-ActCode"
	CodeSystemParticipationType   = "http://terminology.hl7.org/CodeSystem/v3-ParticipationType"
	CodeSystemGender              = "http://hl7.org/fhir/administrative-gender"
	CodeSystemIdentityReliability = "https://hl7.fr/ig/fhir/core/CodeSystem/fr-core-cs-v2-0445"
	CodeSystemCoverageType        = "https://hl7.fr/ig/fhir/core/CodeSystem/fr-core-cs-coverage-type"
	CodeSystemModeEntree          = "https://mos.esante.gouv.fr/NOS/TRE_R213-ModeEntree/FHIR/TRE-R213-ModeEntree"
	CodeSystemModeSortie          = "https://mos.esante.gouv.fr/NOS/TRE_R214-ModeSortie/FHIR/TRE-R214-ModeSortie"
)

// ValueSet URLs of the embedded bindings.
const (
	ValueSetIdentityReliability = "https://hl7.fr/ig/fhir/core/ValueSet/fr-core-vs-identity-reliability"
	ValueSetGender              = "http://hl7.org/fhir/ValueSet/administrative-gender"
	ValueSetRelationship        = "https://hl7.fr/ig/fhir/core/ValueSet/fr-core-vs-relation-type"
	ValueSetCoverageType        = "https://hl7.fr/ig/fhir/core/ValueSet/fr-core-vs-coverage-type"
	ValueSetEncounterClass      = "https://hl7.fr/ig/fhir/core/ValueSet/fr-core-vs-encounter-class"
	ValueSetModeEntree          = "https://hl7.fr/ig/fhir/core/ValueSet/fr-core-vs-mode-entree"
	ValueSetModeSortie          = "https://hl7.fr/ig/fhir/core/ValueSet/fr-core-vs-mode-sortie"
)

// Identifier slice names.
const (
	SlicePI           = "PI"
	SliceINSNIR       = "INS-NIR"
	SliceVN           = "VN"
	SlicePreAdmission = "PREADMIT"
	SliceIDNPS        = "IDNPS"
)

// Slice constrains one repetition of an identifier element. Element names the
// identifier element when it is not Resource.identifier.
type Slice struct {
	Name       string `json:"name"`
	System     string `json:"system"`
	TypeSystem string `json:"typeSystem,omitempty"`
	TypeCode   string `json:"typeCode,omitempty"`
	Use        string `json:"use,omitempty"`
	Element    string `json:"element,omitempty"`
}

// BindingKind tells how the coded element is shaped.
type BindingKind string

const (
	BindCode    BindingKind = "code"
	BindCoding  BindingKind = "Coding"
	BindConcept BindingKind = "CodeableConcept"
)

// Binding ties an element to a ValueSet.
type Binding struct {
	Element  string      `json:"element"`
	Kind     BindingKind `json:"kind"`
	ValueSet string      `json:"valueSet"`
}

// ExtensionRule describes an extension the profile declares. ValueSet, when
// set, binds the extension's valueCoding.
type ExtensionRule struct {
	URL       string `json:"url"`
	ValueType string `json:"valueType"`
	Required  bool   `json:"required"`
	ValueSet  string `json:"valueSet,omitempty"`
}

// Requirement is a mandatory element, tested with a FHIRPath expression that
// must evaluate to true.
type Requirement struct {
	Element    string `json:"element"`
	Expression string `json:"expression"`
}

// ProfileRule is the policy for one resource type.
type ProfileRule struct {
	ResourceType string           `json:"resourceType"`
	Profile      string           `json:"profile"`
	Slices       map[string]Slice `json:"slices,omitempty"`
	Extensions   []ExtensionRule  `json:"extensions,omitempty"`
	Bindings     []Binding        `json:"bindings,omitempty"`
	Requirements []Requirement    `json:"requirements,omitempty"`
}

// SliceByTypeCode finds the identifier slice whose type code is code.
func (r ProfileRule) SliceByTypeCode(code string) (Slice, bool) {
	for _, s := range r.Slices {
		if s.TypeCode != "" && s.TypeCode == code {
			return s, true
		}
	}
	return Slice{}, false
}

func (r ProfileRule) clone() ProfileRule {
	out := r
	out.Slices = make(map[string]Slice, len(r.Slices))
	for k, v := range r.Slices {
		out.Slices[k] = v
	}
	out.Extensions = append([]ExtensionRule(nil), r.Extensions...)
	out.Bindings = append([]Binding(nil), r.Bindings...)
	out.Requirements = append([]Requirement(nil), r.Requirements...)
	return out
}

// Messaging holds the message-level constants used for MessageHeader.
type Messaging struct {
	EventURIBase        string `json:"eventUriBase"`
	SourceFallback      string `json:"sourceFallback"`
	DestinationFallback string `json:"destinationFallback"`
	SourceSoftware      string `json:"sourceSoftware"`
}

// Payer identifies the mandatory health insurance organisation.
type Payer struct {
	Name            string `json:"name"`
	CoverageType    string `json:"coverageType"`
	InsuredIDSystem string `json:"insuredIdSystem"`
}
