package fhir

import (
	"encoding/json"
	"fmt"
)

// Resource type names.
const (
	TypeMessageHeader    = "MessageHeader"
	TypePatient          = "Patient"
	TypeEncounter        = "Encounter"
	TypeLocation         = "Location"
	TypePractitioner     = "Practitioner"
	TypePractitionerRole = "PractitionerRole"
	TypeRelatedPerson    = "RelatedPerson"
	TypeCoverage         = "Coverage"
	TypeOrganization     = "Organization"
	TypeAppointment      = "Appointment"
	TypeServiceRequest   = "ServiceRequest"
	TypeDiagnosticReport = "DiagnosticReport"
	TypeObservation      = "Observation"
	TypeOperationOutcome = "OperationOutcome"
)

type MessageHeader struct {
	Base
	EventCoding *Coding              `json:"eventCoding,omitempty"`
	EventURI    string               `json:"eventUri,omitempty"`
	Destination []MessageDestination `json:"destination,omitempty"`
	Source      *MessageSource       `json:"source,omitempty"`
	Focus       []Reference          `json:"focus,omitempty"`
}

type MessageDestination struct {
	Name     string `json:"name,omitempty"`
	Endpoint string `json:"endpoint"`
}

type MessageSource struct {
	Name     string `json:"name,omitempty"`
	Software string `json:"software,omitempty"`
	Endpoint string `json:"endpoint"`
}

type Patient struct {
	Base
	Extension           []Extension    `json:"extension,omitempty"`
	Identifier          []Identifier   `json:"identifier,omitempty"`
	Name                []HumanName    `json:"name,omitempty"`
	Telecom             []ContactPoint `json:"telecom,omitempty"`
	Gender              string         `json:"gender,omitempty"`
	BirthDate           string         `json:"birthDate,omitempty"`
	Address             []Address      `json:"address,omitempty"`
	GeneralPractitioner []Reference    `json:"generalPractitioner,omitempty"`
}

type Encounter struct {
	Base
	Extension       []Extension               `json:"extension,omitempty"`
	Identifier      []Identifier              `json:"identifier,omitempty"`
	Status          string                    `json:"status,omitempty"`
	Class           *Coding                   `json:"class,omitempty"`
	Subject         *Reference                `json:"subject,omitempty"`
	Participant     []EncounterParticipant    `json:"participant,omitempty"`
	Period          *Period                   `json:"period,omitempty"`
	Hospitalization *EncounterHospitalization `json:"hospitalization,omitempty"`
	Location        []EncounterLocation       `json:"location,omitempty"`
}

type EncounterParticipant struct {
	Type       []CodeableConcept `json:"type,omitempty"`
	Individual *Reference        `json:"individual,omitempty"`
}

type EncounterHospitalization struct {
	Extension              []Extension      `json:"extension,omitempty"`
	PreAdmissionIdentifier *Identifier      `json:"preAdmissionIdentifier,omitempty"`
	AdmitSource            *CodeableConcept `json:"admitSource,omitempty"`
	DischargeDisposition   *CodeableConcept `json:"dischargeDisposition,omitempty"`
}

type EncounterLocation struct {
	Location Reference `json:"location"`
}

type Location struct {
	Base
	Identifier []Identifier `json:"identifier,omitempty"`
	Status     string       `json:"status,omitempty"`
	Name       string       `json:"name,omitempty"`
}

type Practitioner struct {
	Base
	Identifier []Identifier `json:"identifier,omitempty"`
	Name       []HumanName  `json:"name,omitempty"`
}

type PractitionerRole struct {
	Base
	Practitioner *Reference        `json:"practitioner,omitempty"`
	Code         []CodeableConcept `json:"code,omitempty"`
}

type RelatedPerson struct {
	Base
	Patient      *Reference        `json:"patient,omitempty"`
	Relationship []CodeableConcept `json:"relationship,omitempty"`
	Name         []HumanName       `json:"name,omitempty"`
	Telecom      []ContactPoint    `json:"telecom,omitempty"`
	Address      []Address         `json:"address,omitempty"`
}

type Coverage struct {
	Base
	Extension   []Extension      `json:"extension,omitempty"`
	Identifier  []Identifier     `json:"identifier,omitempty"`
	Status      string           `json:"status,omitempty"`
	Type        *CodeableConcept `json:"type,omitempty"`
	Beneficiary *Reference       `json:"beneficiary,omitempty"`
	Payor       []Reference      `json:"payor,omitempty"`
}

type Organization struct {
	Base
	Identifier []Identifier `json:"identifier,omitempty"`
	Name       string       `json:"name,omitempty"`
}

type Appointment struct {
	Base
	Status      string                   `json:"status,omitempty"`
	Comment     string                   `json:"comment,omitempty"`
	Participant []AppointmentParticipant `json:"participant,omitempty"`
}

type AppointmentParticipant struct {
	Actor  *Reference `json:"actor,omitempty"`
	Status string     `json:"status"`
}

type ServiceRequest struct {
	Base
	Status  string           `json:"status,omitempty"`
	Intent  string           `json:"intent,omitempty"`
	Code    *CodeableConcept `json:"code,omitempty"`
	Subject *Reference       `json:"subject,omitempty"`
}

type DiagnosticReport struct {
	Base
	Status  string           `json:"status,omitempty"`
	Code    *CodeableConcept `json:"code,omitempty"`
	Subject *Reference       `json:"subject,omitempty"`
}

type Observation struct {
	Base
	Status  string           `json:"status,omitempty"`
	Code    *CodeableConcept `json:"code,omitempty"`
	Subject *Reference       `json:"subject,omitempty"`
}

// OperationOutcome carries conversion or validation diagnostics.
type OperationOutcome struct {
	Base
	Issue []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
}

// newResource returns an empty resource of the named type.
func newResource(resourceType string) (Resource, error) {
	switch resourceType {
	case TypeMessageHeader:
		return &MessageHeader{}, nil
	case TypePatient:
		return &Patient{}, nil
	case TypeEncounter:
		return &Encounter{}, nil
	case TypeLocation:
		return &Location{}, nil
	case TypePractitioner:
		return &Practitioner{}, nil
	case TypePractitionerRole:
		return &PractitionerRole{}, nil
	case TypeRelatedPerson:
		return &RelatedPerson{}, nil
	case TypeCoverage:
		return &Coverage{}, nil
	case TypeOrganization:
		return &Organization{}, nil
	case TypeAppointment:
		return &Appointment{}, nil
	case TypeServiceRequest:
		return &ServiceRequest{}, nil
	case TypeDiagnosticReport:
		return &DiagnosticReport{}, nil
	case TypeObservation:
		return &Observation{}, nil
	case TypeOperationOutcome:
		return &OperationOutcome{}, nil
	default:
		return nil, fmt.Errorf("fhir: unsupported resource type %q", resourceType)
	}
}

// DecodeResource decodes a JSON resource into its typed variant.
func DecodeResource(data []byte) (Resource, error) {
	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("fhir: invalid resource: %w", err)
	}
	res, err := newResource(probe.ResourceType)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("fhir: invalid %s: %w", probe.ResourceType, err)
	}
	return res, nil
}
