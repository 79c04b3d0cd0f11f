package fhir

// Resource is one of the resource kinds a converted Bundle can carry. The set
// is closed: only the types in this package embed Base.
type Resource interface {
	GetResourceType() string
	GetID() string
	GetMeta() *Meta
	base() *Base
}

// Base holds the elements shared by every resource.
type Base struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id,omitempty"`
	Meta         *Meta  `json:"meta,omitempty"`
}

func (b *Base) GetResourceType() string { return b.ResourceType }
func (b *Base) GetID() string           { return b.ID }
func (b *Base) GetMeta() *Meta          { return b.Meta }
func (b *Base) base() *Base             { return b }

// AddProfile declares a canonical profile in meta.profile once.
func (b *Base) AddProfile(url string) {
	if b.Meta == nil {
		b.Meta = &Meta{}
	}
	for _, p := range b.Meta.Profile {
		if p == url {
			return
		}
	}
	b.Meta.Profile = append(b.Meta.Profile, url)
}

// Meta carries dates pre-formatted with their offset, so it holds strings
// rather than time.Time.
type Meta struct {
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Profile     []string `json:"profile,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Concept builds a single-coding CodeableConcept.
func Concept(system, code, display string) *CodeableConcept {
	return &CodeableConcept{Coding: []Coding{{System: system, Code: code, Display: display}}}
}

// FirstCode returns the first coding's code, or "".
func (cc *CodeableConcept) FirstCode() string {
	if cc == nil || len(cc.Coding) == 0 {
		return ""
	}
	return cc.Coding[0].Code
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
}

type HumanName struct {
	Extension []Extension `json:"extension,omitempty"`
	Use       string      `json:"use,omitempty"`
	Family    string      `json:"family,omitempty"`
	Given     []string    `json:"given,omitempty"`
}

type Address struct {
	Use        string   `json:"use,omitempty"`
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
}

type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Extension carries exactly one value[x]; nested extensions are allowed for
// complex extensions.
type Extension struct {
	URL                  string           `json:"url"`
	Extension            []Extension      `json:"extension,omitempty"`
	ValueString          string           `json:"valueString,omitempty"`
	ValueCode            string           `json:"valueCode,omitempty"`
	ValueDate            string           `json:"valueDate,omitempty"`
	ValueDateTime        string           `json:"valueDateTime,omitempty"`
	ValueBoolean         *bool            `json:"valueBoolean,omitempty"`
	ValueCoding          *Coding          `json:"valueCoding,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
	ValueIdentifier      *Identifier      `json:"valueIdentifier,omitempty"`
	ValueAddress         *Address         `json:"valueAddress,omitempty"`
}

// FindExtension returns the first extension with the given URL.
func FindExtension(exts []Extension, url string) (Extension, bool) {
	for _, ext := range exts {
		if ext.URL == url {
			return ext, true
		}
	}
	return Extension{}, false
}
