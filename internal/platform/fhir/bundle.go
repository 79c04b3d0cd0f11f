package fhir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BundleTypeMessage is the only Bundle type produced by conversion.
const BundleTypeMessage = "message"

// URNPrefix prefixes every intra-bundle fullUrl and reference.
const URNPrefix = "urn:uuid:"

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Meta         *Meta         `json:"meta,omitempty"`
	Type         string        `json:"type"`
	Timestamp    string        `json:"timestamp,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

// Completeness tells whether an entry is a full mapping or a placeholder.
type Completeness int

const (
	Full Completeness = iota
	Stub
)

func (c Completeness) String() string {
	if c == Stub {
		return "stub"
	}
	return "full"
}

// BundleEntry pairs a fullUrl with exactly one resource.
type BundleEntry struct {
	FullURL      string       `json:"fullUrl,omitempty"`
	Resource     Resource     `json:"resource,omitempty"`
	Completeness Completeness `json:"-"`
}

// URN returns the urn:uuid: form of a resource id.
func URN(id string) string {
	return URNPrefix + id
}

// ReferenceTo builds a reference to a resource living in the same Bundle.
func ReferenceTo(r Resource) *Reference {
	return &Reference{Reference: URN(r.GetID()), Type: r.GetResourceType()}
}

// NewEntry wraps r with a fullUrl derived from its id.
func NewEntry(r Resource) BundleEntry {
	return BundleEntry{FullURL: URN(r.GetID()), Resource: r}
}

// NewStubEntry wraps a placeholder resource.
func NewStubEntry(r Resource) BundleEntry {
	e := NewEntry(r)
	e.Completeness = Stub
	return e
}

func (e *BundleEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		FullURL  string          `json:"fullUrl"`
		Resource json.RawMessage `json:"resource"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.FullURL = raw.FullURL
	if len(raw.Resource) == 0 {
		return nil
	}
	res, err := DecodeResource(raw.Resource)
	if err != nil {
		return fmt.Errorf("entry %s: %w", raw.FullURL, err)
	}
	e.Resource = res
	return nil
}

// StubEntries returns the placeholder entries, in bundle order.
func (b *Bundle) StubEntries() []BundleEntry {
	var out []BundleEntry
	for _, e := range b.Entry {
		if e.Completeness == Stub {
			out = append(out, e)
		}
	}
	return out
}

// ResourcesOfType returns the resources of the given type, in bundle order.
func (b *Bundle) ResourcesOfType(resourceType string) []Resource {
	var out []Resource
	for _, e := range b.Entry {
		if e.Resource != nil && e.Resource.GetResourceType() == resourceType {
			out = append(out, e.Resource)
		}
	}
	return out
}

// ResourceTypes lists the distinct resource types present, in first-seen order.
func (b *Bundle) ResourceTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range b.Entry {
		if e.Resource == nil {
			continue
		}
		rt := e.Resource.GetResourceType()
		if !seen[rt] {
			seen[rt] = true
			out = append(out, rt)
		}
	}
	return out
}

// Outcomes returns every OperationOutcome entry.
func (b *Bundle) Outcomes() []*OperationOutcome {
	var out []*OperationOutcome
	for _, e := range b.Entry {
		if oo, ok := e.Resource.(*OperationOutcome); ok {
			out = append(out, oo)
		}
	}
	return out
}

// OutcomeText joins the diagnostics of every OperationOutcome issue.
func (b *Bundle) OutcomeText() string {
	var parts []string
	for _, oo := range b.Outcomes() {
		for _, issue := range oo.Issue {
			parts = append(parts, issue.Diagnostics)
		}
	}
	return strings.Join(parts, "; ")
}
