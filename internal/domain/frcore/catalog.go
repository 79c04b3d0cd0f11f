package frcore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

var (
	// ErrUnknownSlice is returned when an override names a slice the catalog
	// does not define.
	ErrUnknownSlice = errors.New("frcore: unknown slice")

	// ErrInvalidSystem is returned when an override carries an unusable system.
	ErrInvalidSystem = errors.New("frcore: invalid identifier system")
)

// Catalog is the read-only FR-Core rule set shared by the converter and the
// validator. It is never mutated after Load returns, so concurrent readers
// need no locking.
type Catalog struct {
	rules     map[string]ProfileRule
	valueSets map[string]*ValueSet
	messaging Messaging
	payer     Payer
}

type loadOptions struct {
	sliceSystems []sliceOverride
	messaging    Messaging
}

type sliceOverride struct {
	resourceType, slice, system string
}

// Option customizes Load.
type Option func(*loadOptions)

// WithSliceSystem replaces the identifier system of one slice. It lets a
// domain expert correct a shared OID without a code change.
func WithSliceSystem(resourceType, slice, system string) Option {
	return func(o *loadOptions) {
		o.sliceSystems = append(o.sliceSystems, sliceOverride{resourceType, slice, system})
	}
}

// WithEndpointFallbacks sets the MessageHeader source/destination endpoints
// used when MSH-3/4 or MSH-5/6 are empty. Empty values keep the defaults.
func WithEndpointFallbacks(source, destination string) Option {
	return func(o *loadOptions) {
		if source != "" {
			o.messaging.SourceFallback = source
		}
		if destination != "" {
			o.messaging.DestinationFallback = destination
		}
	}
}

var defaultCatalog atomic.Pointer[Catalog]

// Load builds a catalog from the built-in rules and the embedded ValueSets.
// The first successful Load is published as the process-wide Default.
func Load(opts ...Option) (*Catalog, error) {
	o := loadOptions{messaging: defaultMessaging()}
	for _, opt := range opts {
		opt(&o)
	}

	valueSets, err := loadValueSets(valueSetFS, "valuesets")
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		rules:     defaultRules(),
		valueSets: valueSets,
		messaging: o.messaging,
		payer:     defaultPayer(),
	}

	for _, ov := range o.sliceSystems {
		if err := c.overrideSlice(ov); err != nil {
			return nil, err
		}
	}
	if err := c.checkBindings(); err != nil {
		return nil, err
	}

	defaultCatalog.CompareAndSwap(nil, c)
	return c, nil
}

func (c *Catalog) overrideSlice(ov sliceOverride) error {
	rule, ok := c.rules[ov.resourceType]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownSlice, ov.resourceType, ov.slice)
	}
	slice, ok := rule.Slices[ov.slice]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownSlice, ov.resourceType, ov.slice)
	}
	if !strings.HasPrefix(ov.system, "urn:") && !strings.HasPrefix(ov.system, "http") {
		return fmt.Errorf("%w: %q for %s.%s", ErrInvalidSystem, ov.system, ov.resourceType, ov.slice)
	}
	slice.System = ov.system
	rule.Slices[ov.slice] = slice
	return nil
}

// checkBindings makes sure every binding points at an embedded ValueSet.
func (c *Catalog) checkBindings() error {
	for rt, rule := range c.rules {
		for _, b := range rule.Bindings {
			if _, ok := c.valueSets[b.ValueSet]; !ok {
				return fmt.Errorf("frcore: %s.%s bound to missing value set %s", rt, b.Element, b.ValueSet)
			}
		}
		for _, ext := range rule.Extensions {
			if ext.ValueSet == "" {
				continue
			}
			if _, ok := c.valueSets[ext.ValueSet]; !ok {
				return fmt.Errorf("frcore: %s extension %s bound to missing value set %s", rt, ext.URL, ext.ValueSet)
			}
		}
	}
	return nil
}

// Default returns the process-wide catalog, or nil before the first Load.
func Default() *Catalog {
	return defaultCatalog.Load()
}

// MustDefault returns the process-wide catalog and panics if none was loaded.
func MustDefault() *Catalog {
	c := Default()
	if c == nil {
		panic("frcore: catalog used before Load")
	}
	return c
}

// Rule returns a copy of the policy for resourceType.
func (c *Catalog) Rule(resourceType string) (ProfileRule, bool) {
	r, ok := c.rules[resourceType]
	if !ok {
		return ProfileRule{}, false
	}
	return r.clone(), true
}

// Profile returns the canonical profile URL for resourceType, or "".
func (c *Catalog) Profile(resourceType string) string {
	return c.rules[resourceType].Profile
}

// Slice returns a named identifier slice.
func (c *Catalog) Slice(resourceType, name string) (Slice, bool) {
	s, ok := c.rules[resourceType].Slices[name]
	return s, ok
}

// MustSlice returns a named identifier slice and panics when it is missing.
// The built-in slice names are always present.
func (c *Catalog) MustSlice(resourceType, name string) Slice {
	s, ok := c.Slice(resourceType, name)
	if !ok {
		panic(fmt.Sprintf("frcore: no slice %s.%s", resourceType, name))
	}
	return s
}

// ValueSet returns an embedded ValueSet by canonical URL.
func (c *Catalog) ValueSet(url string) (*ValueSet, bool) {
	vs, ok := c.valueSets[url]
	return vs, ok
}

// Contains reports whether (system, code) belongs to the ValueSet at url. An
// unknown ValueSet contains nothing.
func (c *Catalog) Contains(url, system, code string) bool {
	vs, ok := c.valueSets[url]
	return ok && vs.Contains(system, code)
}

// Messaging returns the MessageHeader constants.
func (c *Catalog) Messaging() Messaging {
	return c.messaging
}

// EventURI builds the MessageHeader.eventUri for an HL7 trigger event.
func (c *Catalog) EventURI(event string) string {
	return c.messaging.EventURIBase + event
}

// Payer returns the mandatory insurance payer constants.
func (c *Catalog) Payer() Payer {
	return c.payer
}

// ResourceTypes lists the resource types with a rule, sorted.
func (c *Catalog) ResourceTypes() []string {
	out := make([]string, 0, len(c.rules))
	for rt := range c.rules {
		out = append(out, rt)
	}
	sort.Strings(out)
	return out
}

// SharedSlice is an identifier system bound to more than one slice.
type SharedSlice struct {
	System string   `json:"system"`
	Slices []string `json:"slices"`
}

// SharedSlices reports identifier systems reused across slices, which usually
// means a slice still carries a placeholder OID.
func (c *Catalog) SharedSlices() []SharedSlice {
	bySystem := make(map[string][]string)
	for rt, rule := range c.rules {
		for name, s := range rule.Slices {
			bySystem[s.System] = append(bySystem[s.System], rt+"."+name)
		}
	}

	var out []SharedSlice
	for system, slices := range bySystem {
		if len(slices) < 2 {
			continue
		}
		sort.Strings(slices)
		out = append(out, SharedSlice{System: system, Slices: slices})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].System < out[j].System })
	return out
}

// Summary is the serializable view of a catalog.
type Summary struct {
	Rules        []ProfileRule `json:"rules"`
	ValueSets    []ValueSetRef `json:"valueSets"`
	SharedSlices []SharedSlice `json:"sharedSlices,omitempty"`
	Messaging    Messaging     `json:"messaging"`
	Payer        Payer         `json:"payer"`
}

// ValueSetRef names an embedded ValueSet and its size.
type ValueSetRef struct {
	URL   string `json:"url"`
	Name  string `json:"name"`
	Codes int    `json:"codes"`
}

// Summary returns a serializable snapshot of the catalog.
func (c *Catalog) Summary() Summary {
	s := Summary{
		SharedSlices: c.SharedSlices(),
		Messaging:    c.messaging,
		Payer:        c.payer,
	}
	for _, rt := range c.ResourceTypes() {
		s.Rules = append(s.Rules, c.rules[rt].clone())
	}

	urls := make([]string, 0, len(c.valueSets))
	for url := range c.valueSets {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	for _, url := range urls {
		vs := c.valueSets[url]
		n := 0
		for _, codes := range vs.codes {
			n += len(codes)
		}
		s.ValueSets = append(s.ValueSets, ValueSetRef{URL: url, Name: vs.Name, Codes: n})
	}
	return s
}
