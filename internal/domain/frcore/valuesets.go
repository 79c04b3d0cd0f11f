package frcore

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/gofhir/fhir/r4"
)

//go:embed valuesets/*.json
var valueSetFS embed.FS

// ValueSet is the flattened, immutable code set of one embedded ValueSet.
// Name is the embedded file name without its extension.
type ValueSet struct {
	URL   string
	Name  string
	codes map[string]map[string]string // system -> code -> display
}

// Contains reports whether code belongs to the set. An empty system matches
// any system.
func (vs *ValueSet) Contains(system, code string) bool {
	_, ok := vs.Display(system, code)
	return ok
}

// Display returns the display of code, if the code belongs to the set.
func (vs *ValueSet) Display(system, code string) (string, bool) {
	if system != "" {
		d, ok := vs.codes[system][code]
		return d, ok
	}
	for _, codes := range vs.codes {
		if d, ok := codes[code]; ok {
			return d, true
		}
	}
	return "", false
}

// Codes returns the codes of system, sorted.
func (vs *ValueSet) Codes(system string) []string {
	out := make([]string, 0, len(vs.codes[system]))
	for code := range vs.codes[system] {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func loadValueSets(fsys fs.FS, dir string) (map[string]*ValueSet, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("frcore: reading value sets: %w", err)
	}

	out := make(map[string]*ValueSet, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("frcore: reading %s: %w", entry.Name(), err)
		}
		vs, err := decodeValueSet(data)
		if err != nil {
			return nil, fmt.Errorf("frcore: %s: %w", entry.Name(), err)
		}
		vs.Name = strings.TrimSuffix(entry.Name(), ".json")
		out[vs.URL] = vs
	}
	return out, nil
}

// decodeValueSet flattens an R4 ValueSet, preferring its expansion over its
// compose definition.
func decodeValueSet(data []byte) (*ValueSet, error) {
	var raw r4.ValueSet
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse ValueSet: %w", err)
	}
	if raw.Url == nil || *raw.Url == "" {
		return nil, fmt.Errorf("valueset has no URL")
	}

	vs := &ValueSet{URL: *raw.Url, codes: make(map[string]map[string]string)}

	if raw.Expansion != nil && len(raw.Expansion.Contains) > 0 {
		for i := range raw.Expansion.Contains {
			vs.addContains(&raw.Expansion.Contains[i])
		}
		return vs, nil
	}

	if raw.Compose != nil {
		for i := range raw.Compose.Include {
			include := &raw.Compose.Include[i]
			if include.System == nil {
				continue
			}
			for j := range include.Concept {
				concept := &include.Concept[j]
				if concept.Code == nil {
					continue
				}
				vs.add(*include.System, *concept.Code, deref(concept.Display))
			}
		}
	}

	if len(vs.codes) == 0 {
		return nil, fmt.Errorf("valueset %s enumerates no codes", vs.URL)
	}
	return vs, nil
}

func (vs *ValueSet) addContains(c *r4.ValueSetExpansionContains) {
	if c.System != nil && c.Code != nil {
		vs.add(*c.System, *c.Code, deref(c.Display))
	}
	for i := range c.Contains {
		vs.addContains(&c.Contains[i])
	}
}

func (vs *ValueSet) add(system, code, display string) {
	if vs.codes[system] == nil {
		vs.codes[system] = make(map[string]string)
	}
	vs.codes[system][code] = display
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
