// Package census loads block-level counts from the Census Data API and
// shapes them into demographic records.
package census

import (
	"bytes"
	"embed"
	"maps"
	"net/url"
	"os"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/pn-weights/internal/model"
)

// Variant selects how the under-18 count is derived.
type Variant string

const (
	// VariantPopulation derives Under18 as CountField − Over18Field.
	VariantPopulation Variant = "population"
	// VariantHousehold derives Under18 as the sum of Under18Parts and drops
	// the parts.
	VariantHousehold Variant = "household"
)

// Geography columns every block-level response carries.
var geoColumns = []string{"state", "county", "tract", "block"}

// Profile describes one census dataset request and how its columns map onto
// record counts.
type Profile struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	BaseURL     string            `yaml:"base_url"`
	Variant     Variant           `yaml:"variant"`
	Label       string            `yaml:"label"`
	Variables   []string          `yaml:"variables"`
	Rename      map[string]string `yaml:"rename"`

	// CountField is the renamed column the weights are computed on.
	CountField   string   `yaml:"count_field"`
	Over18Field  string   `yaml:"over18_field,omitempty"`
	Under18Parts []string `yaml:"under18_parts,omitempty"`
}

//go:embed profiles/*.yaml
var builtinFS embed.FS

var builtins = mustLoadBuiltins()

func mustLoadBuiltins() map[string]Profile {
	entries, err := builtinFS.ReadDir("profiles")
	if err != nil {
		panic(err)
	}
	out := make(map[string]Profile, len(entries))
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("profiles", e.Name()))
		if err != nil {
			panic(err)
		}
		p, err := ParseProfile(data)
		if err != nil {
			panic(eris.Wrapf(err, "census: builtin profile %s", e.Name()))
		}
		out[p.Name] = p
	}
	return out
}

// Builtin returns the named built-in profile.
func Builtin(name string) (Profile, bool) {
	p, ok := builtins[name]
	if !ok {
		return Profile{}, false
	}
	return p.clone(), true
}

// Builtins returns every built-in profile sorted by name.
func Builtins() []Profile {
	out := make([]Profile, 0, len(builtins))
	for _, p := range builtins {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadProfile resolves nameOrPath to a built-in profile or reads a YAML
// profile file.
func LoadProfile(nameOrPath string) (Profile, error) {
	if p, ok := Builtin(nameOrPath); ok {
		return p, nil
	}
	data, err := os.ReadFile(nameOrPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, eris.Errorf("census: unknown profile %q", nameOrPath)
		}
		return Profile{}, eris.Wrapf(err, "census: read profile %s", nameOrPath)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return Profile{}, eris.Wrapf(err, "census: profile %s", nameOrPath)
	}
	return p, nil
}

// ParseProfile decodes and validates a YAML profile. Unknown keys are
// rejected.
func ParseProfile(data []byte) (Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var p Profile
	if err := dec.Decode(&p); err != nil {
		return Profile{}, eris.Wrapf(model.ErrDataFormat, "census: parse profile: %v", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks the rename mapping against the variant: a population
// profile must name its total and over-18 columns, a household profile its
// count column and at least one under-18 part.
func (p Profile) Validate() error {
	fail := func(format string, args ...any) error {
		return eris.Wrapf(model.ErrDataFormat, "census: profile %q: "+format, append([]any{p.Name}, args...)...)
	}

	if p.Name == "" {
		return fail("missing name")
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fail("base_url %q is not an http(s) URL", p.BaseURL)
	}
	if !isIdent(p.Label) {
		return fail("label %q must be a non-empty identifier", p.Label)
	}
	if len(p.Variables) == 0 {
		return fail("no variables")
	}

	seen := make(map[string]bool, len(p.Variables))
	for _, v := range p.Variables {
		if v == "" || strings.ContainsAny(v, ",&=+ ") {
			return fail("invalid variable %q", v)
		}
		if seen[v] {
			return fail("duplicate variable %q", v)
		}
		seen[v] = true
	}

	targets := make(map[string]bool, len(p.Rename))
	for src, dst := range p.Rename {
		if !seen[src] {
			return fail("rename source %q is not a requested variable", src)
		}
		if dst == "" || dst == model.Under18 || slices.Contains(geoColumns, dst) {
			return fail("invalid rename target %q for %s", dst, src)
		}
		if targets[dst] {
			return fail("rename target %q used twice", dst)
		}
		targets[dst] = true
	}

	if !targets[p.CountField] {
		return fail("count_field %q is not a rename target", p.CountField)
	}

	switch p.Variant {
	case VariantPopulation:
		if !targets[p.Over18Field] {
			return fail("over18_field %q is not a rename target", p.Over18Field)
		}
		if len(p.Under18Parts) > 0 {
			return fail("under18_parts are only used by household profiles")
		}
	case VariantHousehold:
		if len(p.Under18Parts) == 0 {
			return fail("household profile needs under18_parts")
		}
		if p.Over18Field != "" {
			return fail("over18_field is only used by population profiles")
		}
		parts := make(map[string]bool, len(p.Under18Parts))
		for _, part := range p.Under18Parts {
			if !targets[part] {
				return fail("under18 part %q is not a rename target", part)
			}
			if part == p.CountField {
				return fail("count_field %q cannot be an under18 part", part)
			}
			if parts[part] {
				return fail("under18 part %q listed twice", part)
			}
			parts[part] = true
		}
	default:
		return fail("unknown variant %q", p.Variant)
	}
	return nil
}

func (p Profile) clone() Profile {
	p.Variables = slices.Clone(p.Variables)
	p.Under18Parts = slices.Clone(p.Under18Parts)
	p.Rename = maps.Clone(p.Rename)
	return p
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
