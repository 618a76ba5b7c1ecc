package extract

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"patdash/internal/core"
)

// Strategy selects how a section marker is located and where its data row lives.
type Strategy string

const (
	// StrategyWindow keys off a marker in column 0 ("QUINZENA"), reads the
	// fortnight label from the marker cell and searches the next Window rows
	// for the first numeric anchor.
	StrategyWindow Strategy = "window"
	// StrategyFixedOffset keys off a header text ("VAGAS CAPTADAS"), reads the
	// label from the row above and takes the row right below as data.
	StrategyFixedOffset Strategy = "fixed"
)

// DefaultProfile is the layout used when none is configured.
const DefaultProfile = "quinzena"

var (
	ErrUnknownProfile = errors.New("unknown layout profile")
	ErrInvalidProfile = errors.New("invalid layout profile")
)

// ReservedFields are output keys every record already carries.
var ReservedFields = []string{"mes", "quinzena"}

type (
	// FieldSpec maps an output field to a source column of the data row.
	FieldSpec struct {
		Name     string `yaml:"name"`
		Label    string `yaml:"label"`
		Column   int    `yaml:"column"`
		Required bool   `yaml:"required"`
	}

	// Profile describes one spreadsheet layout. The first field is the
	// anchor: its successful coercion is what makes a row a data row.
	Profile struct {
		Name         string      `yaml:"name"`
		Strategy     Strategy    `yaml:"strategy"`
		Marker       string      `yaml:"marker"`
		LabelKeyword string      `yaml:"label_keyword"`
		Window       int         `yaml:"window"`
		Months       []string    `yaml:"months"`
		Fields       []FieldSpec `yaml:"fields"`
	}

	// Registry holds the profiles available to the process.
	Registry struct {
		profiles map[string]Profile
	}
)

var (
	fieldVagas       = FieldSpec{Name: "vagas", Label: "Vagas", Column: 0, Required: true}
	fieldPCD         = FieldSpec{Name: "pcd", Label: "PCD", Column: 1}
	fieldEmpresas    = FieldSpec{Name: "empresas", Label: "Empresas", Column: 2}
	fieldAtendidos   = FieldSpec{Name: "atendidos", Label: "Atendidos", Column: 3}
	fieldContratados = FieldSpec{Name: "contratados", Label: "Contratados", Column: 4}
)

// Builtins returns the layouts seen in the PAT report spreadsheets.
func Builtins() []Profile {
	months := append([]string(nil), core.DefaultMonths...)
	return []Profile{
		{
			Name:         "quinzena",
			Strategy:     StrategyWindow,
			Marker:       "QUINZENA",
			LabelKeyword: "PRIMEIRA",
			Window:       5,
			Months:       months,
			Fields:       []FieldSpec{fieldVagas, fieldPCD, fieldContratados},
		},
		{
			Name:         "quinzena-completo",
			Strategy:     StrategyWindow,
			Marker:       "QUINZENA",
			LabelKeyword: "PRIMEIRA",
			Window:       5,
			Months:       months,
			Fields:       []FieldSpec{fieldVagas, fieldPCD, fieldEmpresas, fieldAtendidos, fieldContratados},
		},
		{
			Name:         "vagas-captadas",
			Strategy:     StrategyFixedOffset,
			Marker:       "VAGAS CAPTADAS",
			LabelKeyword: "PRIMEIRA",
			Window:       1,
			Months:       months,
			Fields:       []FieldSpec{fieldVagas, fieldPCD, fieldEmpresas, fieldAtendidos, fieldContratados},
		},
	}
}

// Validate checks the profile is usable by Extract.
func (p Profile) Validate() error {
	var errs []string
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "name is empty")
	}
	switch p.Strategy {
	case StrategyWindow, StrategyFixedOffset:
	default:
		errs = append(errs, fmt.Sprintf("unknown strategy %q", p.Strategy))
	}
	if strings.TrimSpace(p.Marker) == "" {
		errs = append(errs, "marker is empty")
	}
	if p.Strategy == StrategyWindow && p.Window < 1 {
		errs = append(errs, fmt.Sprintf("window %d must be at least 1", p.Window))
	}
	if len(p.Months) == 0 {
		errs = append(errs, "no months")
	}
	if len(p.Fields) == 0 {
		errs = append(errs, "no fields")
	}
	seen := map[string]bool{}
	for _, f := range p.Fields {
		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, "field with empty name")
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Sprintf("duplicate field %q", f.Name))
		}
		seen[f.Name] = true
		if reserved(f.Name) {
			errs = append(errs, fmt.Sprintf("field name %q is reserved", f.Name))
		}
		if f.Column < 0 {
			errs = append(errs, fmt.Sprintf("field %q has negative column %d", f.Name, f.Column))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidProfile, p.Name, strings.Join(errs, "; "))
	}
	return nil
}

func reserved(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, r := range ReservedFields {
		if n == r {
			return true
		}
	}
	return false
}

// FieldNames returns the output field names in order.
func (p Profile) FieldNames() []string {
	out := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		out[i] = f.Name
	}
	return out
}

// Label returns the display label of a field, falling back to its name.
func (p Profile) Label(field string) string {
	for _, f := range p.Fields {
		if f.Name == field {
			if f.Label != "" {
				return f.Label
			}
			return f.Name
		}
	}
	return field
}

// NewRegistry returns a registry seeded with the builtin profiles.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range Builtins() {
		r.profiles[p.Name] = p
	}
	return r
}

// Register adds or replaces a profile after validating it.
func (r *Registry) Register(p Profile) error {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return err
	}
	r.profiles[p.Name] = p
	return nil
}

// Get looks a profile up by name.
func (r *Registry) Get(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProfile, name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

// Names lists registered profile names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadFile registers every profile found in a YAML file of the form
//
//	profiles:
//	  - name: custom
//	    strategy: window
//	    marker: QUINZENA
//	    fields:
//	      - {name: vagas, column: 0, required: true}
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read layout file: %w", err)
	}
	return r.LoadYAML(data)
}

// LoadYAML registers every profile in a YAML document.
func (r *Registry) LoadYAML(data []byte) error {
	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse layout file: %w", err)
	}
	if len(pf.Profiles) == 0 {
		return fmt.Errorf("%w: layout file declares no profiles", ErrInvalidProfile)
	}
	for _, p := range pf.Profiles {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

func (p Profile) withDefaults() Profile {
	if p.Strategy == "" {
		p.Strategy = StrategyWindow
	}
	if p.Marker == "" {
		switch p.Strategy {
		case StrategyWindow:
			p.Marker = "QUINZENA"
		case StrategyFixedOffset:
			p.Marker = "VAGAS CAPTADAS"
		}
	}
	if p.LabelKeyword == "" {
		p.LabelKeyword = "PRIMEIRA"
	}
	if p.Window == 0 {
		p.Window = 5
	}
	if len(p.Months) == 0 {
		p.Months = append([]string(nil), core.DefaultMonths...)
	}
	if len(p.Fields) > 0 {
		p.Fields = append([]FieldSpec(nil), p.Fields...)
		p.Fields[0].Required = true
	}
	return p
}
