package core

import "fmt"

type ParameterOption struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value"`
}

type TemplateVersionParameter struct {
	Name         string            `json:"name" yaml:"name"`
	DisplayName  string            `json:"display_name,omitempty" yaml:"display_name"`
	Description  string            `json:"description,omitempty" yaml:"description"`
	Type         string            `json:"type" yaml:"type"`
	Mutable      bool              `json:"mutable" yaml:"mutable"`
	Required     bool              `json:"required" yaml:"required"`
	Ephemeral    bool              `json:"ephemeral" yaml:"ephemeral"`
	DefaultValue string            `json:"default_value" yaml:"default"`
	Options      []ParameterOption `json:"options" yaml:"options"`
}

// Label is the name shown to users.
func (p TemplateVersionParameter) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// HasOption reports whether value is one of the parameter's options.
func (p TemplateVersionParameter) HasOption(value string) bool {
	for _, o := range p.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

type WorkspaceBuildParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func findParameter(params []WorkspaceBuildParameter, name string) (WorkspaceBuildParameter, bool) {
	for _, p := range params {
		if p.Name == name {
			return p, true
		}
	}
	return WorkspaceBuildParameter{}, false
}

// MissingParameters returns the template parameters the next build cannot
// be created without. Immutable parameters and mutable required ones must
// have a value in either the new or the previous build. A parameter with
// options is also missing when its effective value is no longer an option.
func MissingParameters(oldParams, newParams []WorkspaceBuildParameter, templateParams []TemplateVersionParameter) []TemplateVersionParameter {
	var missing []TemplateVersionParameter
	seen := make(map[string]bool)
	add := func(p TemplateVersionParameter) {
		if seen[p.Name] {
			return
		}
		seen[p.Name] = true
		missing = append(missing, p)
	}

	for _, p := range templateParams {
		if p.Mutable && !p.Required {
			continue
		}
		if _, ok := findParameter(newParams, p.Name); ok {
			continue
		}
		if _, ok := findParameter(oldParams, p.Name); ok {
			continue
		}
		add(p)
	}

	for _, p := range templateParams {
		if len(p.Options) == 0 {
			continue
		}
		bp, ok := findParameter(newParams, p.Name)
		if !ok {
			bp, ok = findParameter(oldParams, p.Name)
		}
		if !ok {
			continue
		}
		if !p.HasOption(bp.Value) {
			add(p)
		}
	}
	return missing
}

// MergeParameters overlays next on top of prev, keeping prev's order and
// appending new names at the end.
func MergeParameters(prev, next []WorkspaceBuildParameter) []WorkspaceBuildParameter {
	out := make([]WorkspaceBuildParameter, 0, len(prev)+len(next))
	for _, p := range prev {
		if np, ok := findParameter(next, p.Name); ok {
			out = append(out, np)
			continue
		}
		out = append(out, p)
	}
	for _, p := range next {
		if _, ok := findParameter(prev, p.Name); !ok {
			out = append(out, p)
		}
	}
	return out
}

// ValidateImmutable rejects changes to parameters the template marks as
// immutable once a previous build has set them.
func ValidateImmutable(prev, next []WorkspaceBuildParameter, templateParams []TemplateVersionParameter) error {
	for _, tp := range templateParams {
		if tp.Mutable {
			continue
		}
		old, hadOld := findParameter(prev, tp.Name)
		nv, hasNew := findParameter(next, tp.Name)
		if hadOld && hasNew && old.Value != nv.Value {
			return fmt.Errorf("parameter %q is immutable", tp.Name)
		}
	}
	return nil
}

// UnsetRequiredParameters returns required template parameters that have
// neither a value nor a default.
func UnsetRequiredParameters(values []WorkspaceBuildParameter, templateParams []TemplateVersionParameter) []TemplateVersionParameter {
	var unset []TemplateVersionParameter
	for _, tp := range templateParams {
		if !tp.Required || tp.DefaultValue != "" {
			continue
		}
		if p, ok := findParameter(values, tp.Name); ok && p.Value != "" {
			continue
		}
		unset = append(unset, tp)
	}
	return unset
}

// ValidateTemplateParameters checks a template version's parameter
// definitions: names are present and unique, and a default is one of the
// options when options are given.
func ValidateTemplateParameters(params []TemplateVersionParameter) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" {
			return fmt.Errorf("parameter name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		if p.DefaultValue != "" && len(p.Options) > 0 && !p.HasOption(p.DefaultValue) {
			return fmt.Errorf("parameter %q: default %q is not an option", p.Name, p.DefaultValue)
		}
	}
	return nil
}

// ApplyDefaults appends the default of every template parameter values does
// not mention.
func ApplyDefaults(values []WorkspaceBuildParameter, templateParams []TemplateVersionParameter) []WorkspaceBuildParameter {
	out := append([]WorkspaceBuildParameter(nil), values...)
	for _, tp := range templateParams {
		if tp.DefaultValue == "" {
			continue
		}
		if _, ok := findParameter(out, tp.Name); !ok {
			out = append(out, WorkspaceBuildParameter{Name: tp.Name, Value: tp.DefaultValue})
		}
	}
	return out
}

// InvalidOptions returns the template parameters whose value in values is
// not one of their options.
func InvalidOptions(values []WorkspaceBuildParameter, templateParams []TemplateVersionParameter) []TemplateVersionParameter {
	var invalid []TemplateVersionParameter
	for _, tp := range templateParams {
		if len(tp.Options) == 0 {
			continue
		}
		if p, ok := findParameter(values, tp.Name); ok && !tp.HasOption(p.Value) {
			invalid = append(invalid, tp)
		}
	}
	return invalid
}
