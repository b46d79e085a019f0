package theme

import "time"

// Colors is one set of design-token colors.
type Colors struct {
	Background string `json:"background" yaml:"background"`
	Outline    string `json:"outline" yaml:"outline"`
	Fill       string `json:"fill" yaml:"fill"`
	Text       string `json:"text" yaml:"text"`
}

// Role is a color set with optional disabled and hover variants.
type Role struct {
	Colors   `yaml:",inline"`
	Disabled *Colors `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Hover    *Colors `json:"hover,omitempty" yaml:"hover,omitempty"`
}

type RoleName string

const (
	RoleDanger  RoleName = "danger"
	RoleError   RoleName = "error"
	RoleWarning RoleName = "warning"
	RoleNotice  RoleName = "notice"
	RoleInfo    RoleName = "info"
	RoleSuccess RoleName = "success"
	RoleActive  RoleName = "active"
	RolePreview RoleName = "preview"
)

// AllRoles lists the semantic roles in display order.
var AllRoles = []RoleName{
	RoleDanger, RoleError, RoleWarning, RoleNotice,
	RoleInfo, RoleSuccess, RoleActive, RolePreview,
}

// Theme is a full set of surface levels and semantic roles.
type Theme struct {
	L1            Role              `json:"l1" yaml:"l1"`
	L2            Role              `json:"l2" yaml:"l2"`
	L3            Role              `json:"l3" yaml:"l3"`
	Roles         map[RoleName]Role `json:"roles" yaml:"roles"`
	SecondaryText string            `json:"secondary_text" yaml:"secondary_text"`
}

// Role returns the named role. Unknown names yield the zero Role.
func (t Theme) Role(name RoleName) Role {
	return t.Roles[name]
}

const (
	black = "#000000"

	// unassigned marks tokens the light theme has not picked a color for yet.
	unassigned = "#f00"

	gray50  = "#f9fafb"
	gray100 = "#f3f4f6"
	gray200 = "#e5e7eb"
	gray400 = "#9ca3af"
	gray600 = "#4b5563"
	gray700 = "#374151"

	orange50  = "#fff7ed"
	orange100 = "#ffedd5"
	orange500 = "#f97316"
	orange600 = "#ea580c"
	orange800 = "#9a3412"
	orange950 = "#431407"

	red50  = "#fef2f2"
	red500 = "#ef4444"
	red600 = "#dc2626"
	red950 = "#450a0a"

	amber50  = "#fffbeb"
	amber300 = "#fcd34d"
	amber950 = "#451a03"

	yellow50  = "#fefce8"
	yellow200 = "#fef08a"
	yellow500 = "#eab308"
	yellow950 = "#422006"

	blue50  = "#eff6ff"
	blue400 = "#60a5fa"
	blue600 = "#2563eb"
	blue950 = "#172554"

	green50  = "#f0fdf4"
	green100 = "#dcfce7"
	green500 = "#22c55e"
	green600 = "#16a34a"
	green800 = "#166534"
	green950 = "#052e16"

	sky50  = "#f0f9ff"
	sky100 = "#e0f2fe"
	sky200 = "#bae6fd"
	sky500 = "#0ea5e9"
	sky600 = "#0284c7"
	sky800 = "#075985"
	sky950 = "#082f49"

	violet50  = "#f5f3ff"
	violet500 = "#8b5cf6"
	violet600 = "#7c3aed"
	violet950 = "#2e1065"
)

var placeholderDisabled = &Colors{Background: unassigned, Outline: unassigned, Fill: unassigned, Text: gray200}
var placeholderHover = &Colors{Background: unassigned, Outline: unassigned, Fill: unassigned, Text: black}

// Light is the light-mode theme.
var Light = Theme{
	L1: Role{Colors: Colors{Background: gray50, Outline: gray400, Fill: gray600, Text: black}},
	L2: Role{
		Colors:   Colors{Background: gray100, Outline: gray700, Fill: unassigned, Text: black},
		Disabled: placeholderDisabled,
		Hover:    placeholderHover,
	},
	L3: Role{
		Colors:   Colors{Background: gray200, Outline: gray700, Fill: gray600, Text: black},
		Disabled: placeholderDisabled,
		Hover:    placeholderHover,
	},
	Roles: map[RoleName]Role{
		RoleDanger: {
			Colors:   Colors{Background: orange50, Outline: orange500, Fill: orange600, Text: orange950},
			Disabled: &Colors{Background: orange50, Outline: orange800, Fill: orange800, Text: orange800},
			Hover:    &Colors{Background: orange100, Outline: orange500, Fill: orange500, Text: black},
		},
		RoleError: {
			Colors: Colors{Background: red50, Outline: red500, Fill: red600, Text: red950},
		},
		RoleWarning: {
			Colors: Colors{Background: amber50, Outline: amber300, Fill: unassigned, Text: amber950},
		},
		RoleNotice: {
			Colors: Colors{Background: yellow50, Outline: yellow200, Fill: yellow500, Text: yellow950},
		},
		RoleInfo: {
			Colors: Colors{Background: blue50, Outline: blue400, Fill: blue600, Text: blue950},
		},
		RoleSuccess: {
			Colors:   Colors{Background: green50, Outline: green500, Fill: green600, Text: green950},
			Disabled: &Colors{Background: green50, Outline: green800, Fill: green800, Text: green800},
			Hover:    &Colors{Background: green100, Outline: green500, Fill: green500, Text: black},
		},
		RoleActive: {
			Colors:   Colors{Background: sky50, Outline: sky500, Fill: sky600, Text: sky950},
			Disabled: &Colors{Background: sky50, Outline: sky800, Fill: sky800, Text: sky200},
			Hover:    &Colors{Background: sky100, Outline: sky500, Fill: sky500, Text: black},
		},
		RolePreview: {
			Colors: Colors{Background: violet50, Outline: violet500, Fill: violet600, Text: violet950},
		},
	},
	SecondaryText: gray600,
}

const (
	fastLatency = 150 * time.Millisecond
	okLatency   = 300 * time.Millisecond
)

// LatencyRole classifies a measured latency. ok is false when no latency is
// available, which includes zero.
func LatencyRole(latency time.Duration) (role RoleName, ok bool) {
	switch {
	case latency <= 0:
		return "", false
	case latency < fastLatency:
		return RoleSuccess, true
	case latency < okLatency:
		return RoleWarning, true
	default:
		return RoleError, true
	}
}

// LatencyColor is the color a latency badge is drawn in.
func (t Theme) LatencyColor(latency time.Duration) string {
	role, ok := LatencyRole(latency)
	if !ok {
		return t.SecondaryText
	}
	return t.Roles[role].Outline
}
