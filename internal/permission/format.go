package permission

import "strings"

// Color is the tag color used when a permission is displayed.
type Color string

const (
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorPurple Color = "purple"
	ColorCyan   Color = "cyan"
	ColorBlue   Color = "blue"
)

const unrestrictedLabel = "Unrestricted"

// Label is the display form of a permission.
type Label struct {
	Text  string `json:"label"`
	Color Color  `json:"color"`
}

// FormatLabel maps a permission to its display label and color.
// The first matching rule wins:
//
//	""           -> "Unrestricted", green
//	"admin:x"    -> "System: x", red
//	"role:x"     -> "Role: x", purple
//	"mod:act"    -> "<module label>: <action label>", cyan
//	anything else -> the raw token, blue
func FormatLabel(p Permission) Label {
	s := string(p)
	switch {
	case s == "":
		return Label{Text: unrestrictedLabel, Color: ColorGreen}
	case strings.HasPrefix(s, adminPrefix):
		return Label{Text: "System: " + strings.TrimPrefix(s, adminPrefix), Color: ColorRed}
	case strings.HasPrefix(s, rolePrefix):
		return Label{Text: "Role: " + strings.TrimPrefix(s, rolePrefix), Color: ColorPurple}
	}

	if module, action, ok := p.Split(); ok {
		return Label{Text: ModuleLabel(module) + ": " + ActionLabel(action), Color: ColorCyan}
	}
	return Label{Text: s, Color: ColorBlue}
}

// FormattedPermission pairs a raw permission with its label, for list responses.
type FormattedPermission struct {
	Permission Permission `json:"permission"`
	Label
}

// FormatAll formats every permission, preserving order.
func FormatAll(perms []Permission) []FormattedPermission {
	out := make([]FormattedPermission, len(perms))
	for i, p := range perms {
		out[i] = FormattedPermission{Permission: p, Label: FormatLabel(p)}
	}
	return out
}
