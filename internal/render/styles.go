// SPDX-License-Identifier: MPL-2.0

package render

import "github.com/charmbracelet/lipgloss"

// Color palette shared by every view. Tuned for dark terminal backgrounds.
const (
	// ColorPrimary is purple, used for the root module and panel titles.
	ColorPrimary = lipgloss.Color("#7C3AED")
	// ColorMuted is gray, used for tree branches and secondary text.
	ColorMuted = lipgloss.Color("#6B7280")
	// ColorSuccess is green.
	ColorSuccess = lipgloss.Color("#10B981")
	// ColorError is red, used for unavailable modules.
	ColorError = lipgloss.Color("#EF4444")
	// ColorWarning is amber, used for cycles and version mismatches.
	ColorWarning = lipgloss.Color("#F59E0B")
	// ColorHighlight is blue, used for shared modules.
	ColorHighlight = lipgloss.Color("#3B82F6")
	// ColorVerbose is light gray, used for aliases and field values.
	ColorVerbose = lipgloss.Color("#9CA3AF")
)

// Styles holds the lipgloss styles of one Renderer.
type Styles struct {
	Root        lipgloss.Style
	Module      lipgloss.Style
	Shared      lipgloss.Style
	Unavailable lipgloss.Style
	Alias       lipgloss.Style
	Cycle       lipgloss.Style
	Branch      lipgloss.Style

	Panel    lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Warning  lipgloss.Style
	Subtitle lipgloss.Style
}

// NewStyles builds the default styles on r. A nil r uses the default
// lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Styles{
		Root:        r.NewStyle().Bold(true).Foreground(ColorPrimary),
		Module:      r.NewStyle(),
		Shared:      r.NewStyle().Foreground(ColorHighlight),
		Unavailable: r.NewStyle().Foreground(ColorError),
		Alias:       r.NewStyle().Foreground(ColorVerbose),
		Cycle:       r.NewStyle().Foreground(ColorWarning),
		Branch:      r.NewStyle().Foreground(ColorMuted).MarginRight(1),

		Panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1),
		Title:    r.NewStyle().Bold(true).Foreground(ColorPrimary).MarginBottom(1),
		Label:    r.NewStyle().Bold(true).Foreground(ColorWarning),
		Value:    r.NewStyle().Foreground(ColorVerbose),
		Warning:  r.NewStyle().Foreground(ColorWarning),
		Subtitle: r.NewStyle().Foreground(ColorMuted),
	}
}
