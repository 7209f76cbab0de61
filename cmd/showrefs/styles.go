// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/showrefs/showrefs/internal/render"
)

// CLI chrome styles. Graph views carry their own styles in package render;
// these share its palette.
var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(render.ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(render.ColorMuted)

	// SuccessStyle is for success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(render.ColorSuccess)

	// ErrorStyle is for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(render.ColorError)

	// WarningStyle is for warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(render.ColorWarning)

	// CmdStyle is for commands, keys and addresses.
	CmdStyle = lipgloss.NewStyle().
			Foreground(render.ColorHighlight)

	// VerboseHighlightStyle marks progress lines in watch and serve mode.
	VerboseHighlightStyle = lipgloss.NewStyle().
				Foreground(render.ColorHighlight)
)
