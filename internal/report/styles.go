// internal/report/styles.go
package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/ezconn/internal/config"
)

// Styles holds the lipgloss styles used for terminal output
type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Accent  lipgloss.Style
	Meta    lipgloss.Style
	Header  lipgloss.Style
}

// NewStyles builds the styles for w from the configured theme. Colors are
// dropped automatically when w is not a terminal.
func NewStyles(w io.Writer, theme config.Theme) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Success: r.NewStyle().Foreground(lipgloss.Color(theme.Success)).Bold(true),
		Error:   r.NewStyle().Foreground(lipgloss.Color(theme.Error)).Bold(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color(theme.Warning)),
		Accent:  r.NewStyle().Foreground(lipgloss.Color(theme.Accent)),
		Meta:    r.NewStyle().Foreground(lipgloss.Color(theme.TextFaint)),
		Header:  r.NewStyle().Foreground(lipgloss.Color(theme.TextPrimary)).Bold(true),
	}
}
