// internal/report/report.go
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhath/ezconn/internal/attempts"
	"github.com/nhath/ezconn/internal/config"
	"github.com/nhath/ezconn/internal/db"
)

// Printer renders connection outcomes for the terminal
type Printer struct {
	w       io.Writer
	styles  Styles
	verbose bool
}

// New creates a Printer writing to w. With verbose set, failures include
// the underlying driver detail.
func New(w io.Writer, theme config.Theme, verbose bool) *Printer {
	return &Printer{w: w, styles: NewStyles(w, theme), verbose: verbose}
}

// Success reports an established connection
func (p *Printer) Success(profile, target, version string) {
	line := p.styles.Success.Render("✓ Connection successful!")
	line += " " + p.styles.Accent.Render(profile)
	if target != "" {
		line += " " + p.styles.Meta.Render(target)
	}
	fmt.Fprintln(p.w, line)
	if version != "" {
		fmt.Fprintln(p.w, p.styles.Meta.Render("  server "+version))
	}
}

// Failure reports a failed attempt. Translated errors show their fixed
// message and code; the cause is only shown in verbose mode.
func (p *Printer) Failure(err error) {
	e, ok := db.AsError(err)
	if !ok {
		fmt.Fprintln(p.w, p.styles.Error.Render("✗ "+err.Error()))
		return
	}

	line := p.styles.Error.Render("✗ " + capitalize(e.Message))
	if details := codeDetails(e); details != "" {
		line += " " + p.styles.Meta.Render(details)
	}
	fmt.Fprintln(p.w, line)

	if p.verbose && e.Cause != nil {
		fmt.Fprintln(p.w, p.styles.Warning.Render("  cause: "+e.Cause.Error()))
	}
}

// Profiles lists profile names with their display DSN
func (p *Printer) Profiles(profiles []config.Profile, defaultProfile string) {
	if len(profiles) == 0 {
		fmt.Fprintln(p.w, p.styles.Meta.Render("no profiles"))
		return
	}
	t := table.New().
		Headers("NAME", "TYPE", "TARGET").
		StyleFunc(p.cellStyle)
	for _, prof := range profiles {
		name := prof.Name
		if name == defaultProfile {
			name += " *"
		}
		t.Row(name, prof.Type, prof.BuildDSN())
	}
	fmt.Fprintln(p.w, t.Render())
}

// Attempts renders the attempt log as a table
func (p *Printer) Attempts(list []attempts.Attempt) {
	if len(list) == 0 {
		fmt.Fprintln(p.w, p.styles.Meta.Render("no attempts recorded"))
		return
	}
	t := table.New().
		Headers("WHEN", "PROFILE", "DRIVER", "STATUS", "CODE", "DURATION", "MESSAGE").
		StyleFunc(p.cellStyle)
	for _, a := range list {
		code := ""
		if a.Code != 0 {
			code = strconv.Itoa(a.Code)
		}
		t.Row(
			a.AttemptedAt.Local().Format(time.DateTime),
			a.ProfileName,
			a.Driver,
			a.Status,
			code,
			fmt.Sprintf("%dms", a.DurationMs),
			a.Message,
		)
	}
	fmt.Fprintln(p.w, t.Render())
}

func (p *Printer) cellStyle(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return p.styles.Header
	}
	return p.styles.Meta.UnsetForeground()
}

func codeDetails(e *db.Error) string {
	var parts []string
	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("code %d", e.Code))
	}
	if e.SQLState != "" {
		parts = append(parts, "sqlstate "+e.SQLState)
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
