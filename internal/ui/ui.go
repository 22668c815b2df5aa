// Package ui renders CLI output.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	querydomain "github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

var (
	// Out receives regular output.
	Out io.Writer = os.Stdout
	// Err receives error output.
	Err io.Writer = os.Stderr
)

var (
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// PrintHeader prints a boxed title.
func PrintHeader(title, subtitle string) {
	header := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 2).
		Render(lipgloss.JoinVertical(
			lipgloss.Left,
			TitleStyle.Render(title),
			SecondaryStyle.Render(subtitle),
		))
	fmt.Fprintln(Out, header)
}

// PrintSuccess prints a success message.
func PrintSuccess(format string, args ...any) {
	fmt.Fprintln(Out, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error message.
func PrintError(format string, args ...any) {
	fmt.Fprintln(Err, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message.
func PrintWarning(format string, args ...any) {
	fmt.Fprintln(Out, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// PrintInfo prints an info message.
func PrintInfo(format string, args ...any) {
	fmt.Fprintln(Out, SecondaryStyle.Render(fmt.Sprintf(format, args...)))
}

// PrintTable prints a table with a header row.
func PrintTable(headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, s)
	return nil
}

// PrintStatus prints migration status entries as a table.
func PrintStatus(entries []domain.StatusEntry) error {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		batch, applied := "-", "-"
		if e.Batch > 0 {
			batch = fmt.Sprint(e.Batch)
		}
		if e.AppliedAt != nil {
			applied = e.AppliedAt.Local().Format("2006-01-02 15:04:05")
		}
		rows[i] = []string{e.Name, StatusLabel(e.Status), batch, applied}
	}
	return PrintTable([]string{"Migration", "Status", "Batch", "Applied At"}, rows)
}

// StatusLabel colors a migration status.
func StatusLabel(s domain.MigrationStatus) string {
	switch s {
	case domain.Applied:
		return color.New(color.FgGreen).Sprint(string(s))
	case domain.Modified:
		return color.New(color.FgYellow, color.Bold).Sprint(string(s))
	default:
		return color.New(color.FgCyan).Sprint(string(s))
	}
}

// PrintStatements prints compiled statements under a heading, one per
// line, with their binds.
func PrintStatements(title string, stmts []querydomain.SQL) {
	fmt.Fprintln(Out, color.New(color.FgCyan, color.Bold).Sprint("-- "+title))
	for _, s := range stmts {
		line := s.Statement + ";"
		if len(s.Binds) > 0 {
			binds := make([]string, len(s.Binds))
			for i, b := range s.Binds {
				binds[i] = fmt.Sprint(b)
			}
			line += SecondaryStyle.Render(" -- binds: " + strings.Join(binds, ", "))
		}
		fmt.Fprintln(Out, line)
	}
}
