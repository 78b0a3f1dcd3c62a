// Package cli renders analysis, optimization and cost output for the terminal using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/textlens/internal/model"
)

var (
	accentColor   = lipgloss.Color("#7C83FD")
	positiveColor = lipgloss.Color("#4ECDC4")
	cautionColor  = lipgloss.Color("#FFE66D")
	negativeColor = lipgloss.Color("#FF6B6B")
	neutralColor  = lipgloss.Color("#95E1D3")
	mutedColor    = lipgloss.Color("#666666")
	borderColor   = lipgloss.Color("#333")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor).MarginBottom(1)
	// HighlightStyle marks keywords and model names inside prose.
	HighlightStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	// BarStyle fills score bars.
	BarStyle = lipgloss.NewStyle().Foreground(accentColor)

	SuccessStyle = lipgloss.NewStyle().Foreground(positiveColor)
	WarningStyle = lipgloss.NewStyle().Foreground(cautionColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(negativeColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(neutralColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	BoldStyle    = lipgloss.NewStyle().Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(1, 2)
	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(borderColor)
	tableCellStyle = lipgloss.NewStyle().PaddingRight(2)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	LensIcon    = "🔍"
	RobotIcon   = "🤖"
	ChartIcon   = "📊"
	MoneyIcon   = "💰"
)

type statusMark struct {
	style lipgloss.Style
	mark  string
}

// statusMarks is how each keyword status is drawn, strongest first.
var statusMarks = map[model.KeywordStatus]statusMark{
	model.KeywordExact:    {mark: SuccessIcon, style: SuccessStyle},
	model.KeywordPartial:  {mark: "◐", style: InfoStyle},
	model.KeywordRelevant: {mark: "~", style: WarningStyle},
	model.KeywordMissing:  {mark: ErrorIcon, style: ErrorStyle},
}

// sentimentStyles colors a sentiment label; anything else is neutral.
var sentimentStyles = map[string]lipgloss.Style{
	"positive": SuccessStyle,
	"negative": ErrorStyle,
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle heads the output for one analyzed input.
func FormatTitle(title string) string {
	return TitleStyle.Render(LensIcon + " " + title)
}

func renderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.UnsetMargins().Render(title),
		content,
	))
}
