package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/textlens/internal/budget"
	"github.com/Veraticus/textlens/internal/model"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 20

// Formatter renders domain results for terminal display.
type Formatter struct {
	// MaxItems caps every list section. Zero shows everything.
	MaxItems int
}

// NewFormatter creates a formatter showing at most ten items per section.
func NewFormatter() *Formatter {
	return &Formatter{MaxItems: 10}
}

// FormatAnalysis renders every populated section of an analysis result.
func (f *Formatter) FormatAnalysis(result *model.AnalysisResult) string {
	if result == nil {
		return FormatError("No analysis available")
	}

	sections := []string{f.formatAnalysisHeader(result)}

	if result.Sentiment != nil {
		sections = append(sections, f.formatSentiment(*result.Sentiment))
	}
	if len(result.Keywords) > 0 {
		sections = append(sections, f.formatKeywords(result.Keywords))
	}
	if len(result.Entities) > 0 {
		sections = append(sections, f.formatEntities(result.Entities))
	}
	if len(result.Concepts) > 0 {
		lines := make([]string, 0, len(result.Concepts))
		for _, c := range f.limit(len(result.Concepts)) {
			lines = append(lines, f.scoreLine(result.Concepts[c].Text, result.Concepts[c].Relevance))
		}
		sections = append(sections, f.section("Concepts", lines))
	}
	if len(result.Categories) > 0 {
		lines := make([]string, 0, len(result.Categories))
		for _, c := range f.limit(len(result.Categories)) {
			lines = append(lines, f.scoreLine(result.Categories[c].Label, result.Categories[c].Score))
		}
		sections = append(sections, f.section("Categories", lines))
	}
	if len(result.Classifications) > 0 {
		lines := make([]string, 0, len(result.Classifications))
		for _, c := range f.limit(len(result.Classifications)) {
			tone := result.Classifications[c]
			lines = append(lines, f.scoreLine(tone.ClassName, tone.Confidence))
		}
		sections = append(sections, f.section("Tone", lines))
	}
	if len(result.Emotion) > 0 {
		sections = append(sections, f.formatEmotion(result.Emotion))
	}
	if len(result.Relations) > 0 {
		sections = append(sections, f.formatRelations(result.Relations))
	}

	return strings.Join(sections, "\n\n")
}

func (f *Formatter) formatAnalysisHeader(result *model.AnalysisResult) string {
	title := TitleStyle.UnsetMargins().Render(ChartIcon + " Text Analysis")

	meta := "Provider: " + result.Provider
	if result.Language != "" {
		meta += "  Language: " + result.Language
	}
	if !result.AnalyzedAt.IsZero() {
		meta += "  " + result.AnalyzedAt.Format(time.RFC3339)
	}
	return title + "\n" + SubtleStyle.Render(meta)
}

func (f *Formatter) formatSentiment(s model.Sentiment) string {
	style, ok := sentimentStyles[s.Label]
	if !ok {
		style = InfoStyle
	}
	return BoldStyle.Render("Sentiment") + "\n" +
		style.Render(fmt.Sprintf("%s (%+.2f)", s.Label, s.Score))
}

func (f *Formatter) formatKeywords(keywords model.Keywords) string {
	lines := make([]string, 0, len(keywords))
	for _, i := range f.limit(len(keywords)) {
		kw := keywords[i]
		line := f.scoreLine(kw.Text, kw.Relevance)
		if kw.Count > 0 {
			line += SubtleStyle.Render(fmt.Sprintf(" x%d", kw.Count))
		}
		lines = append(lines, line)
	}
	return f.section("Keywords", lines)
}

func (f *Formatter) formatEntities(entities []model.Entity) string {
	lines := make([]string, 0, len(entities))
	for _, i := range f.limit(len(entities)) {
		e := entities[i]
		label := fmt.Sprintf("%s %s", e.Text, SubtleStyle.Render("("+e.Type+")"))
		lines = append(lines, f.scoreLine(label, e.Relevance))
	}
	return f.section("Entities", lines)
}

func (f *Formatter) formatEmotion(emotion map[string]float64) string {
	names := make([]string, 0, len(emotion))
	for name := range emotion {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if emotion[names[i]] != emotion[names[j]] {
			return emotion[names[i]] > emotion[names[j]]
		}
		return names[i] < names[j]
	})

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, f.scoreLine(name, emotion[name]))
	}
	return f.section("Emotion", lines)
}

func (f *Formatter) formatRelations(relations []model.Relation) string {
	lines := make([]string, 0, len(relations))
	for _, i := range f.limit(len(relations)) {
		r := relations[i]
		args := make([]string, 0, len(r.Arguments))
		for _, a := range r.Arguments {
			args = append(args, a.Text)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", HighlightStyle.Render(r.Type), strings.Join(args, " → ")))
	}
	return f.section("Relations", lines)
}

// FormatKeywordStatuses renders how each target keyword fared in the analysis.
func (f *Formatter) FormatKeywordStatuses(matches []model.KeywordMatch) string {
	if len(matches) == 0 {
		return FormatInfo("No target keywords given")
	}

	counts := make(map[model.KeywordStatus]int)
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		counts[m.Status]++
		lines = append(lines, statusLine(m))
	}

	summary := SubtleStyle.Render(fmt.Sprintf("%d exact, %d partial, %d relevant, %d missing",
		counts[model.KeywordExact], counts[model.KeywordPartial],
		counts[model.KeywordRelevant], counts[model.KeywordMissing]))

	return f.section("Target Keywords", lines) + "\n" + summary
}

func statusLine(m model.KeywordMatch) string {
	sm, ok := statusMarks[m.Status]
	if !ok {
		sm = statusMarks[model.KeywordMissing]
	}
	return sm.style.Render(sm.mark+" "+m.Keyword) + SubtleStyle.Render("  "+string(m.Status))
}

// FormatOptimization renders an optimization outcome with its caveat and cost.
func (f *Formatter) FormatOptimization(outcome *model.OptimizationOutcome) string {
	if outcome == nil {
		return FormatError("No optimization available")
	}

	title := fmt.Sprintf("%s Optimized with %s", RobotIcon, outcome.Model)
	if outcome.Kind == model.OutcomeDegraded {
		title = fmt.Sprintf("%s Fallback text (%s unavailable)", WarningIcon, outcome.Provider)
	}
	sections := []string{renderBox(title, outcome.Text)}

	if outcome.Caveat != "" {
		sections = append(sections, FormatWarning(outcome.Caveat))
	}

	if len(outcome.FocusKeywords) > 0 {
		focus := make([]string, 0, len(outcome.FocusKeywords))
		for _, kw := range outcome.FocusKeywords {
			focus = append(focus, HighlightStyle.Render(kw))
		}
		sections = append(sections, BoldStyle.Render("Focus: ")+strings.Join(focus, ", "))
	}

	if len(outcome.Statuses) > 0 {
		sections = append(sections, f.FormatKeywordStatuses(outcome.Statuses))
	}

	if outcome.Cost != nil {
		sections = append(sections, FormatCostRecord(*outcome.Cost))
	}

	return strings.Join(sections, "\n\n")
}

// FormatCostRecord renders a single tracked call.
func FormatCostRecord(r model.CostRecord) string {
	return SubtleStyle.Render(fmt.Sprintf("%s Estimated cost $%.6f (%d in / %d out tokens, %s)",
		MoneyIcon, r.EstimatedCost, r.EstimatedInputTokens, r.EstimatedOutputTokens, r.Model))
}

// FormatCostSummaries renders the per-provider budget table.
func (f *Formatter) FormatCostSummaries(summaries []budget.Summary) string {
	title := TitleStyle.UnsetMargins().Render(MoneyIcon + " LLM Costs")
	if len(summaries) == 0 {
		return title + "\n" + SubtleStyle.Render("No providers tracked")
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		tableCellStyle.Width(12).Render("Provider"),
		tableCellStyle.Width(8).Render("Calls"),
		tableCellStyle.Width(14).Render("Spent"),
		tableCellStyle.Width(14).Render("Remaining"),
	)
	rows := []string{title, tableHeaderStyle.Render(header)}

	for _, s := range summaries {
		remaining := SuccessStyle
		if s.Budget.Remaining <= 0 {
			remaining = ErrorStyle
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			tableCellStyle.Width(12).Render(string(s.Provider)),
			tableCellStyle.Width(8).Render(fmt.Sprintf("%d", s.Calls)),
			tableCellStyle.Width(14).Render(fmt.Sprintf("$%.4f", s.Budget.TotalSpent)),
			tableCellStyle.Width(14).Render(remaining.Render(fmt.Sprintf("$%.4f", s.Budget.Remaining))),
		)
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

// FormatHistory renders the tracked calls of one provider, newest first.
func (f *Formatter) FormatHistory(p model.Provider, records []model.CostRecord) string {
	title := BoldStyle.Render(fmt.Sprintf("History for %s", p))
	if len(records) == 0 {
		return title + "\n" + SubtleStyle.Render("No calls recorded")
	}

	sorted := make([]model.CostRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	lines := []string{title}
	for _, i := range f.limit(len(sorted)) {
		r := sorted[i]
		lines = append(lines, fmt.Sprintf("%s  %-28s $%.6f",
			SubtleStyle.Render(r.Timestamp.Format("2006-01-02 15:04")), r.Model, r.EstimatedCost))
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) section(title string, lines []string) string {
	return BoldStyle.Render(title) + "\n" + strings.Join(lines, "\n")
}

// limit returns the indexes to show for a list of n items.
func (f *Formatter) limit(n int) []int {
	if f.MaxItems > 0 && n > f.MaxItems {
		n = f.MaxItems
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func (f *Formatter) scoreLine(label string, score float64) string {
	return fmt.Sprintf("%s %s %s", scoreBar(score), SubtleStyle.Render(fmt.Sprintf("%.2f", score)), label)
}

// scoreBar draws a fixed-width bar for a score in [0, 1].
func scoreBar(score float64) string {
	switch {
	case score < 0:
		score = 0
	case score > 1:
		score = 1
	}
	filled := int(float64(barWidth) * score)
	return BarStyle.Render(strings.Repeat("█", filled)) +
		SubtleStyle.Render(strings.Repeat("░", barWidth-filled))
}
