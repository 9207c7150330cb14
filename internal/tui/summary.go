package tui

import (
	"io"
	"math"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cardlift/cardlift/internal/upload"
)

// Summary layout constants.
const (
	defaultSummaryWidth = 56
	minSummaryWidth     = 30
	narrowTermWidth     = 40
	summaryWidthPercent = 0.8
	summaryPadding      = 4 // borders plus inner padding
)

// TerminalWidth returns the column count of the terminal behind w, falling
// back to os.Stdout and finally to a fixed default when no terminal size can
// be determined (pipes, tests).
func TerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		width, _, err := term.GetSize(int(f.Fd()))
		if err == nil && width > 0 {
			return width
		}
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// RenderUploadSummary renders the post-run summary: a bordered box with the
// outcome, the per-bucket tallies, and throughput, followed by detail lines
// for every card that needs review or was not uploaded. total is the number
// of cards the invocation set out to upload; with a cancelled run it exceeds
// the classified count.
func RenderUploadSummary(res *upload.Result, total int, elapsed time.Duration, termWidth int) string {
	boxWidth := summaryBoxWidth(termWidth)
	p := message.NewPrinter(language.English)

	var content strings.Builder
	content.WriteString(summaryTitle(res))
	content.WriteString("\n")
	content.WriteString(strings.Repeat("─", boxWidth-summaryPadding))
	content.WriteString("\n\n")

	classified := len(res.Accepted) + len(res.Warnings) + len(res.BlockedOrErrors)
	content.WriteString(LabelStyle.Render("Cards: ") + ValueStyle.Render(p.Sprintf("%d of %d processed", classified, total)))
	content.WriteString("\n")
	content.WriteString(summaryCountsLine(p, res))
	content.WriteString("\n")
	content.WriteString(LabelStyle.Render("Elapsed: ") + ValueStyle.Render(summaryRateLine(p, classified, elapsed)))

	if res.Message != "" && !res.Success && !res.Cancelled {
		content.WriteString("\n\n")
		content.WriteString(CriticalStyle.Render(res.Message))
	}

	var out strings.Builder
	out.WriteString(BoxStyle.Width(boxWidth).Render(content.String()))
	out.WriteString("\n")

	if len(res.Warnings) > 0 {
		out.WriteString("\n")
		out.WriteString(WarningStyle.Render("Needs review:"))
		out.WriteString("\n")
		for _, rec := range res.Warnings {
			out.WriteString(renderItemLine(rec))
			out.WriteString("\n")
		}
	}

	if len(res.BlockedOrErrors) > 0 {
		out.WriteString("\n")
		out.WriteString(CriticalStyle.Render("Not uploaded:"))
		out.WriteString("\n")
		for _, rec := range res.BlockedOrErrors {
			out.WriteString(renderItemLine(rec))
			out.WriteString("\n")
		}
	}

	return out.String()
}

// summaryTitle picks the box title from the run's terminal state.
func summaryTitle(res *upload.Result) string {
	switch {
	case res.Cancelled:
		return WarningStyle.Bold(true).Render("UPLOAD CANCELLED")
	case !res.Success:
		return CriticalStyle.Bold(true).Render("UPLOAD FAILED")
	default:
		return HeaderStyle.Render("UPLOAD COMPLETE")
	}
}

// summaryCountsLine renders the per-bucket tallies, mirroring the live view.
func summaryCountsLine(p *message.Printer, res *upload.Result) string {
	parts := []string{
		OKStyle.Render(p.Sprintf("%s %d accepted", IconAccepted, len(res.Accepted))),
		WarningStyle.Render(p.Sprintf("%s %d warnings", IconWarning, len(res.Warnings))),
		CriticalStyle.Render(p.Sprintf("%s %d blocked/errors", IconBlocked, len(res.BlockedOrErrors))),
	}
	return strings.Join(parts, "  ")
}

// summaryRateLine formats the elapsed time and throughput.
func summaryRateLine(p *message.Printer, classified int, elapsed time.Duration) string {
	rounded := elapsed.Round(100 * time.Millisecond)
	if rounded <= 0 || classified == 0 {
		return rounded.String()
	}
	rate := float64(classified) / elapsed.Seconds()
	return p.Sprintf("%s (%.1f cards/s)", rounded, rate)
}

// summaryBoxWidth sizes the box to roughly 80% of the terminal, clamped to
// the layout bounds.
func summaryBoxWidth(termWidth int) int {
	if termWidth < narrowTermWidth {
		return minSummaryWidth
	}
	width := int(math.Round(float64(termWidth) * summaryWidthPercent))
	width = min(width, defaultSummaryWidth)
	return max(width, minSummaryWidth)
}
