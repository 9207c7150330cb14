package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cardlift/cardlift/internal/upload"
)

// maxItemLineLen keeps recent-item lines from wrapping on narrow terminals.
const maxItemLineLen = 70

// View renders the current view (Bubble Tea interface).
func (m UploadModel) View() string {
	if m.state == UploadStateDone {
		// The command layer prints the final summary after the program exits.
		return ""
	}

	var sections []string

	sections = append(sections, HeaderStyle.Render("UPLOADING CARDS"))
	sections = append(sections, m.renderProgressLine())
	sections = append(sections, m.renderCountsLine())

	if batch := m.renderBatchLine(); batch != "" {
		sections = append(sections, batch)
	}

	if len(m.recent) > 0 {
		sections = append(sections, "", m.renderRecentItems())
	}

	sections = append(sections, "", m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// renderProgressLine renders the bar with a processed/total readout.
func (m UploadModel) renderProgressLine() string {
	counter := fmt.Sprintf("%d/%d", m.processed, m.total)
	return m.bar.View() + " " + ValueStyle.Render(counter)
}

// renderCountsLine renders the per-bucket tallies.
func (m UploadModel) renderCountsLine() string {
	parts := []string{
		OKStyle.Render(fmt.Sprintf("%s %d accepted", IconAccepted, m.accepted)),
		WarningStyle.Render(fmt.Sprintf("%s %d warnings", IconWarning, m.warnings)),
		CriticalStyle.Render(fmt.Sprintf("%s %d blocked/errors", IconBlocked, m.blockedOrErrors)),
	}
	return strings.Join(parts, LabelStyle.Render("  "))
}

// renderBatchLine shows which batch is in flight, with the spinner while the
// session is still running.
func (m UploadModel) renderBatchLine() string {
	if m.batchCount == 0 {
		if m.state == UploadStateRunning {
			return m.spin.View() + LabelStyle.Render(" starting upload")
		}
		return ""
	}

	label := fmt.Sprintf("Batch %d/%d", m.batchDone, m.batchCount)
	if m.state == UploadStateRunning && m.batchDone < m.batchCount {
		return m.spin.View() + LabelStyle.Render(" "+label)
	}
	return LabelStyle.Render(label)
}

// renderRecentItems renders the rolling list of last-classified items,
// newest last.
func (m UploadModel) renderRecentItems() string {
	lines := make([]string, 0, len(m.recent))
	for _, rec := range m.recent {
		lines = append(lines, renderItemLine(rec))
	}
	return strings.Join(lines, "\n")
}

// renderItemLine renders one classified item with its bucket marker.
func renderItemLine(rec upload.Record) string {
	name := itemDisplayName(rec)

	var line string
	switch rec.Bucket {
	case upload.BucketAccepted:
		line = OKStyle.Render(IconAccepted) + " " + ValueStyle.Render(name)
	case upload.BucketWarning:
		detail := rec.Message
		if detail == "" && rec.ExistingMatch != nil {
			detail = "possible duplicate of " + rec.ExistingMatch.Name
		}
		line = WarningStyle.Render(IconWarning) + " " + ValueStyle.Render(name)
		if detail != "" {
			line += LabelStyle.Render(": " + detail)
		}
	case upload.BucketBlocked, upload.BucketError:
		line = CriticalStyle.Render(IconBlocked) + " " + ValueStyle.Render(name)
		if rec.Message != "" {
			line += LabelStyle.Render(": " + rec.Message)
		}
	}

	return "  " + truncateLine(line, maxItemLineLen)
}

// itemDisplayName prefers the created entity's name, then the warning name,
// then the filename.
func itemDisplayName(rec upload.Record) string {
	if rec.Entity != nil && rec.Entity.Name != "" {
		return rec.Entity.Name
	}
	if rec.EntityName != "" {
		return rec.EntityName
	}
	if rec.Filename != "" {
		return rec.Filename
	}
	return rec.ItemID
}

// renderStatusBar shows the cancel state or the keybinding hint.
func (m UploadModel) renderStatusBar() string {
	if m.state == UploadStateCancelling {
		return WarningStyle.Render("Cancelling, waiting for the current batch (ctrl+c again to abandon)")
	}
	return SubtleStyle.Render("q/ctrl+c: cancel")
}

// truncateLine truncates a rendered line to maxLen visible cells.
func truncateLine(s string, maxLen int) string {
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(maxLen).Render(s)
}
