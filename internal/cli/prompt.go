package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PromptResult contains the result of a user prompt interaction.
type PromptResult struct {
	// Accepted is true if the user accepted the prompt (typed "y" or "yes").
	Accepted bool
	// Cancelled is true if reading the answer failed (e.g. the input stream
	// errored mid-read).
	Cancelled bool
}

// ConfirmRetry asks whether the errored cards should be re-submitted. The
// prompt defaults to "No": pressing Enter, Ctrl+D, or anything other than
// y/yes declines. Callers are expected to skip the prompt entirely in
// non-interactive runs.
func ConfirmRetry(writer io.Writer, reader io.Reader, failed int) PromptResult {
	fmt.Fprintf(writer, "\n? Retry %d failed card(s)? [y/N] ", failed)

	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if scanner.Err() != nil {
			return PromptResult{Cancelled: true}
		}
		// EOF without error: treat as decline.
		return PromptResult{Accepted: false}
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return PromptResult{Accepted: true}
	default:
		return PromptResult{Accepted: false}
	}
}
