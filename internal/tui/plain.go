package tui

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/cardlift/cardlift/internal/upload"
)

// IsTerminal reports whether w is connected to an interactive terminal. The
// upload command uses it to pick the live view over the plain reporter.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// NewLogObserver returns the plain fallback reporter: one log line per
// resolved batch, plus a line for every item that needs attention. Accepted
// items only appear at debug level to keep piped output quiet.
func NewLogObserver(logger zerolog.Logger) upload.Observer {
	return upload.ObserverFuncs{
		OnItemClassified: func(rec upload.Record) {
			name := itemDisplayName(rec)
			switch rec.Bucket {
			case upload.BucketAccepted:
				logger.Debug().
					Str("card", name).
					Msg("accepted")
			case upload.BucketWarning:
				logger.Warn().
					Str("card", name).
					Str("reason", rec.Message).
					Msg("needs review")
			case upload.BucketBlocked, upload.BucketError:
				logger.Error().
					Str("card", name).
					Str("reason", rec.Message).
					Bool("duplicate", rec.IsDuplicate).
					Msg("not uploaded")
			}
		},
		OnBatchComplete: func(batchIndex, batchCount int, outcome upload.Outcome) {
			logger.Info().
				Int("batch", batchIndex+1).
				Int("of", batchCount).
				Str("outcome", outcome.Kind.String()).
				Msg("batch resolved")
		},
	}
}
