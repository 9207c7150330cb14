package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cardlift/cardlift/internal/config"
	"github.com/cardlift/cardlift/internal/gallery"
	"github.com/cardlift/cardlift/internal/logging"
	"github.com/cardlift/cardlift/internal/manifest"
	"github.com/cardlift/cardlift/internal/tui"
	"github.com/cardlift/cardlift/internal/upload"
)

// Output formats supported by the upload command.
const (
	outputTable = "table"
	outputJSON  = "json"
)

// Process exit codes carried by ExitError.
const (
	// exitFailedCards: the run finished but cards remain blocked or errored,
	// or the upload was cancelled before completion.
	exitFailedCards = 1

	// exitBadInvocation: a precondition or configuration error; nothing was
	// submitted.
	exitBadInvocation = 2
)

// ExitError is a sentinel error that carries a specific process exit code
// through Cobra's error return. cmd/cardlift extracts the code in main.
type ExitError struct {
	ExitCode int
	Reason   string
}

func (e *ExitError) Error() string {
	return e.Reason
}

// usageError wraps a precondition or configuration failure as an ExitError
// with the bad-invocation exit code.
func usageError(format string, args ...any) *ExitError {
	return &ExitError{ExitCode: exitBadInvocation, Reason: fmt.Sprintf(format, args...)}
}

// uploadParams holds the flag values for the upload command.
type uploadParams struct {
	manifestPath string
	series       string
	rarity       string
	explicit     bool
	batchSize    int
	endpoint     string
	token        string
	timeout      time.Duration
	rateLimit    float64
	plain        bool
	output       string
	retry        bool
	yes          bool
}

// NewUploadCmd creates the upload command.
//
// Cards come either from file and directory arguments (metadata from the
// --series/--rarity/--explicit defaults, names derived from filenames) or
// from a YAML manifest with per-card overrides. Cards are submitted to the
// gallery in batches; each card ends up accepted, flagged for review, blocked
// as a confirmed duplicate, or errored. Errored cards can be retried, blocked
// ones never are.
func NewUploadCmd() *cobra.Command {
	var params uploadParams

	cmd := &cobra.Command{
		Use:   "upload [files or directories]",
		Short: "Upload card images to the gallery in batches",
		Long: `Uploads card images with metadata to the gallery service.

Cards are submitted in bounded batches, one exchange in flight at a time.
After the run each card is in exactly one bucket: accepted, warning (possible
duplicate, held for review), blocked (confirmed duplicate), or error. Only
errored cards are eligible for retry.

On a terminal the upload renders a live progress view; q or ctrl+c cancels
after the current batch. Piped output falls back to plain log lines.`,
		Example: uploadCmdExample,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeUpload(cmd, params, args)
		},
	}

	cmd.Flags().StringVarP(&params.manifestPath, "manifest", "m", "",
		"YAML manifest listing cards and metadata (mutually exclusive with file arguments)")
	cmd.Flags().StringVar(&params.series, "series", "", "series applied to cards without one")
	cmd.Flags().StringVar(&params.rarity, "rarity", "common",
		"rarity applied to cards without one: common, uncommon, rare, epic, legendary")
	cmd.Flags().BoolVar(&params.explicit, "explicit", false, "mark cards without an explicit flag as explicit")
	cmd.Flags().IntVar(&params.batchSize, "batch-size", 0, "cards per batch exchange (0 = use config default)")
	cmd.Flags().StringVar(&params.endpoint, "endpoint", "", "gallery base URL (overrides config)")
	cmd.Flags().StringVar(&params.token, "token", "", "gallery bearer token (overrides config)")
	cmd.Flags().DurationVar(&params.timeout, "timeout", 0, "per-batch exchange timeout (overrides config)")
	cmd.Flags().Float64Var(&params.rateLimit, "rate-limit", 0, "max batches per second, 0 = unpaced (overrides config)")
	cmd.Flags().BoolVar(&params.plain, "plain", false, "disable the live progress view")
	cmd.Flags().StringVarP(&params.output, "output", "o", outputTable, "output format: table or json")
	cmd.Flags().BoolVar(&params.retry, "retry", false, "automatically retry errored cards once")
	cmd.Flags().BoolVar(&params.yes, "yes", false, "never prompt; skip the interactive retry question")

	return cmd
}

const uploadCmdExample = `  # Upload a directory of images as common cards of one series
  cardlift upload --series "Neon Drift" ./cards

  # Upload specific files with a rarity
  cardlift upload --series "Neon Drift" --rarity rare miko.png rex.png

  # Upload from a manifest
  cardlift upload --manifest cards.yaml

  # Script-friendly: no prompt, machine-readable result
  cardlift upload --manifest cards.yaml --output json --yes

  # Auto-retry transient failures once
  cardlift upload --manifest cards.yaml --retry`

// executeUpload runs one upload session end to end: resolve configuration,
// build the items, run the session (live view or plain), offer a retry of
// errored cards, render the final state, and map it to an exit code.
func executeUpload(cmd *cobra.Command, params uploadParams, args []string) error {
	ctx := cmd.Context()

	if params.output != outputTable && params.output != outputJSON {
		return usageError("unsupported output format %q (want table or json)", params.output)
	}

	cfg := applyUploadFlags(cmd, params)
	if err := cfg.Validate(); err != nil {
		return usageError("invalid configuration: %v", err)
	}
	if cfg.Gallery.Endpoint == "" {
		return usageError("no gallery endpoint configured (set gallery.endpoint, %s, or --endpoint)", config.EnvEndpoint)
	}
	if cfg.Gallery.Token == "" {
		return usageError("no gallery token configured (set gallery.token, %s, or --token)", config.EnvToken)
	}

	items, err := buildItems(ctx, params, args)
	if err != nil {
		return usageError("%v", err)
	}

	client, err := gallery.New(gallery.Config{
		Endpoint:      cfg.Gallery.Endpoint,
		Tokens:        gallery.StaticToken(cfg.Gallery.Token),
		Timeout:       cfg.Gallery.TimeoutDuration(),
		APIConstraint: cfg.Gallery.APIConstraint,
		StrictVersion: cfg.Gallery.StrictAPI,
	})
	if err != nil {
		return usageError("%v", err)
	}

	logger.Info().
		Int("cards", len(items)).
		Int("batch_size", cfg.Upload.BatchSize).
		Str("endpoint", cfg.Gallery.Endpoint).
		Msg("starting upload")

	interactive := params.output == outputTable && !params.plain && tui.IsTerminal(cmd.OutOrStdout())

	sess, res, err := runSession(ctx, cmd, client, cfg, items, interactive)
	if err != nil {
		if errors.Is(err, upload.ErrNoItems) || errors.Is(err, upload.ErrInvalidBatchSize) {
			return usageError("%v", err)
		}
		return err
	}
	elapsed := sess.Elapsed()

	if params.output == outputJSON {
		if params.retry && wantRetry(res) {
			retryRes, retryErr := sess.RetryFailed(ctx, items)
			if retryErr != nil {
				return retryErr
			}
			res = combineResults(res, retryRes)
			elapsed += sess.Elapsed()
		}
		if err := writeResultJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		return exitStatus(sess, res)
	}

	printSummary(cmd, res, len(items), elapsed)

	if wantRetry(res) && shouldRetry(cmd, params, interactive, retryableErrorCount(res.BlockedOrErrors)) {
		retryRes, retryErr := sess.RetryFailed(ctx, items)
		if retryErr != nil {
			return retryErr
		}
		res = combineResults(res, retryRes)
		elapsed += sess.Elapsed()

		cmd.Println()
		printSummary(cmd, res, len(items), elapsed)
	}

	return exitStatus(sess, res)
}

// applyUploadFlags overlays explicitly set upload flags onto the resolved
// global configuration. Flags beat environment variables and config files.
func applyUploadFlags(cmd *cobra.Command, params uploadParams) *config.Config {
	cfg := config.GetGlobalConfig()
	flags := cmd.Flags()

	if flags.Changed("endpoint") {
		cfg.Gallery.Endpoint = params.endpoint
	}
	if flags.Changed("token") {
		cfg.Gallery.Token = params.token
	}
	if flags.Changed("timeout") {
		cfg.Gallery.Timeout = params.timeout.String()
	}
	if flags.Changed("batch-size") && params.batchSize != 0 {
		cfg.Upload.BatchSize = params.batchSize
	}
	if flags.Changed("rate-limit") {
		cfg.Upload.RateLimit = params.rateLimit
	}
	return cfg
}

// buildItems assembles the upload items from a manifest or from path
// arguments, whichever the invocation provided.
func buildItems(ctx context.Context, params uploadParams, args []string) ([]upload.Item, error) {
	if params.manifestPath != "" {
		if len(args) > 0 {
			return nil, errors.New("pass either --manifest or file arguments, not both")
		}
		m, err := manifest.Load(params.manifestPath)
		if err != nil {
			return nil, err
		}
		return m.Items(ctx, filepath.Dir(params.manifestPath))
	}

	if len(args) == 0 {
		return nil, errors.New("nothing to upload: pass image files or directories, or --manifest")
	}
	return manifest.FromPaths(ctx, args, manifest.Defaults{
		Series:   params.series,
		Rarity:   params.rarity,
		Explicit: params.explicit,
	})
}

// runSession creates the session with the observer matching the output mode
// and runs it to completion. In interactive mode the session runs on its own
// goroutine while Bubble Tea owns the terminal; the session's observer feeds
// the view and the view's cancel key trips the session.
func runSession(
	ctx context.Context,
	cmd *cobra.Command,
	client *gallery.Client,
	cfg *config.Config,
	items []upload.Item,
	interactive bool,
) (*upload.Session, *upload.Result, error) {
	opts := []upload.Option{
		upload.WithBatchSize(cfg.Upload.BatchSize),
		upload.WithRateLimit(cfg.Upload.RateLimit),
	}

	if !interactive {
		obs := tui.NewLogObserver(logging.ComponentLogger(*logging.FromContext(ctx), "upload"))
		sess, err := upload.NewSession(client, append(opts, upload.WithObserver(obs))...)
		if err != nil {
			return nil, nil, err
		}
		res, err := sess.Start(ctx, items)
		return sess, res, err
	}

	// The model needs the cancel hook before the session exists, and the
	// session needs the program's Send as its observer; close over the
	// session pointer to break the cycle.
	var sess *upload.Session
	model := tui.NewUploadModel(len(items), func() {
		if sess != nil {
			sess.Cancel()
		}
	})
	program := tea.NewProgram(model, tea.WithOutput(cmd.OutOrStdout()))

	sess, err := upload.NewSession(client, append(opts, upload.WithObserver(tui.ProgramObserver(program.Send)))...)
	if err != nil {
		return nil, nil, err
	}

	go func() {
		res, startErr := sess.Start(ctx, items)
		program.Send(tui.UploadDoneMsg{Result: res, Err: startErr})
	}()

	finalModel, runErr := program.Run()
	if runErr != nil {
		sess.Cancel()
		return nil, nil, fmt.Errorf("running upload view: %w", runErr)
	}

	final, ok := finalModel.(tui.UploadModel)
	if !ok {
		sess.Cancel()
		return nil, nil, fmt.Errorf("unexpected model type %T from upload view", finalModel)
	}

	res, err := final.Final()
	if res == nil && err == nil {
		// Second ctrl+c: the view was abandoned before the session returned.
		// The in-flight batch may still complete server-side.
		sess.Cancel()
		return nil, nil, &ExitError{ExitCode: exitFailedCards, Reason: "upload abandoned before completion"}
	}
	return sess, res, err
}

// wantRetry reports whether a retry pass would do anything: the run was not
// cancelled and at least one errored card is eligible.
func wantRetry(res *upload.Result) bool {
	return !res.Cancelled && retryableErrorCount(res.BlockedOrErrors) > 0
}

// shouldRetry decides whether to run the retry pass: --retry always retries,
// --yes (or a non-interactive run) never prompts, otherwise the user is
// asked.
func shouldRetry(cmd *cobra.Command, params uploadParams, interactive bool, failed int) bool {
	if params.retry {
		return true
	}
	if params.yes || !interactive {
		return false
	}
	return ConfirmRetry(cmd.OutOrStdout(), cmd.InOrStdin(), failed).Accepted
}

// retryableErrorCount counts the records a retry pass would re-submit:
// errors with a known item id, never confirmed duplicates.
func retryableErrorCount(records []upload.Record) int {
	n := 0
	for _, rec := range records {
		if rec.Bucket == upload.BucketError && rec.ItemID != "" {
			n++
		}
	}
	return n
}

// combineResults folds a retry pass into the first pass's result so that
// summaries, JSON output, and the exit code describe the whole invocation.
// The session itself only holds the latest run; errored records that were
// re-submitted are superseded by the retry's records, everything else from
// the first pass carries over.
func combineResults(first, retry *upload.Result) *upload.Result {
	combined := &upload.Result{
		Success:      retry.Success,
		Cancelled:    retry.Cancelled,
		Message:      retry.Message,
		TotalCreated: first.TotalCreated + retry.TotalCreated,
		Accepted:     append(append([]upload.Record(nil), first.Accepted...), retry.Accepted...),
		Warnings:     append(append([]upload.Record(nil), first.Warnings...), retry.Warnings...),
	}

	for _, rec := range first.BlockedOrErrors {
		if rec.Bucket == upload.BucketError && rec.ItemID != "" {
			continue // re-submitted; the retry pass owns its fate now
		}
		combined.BlockedOrErrors = append(combined.BlockedOrErrors, rec)
	}
	combined.BlockedOrErrors = append(combined.BlockedOrErrors, retry.BlockedOrErrors...)
	return combined
}

// printSummary renders the styled result summary to the command's stdout.
func printSummary(cmd *cobra.Command, res *upload.Result, total int, elapsed time.Duration) {
	cmd.Print(tui.RenderUploadSummary(res, total, elapsed, tui.TerminalWidth(cmd.OutOrStdout())))
}

// writeResultJSON emits the structured result as one indented JSON document.
func writeResultJSON(w io.Writer, res *upload.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}

// exitStatus maps the invocation's final state to the command's error
// return: nil for success or warnings-only, an ExitError otherwise.
func exitStatus(sess *upload.Session, res *upload.Result) error {
	if res.Cancelled {
		return &ExitError{ExitCode: exitFailedCards, Reason: "upload cancelled before completion"}
	}
	if sess.Status() == upload.StatusError {
		return &ExitError{ExitCode: exitFailedCards, Reason: res.Message}
	}
	if remaining := len(res.BlockedOrErrors); remaining > 0 {
		return &ExitError{ExitCode: exitFailedCards, Reason: fmt.Sprintf("%d card(s) were not uploaded", remaining)}
	}
	return nil
}
