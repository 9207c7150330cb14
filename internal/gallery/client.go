package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/cardlift/cardlift/internal/logging"
	"github.com/cardlift/cardlift/internal/upload"
)

// Wire constants for the batch upload exchange.
const (
	// BatchUploadPath is the endpoint-relative path batches are posted to.
	BatchUploadPath = "/api/characters/batch"

	// APIVersionHeader carries the server's API version on every response.
	APIVersionHeader = "X-Gallery-Api-Version"

	// FilesField is the multipart field name of every blob part.
	FilesField = "images"

	// MetadataField is the multipart field holding the JSON metadata array.
	MetadataField = "metadata"

	// DefaultTimeout bounds a single exchange when none is configured.
	DefaultTimeout = 60 * time.Second

	// DefaultAPIConstraint is the server version range this client speaks.
	DefaultAPIConstraint = "^1"

	// maxErrorBody caps how much of a failure body is read into a message.
	maxErrorBody = 4096
)

// Client construction errors.
var (
	ErrNoEndpoint          = errors.New("no gallery endpoint configured")
	ErrVersionIncompatible = errors.New("gallery API version incompatible")
)

// Config configures a Client.
type Config struct {
	// Endpoint is the gallery base URL, e.g. "https://gallery.example.com".
	Endpoint string

	// Tokens supplies the bearer token per exchange.
	Tokens TokenSource

	// Timeout bounds each exchange. Zero means DefaultTimeout; negative
	// disables the per-exchange deadline entirely.
	Timeout time.Duration

	// APIConstraint is the semver range of server versions this client
	// accepts. Empty means DefaultAPIConstraint.
	APIConstraint string

	// StrictVersion fails the exchange on an incompatible server version
	// instead of logging a warning.
	StrictVersion bool

	// HTTPClient overrides the transport used for exchanges.
	HTTPClient *http.Client
}

// Client speaks the gallery batch upload protocol. It implements
// upload.Transport and is safe for use by concurrent sessions.
type Client struct {
	endpoint   string
	tokens     TokenSource
	timeout    time.Duration
	constraint *semver.Constraints
	rawRange   string
	strict     bool
	httpc      *http.Client

	versionWarned atomic.Bool
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid gallery endpoint %q: %w", cfg.Endpoint, err)
	}

	rawRange := cfg.APIConstraint
	if rawRange == "" {
		rawRange = DefaultAPIConstraint
	}
	constraint, err := semver.NewConstraint(rawRange)
	if err != nil {
		return nil, fmt.Errorf("invalid API version constraint %q: %w", rawRange, err)
	}

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = StaticToken("")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{}
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		tokens:     tokens,
		timeout:    timeout,
		constraint: constraint,
		rawRange:   rawRange,
		strict:     cfg.StrictVersion,
		httpc:      httpc,
	}, nil
}

// SendBatch posts one batch as a single multipart exchange and maps the
// response to an upload.Outcome. Cancellation is honored both before the
// exchange is issued and while it is in flight; in both cases the outcome is
// Aborted, never Failure. The error return is reserved for unmodeled
// failures such as a missing credential or an undecodable response body.
func (c *Client) SendBatch(ctx context.Context, batch upload.Batch) (upload.Outcome, error) {
	if ctx.Err() != nil {
		return upload.Outcome{Kind: upload.OutcomeAborted}, nil
	}

	logger := logging.FromContext(ctx).With().
		Str("component", "gallery").
		Int("batch", batch.Index).
		Int("items", len(batch.Items)).
		Logger()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return upload.Outcome{}, fmt.Errorf("get gallery token: %w", err)
	}

	body, contentType, err := buildBatchPayload(batch)
	if err != nil {
		return upload.Outcome{}, err
	}

	exCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		exCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(exCtx, http.MethodPost, c.endpoint+BatchUploadPath, body)
	if err != nil {
		return upload.Outcome{}, fmt.Errorf("build batch request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		// The caller cancelling mid-flight is an abort. A per-exchange
		// timeout while the caller is still live is an ordinary failure.
		if ctx.Err() != nil {
			logger.Debug().Msg("exchange aborted by caller")
			return upload.Outcome{Kind: upload.OutcomeAborted}, nil
		}
		logger.Warn().Err(err).Msg("exchange failed")
		return upload.Outcome{Kind: upload.OutcomeFailure, Message: err.Error()}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("batch exchange finished")

	if verr := c.checkAPIVersion(ctx, resp.Header.Get(APIVersionHeader)); verr != nil {
		return upload.Outcome{}, verr
	}

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		var decoded batchResponse
		if derr := json.NewDecoder(resp.Body).Decode(&decoded); derr != nil {
			return upload.Outcome{}, fmt.Errorf("decode batch response: %w", derr)
		}
		return upload.Outcome{
			Kind:         upload.OutcomeOK,
			Created:      decoded.Characters,
			ServerErrors: decoded.Errors,
			Warning:      decoded.Warning,
		}, nil

	case resp.StatusCode == http.StatusConflict:
		var decoded conflictResponse
		if derr := json.NewDecoder(resp.Body).Decode(&decoded); derr != nil {
			return upload.Outcome{}, fmt.Errorf("decode conflict response: %w", derr)
		}
		return upload.Outcome{
			Kind:          upload.OutcomeConflict,
			Message:       decoded.Error,
			DuplicateType: decoded.DuplicateType,
			ExistingMatch: decoded.ExistingCharacter,
		}, nil

	default:
		return upload.Outcome{
			Kind:    upload.OutcomeFailure,
			Message: failureMessage(resp),
		}, nil
	}
}

// batchResponse is the success body of a batch upload. The entity and error
// shapes are shared with the upload package, whose JSON tags match the wire.
type batchResponse struct {
	Characters []upload.CreatedEntity `json:"characters"`
	Warning    string                 `json:"warning,omitempty"`
	Errors     []upload.ServerError   `json:"errors,omitempty"`
}

// conflictResponse is the body of a batch-level duplicate rejection.
type conflictResponse struct {
	Error             string           `json:"error"`
	DuplicateType     string           `json:"duplicateType"`
	ExistingCharacter *upload.MatchRef `json:"existingCharacter,omitempty"`
}

// buildBatchPayload assembles the multipart body: one file part per item
// under FilesField, then a single MetadataField with the JSON array of
// per-item metadata, index-aligned with the file parts.
func buildBatchPayload(batch upload.Batch) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, it := range batch.Items {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			FilesField, escapeQuotes(it.Blob.Filename)))
		if it.Blob.MIMEType != "" {
			h.Set("Content-Type", it.Blob.MIMEType)
		}

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %q: %w", it.Blob.Filename, err)
		}
		if _, err := part.Write(it.Blob.Data); err != nil {
			return nil, "", fmt.Errorf("write file part %q: %w", it.Blob.Filename, err)
		}
	}

	metadata := make([]upload.Metadata, 0, len(batch.Items))
	for _, it := range batch.Items {
		metadata = append(metadata, it.Metadata())
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := w.WriteField(MetadataField, string(metaJSON)); err != nil {
		return nil, "", fmt.Errorf("write metadata field: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart payload: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// checkAPIVersion compares the server-reported version against the accepted
// range. Outside strict mode a mismatch is logged once and tolerated.
func (c *Client) checkAPIVersion(ctx context.Context, reported string) error {
	if reported == "" {
		return nil
	}

	v, err := semver.NewVersion(reported)
	if err != nil {
		logging.FromContext(ctx).Warn().
			Str("component", "gallery").
			Str("api_version", reported).
			Msg("server reported an unparsable API version")
		return nil
	}

	if c.constraint.Check(v) {
		return nil
	}

	if c.strict {
		return fmt.Errorf("%w: server reports %s, client accepts %s",
			ErrVersionIncompatible, reported, c.rawRange)
	}

	if c.versionWarned.CompareAndSwap(false, true) {
		logging.FromContext(ctx).Warn().
			Str("component", "gallery").
			Str("api_version", reported).
			Str("supported", c.rawRange).
			Msg("gallery API version outside supported range")
	}
	return nil
}

// failureMessage summarizes a non-success response, reading at most
// maxErrorBody bytes of the body.
func failureMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body := strings.TrimSpace(string(data))
	if body == "" {
		return fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, body)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
