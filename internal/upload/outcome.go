package upload

// OutcomeKind discriminates the modeled results of one batch exchange.
type OutcomeKind int

// Batch exchange outcomes.
const (
	// OutcomeOK is an exchange-level success; individual items may still
	// carry warnings or appear in ServerErrors.
	OutcomeOK OutcomeKind = iota

	// OutcomeConflict is a batch-level confirmed-duplicate rejection.
	OutcomeConflict

	// OutcomeFailure is any other non-success response or network failure.
	OutcomeFailure

	// OutcomeAborted means cancellation was observed before or during the
	// exchange. The session stops instead of classifying remaining items.
	OutcomeAborted
)

// String returns the kind for logs.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeConflict:
		return "conflict"
	case OutcomeFailure:
		return "failure"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// MatchRef identifies an existing gallery entity an upload collided with.
type MatchRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreatedEntity is one entity from a successful batch response, positionally
// aligned with the submitted items. Similarity and ExistingMatch are only set
// when the server flagged the entity as a possible duplicate.
type CreatedEntity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Series   string `json:"series"`
	Rarity   string `json:"rarity"`
	ImageURL string `json:"imageUrl,omitempty"`

	DuplicateWarning bool      `json:"duplicateWarning,omitempty"`
	Similarity       *float64  `json:"similarity,omitempty"`
	ExistingMatch    *MatchRef `json:"existingMatch,omitempty"`
}

// ServerError is a per-item failure reported inside a successful response.
// DuplicateOf, when set, names the existing entity the item duplicated.
type ServerError struct {
	Filename    string `json:"filename"`
	Message     string `json:"error"`
	DuplicateOf string `json:"duplicateOf,omitempty"`
}

// Outcome is the result of one batch exchange. Kind selects which of the
// remaining fields are meaningful: Created, ServerErrors and Warning for
// OutcomeOK; Message, DuplicateType and ExistingMatch for OutcomeConflict;
// Message for OutcomeFailure.
type Outcome struct {
	Kind OutcomeKind

	Created      []CreatedEntity
	ServerErrors []ServerError
	Warning      string

	Message       string
	DuplicateType string
	ExistingMatch *MatchRef
}
