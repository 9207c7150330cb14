package upload

// Bucket is the classification of one item after its batch resolved.
type Bucket string

// Classification buckets.
const (
	// BucketAccepted: the remote entity was created with no duplicate concerns.
	BucketAccepted Bucket = "accepted"

	// BucketWarning: flagged as a possible duplicate; NOT created; needs a
	// human decision. Not an error, so retrying is meaningless.
	BucketWarning Bucket = "warning"

	// BucketBlocked: rejected as a confirmed duplicate; not created; never
	// eligible for retry.
	BucketBlocked Bucket = "blocked"

	// BucketError: failed for a reason other than duplicate detection;
	// eligible for retry.
	BucketError Bucket = "error"
)

// Record is the classified result for a single item. Exactly one record per
// item exists within a session at any time; items whose batch never started
// have none.
//
// Field usage by bucket: Entity is set for accepted records. EntityName,
// Similarity and ExistingMatch are set for warnings. ExistingMatch is also
// set for blocked records when the server named the duplicate. Message holds
// the warning explanation, the block reason, or the error message.
type Record struct {
	Bucket   Bucket `json:"bucket"`
	ItemID   string `json:"itemId"`
	Filename string `json:"filename,omitempty"`

	Entity        *CreatedEntity `json:"entity,omitempty"`
	EntityName    string         `json:"entityName,omitempty"`
	Message       string         `json:"message,omitempty"`
	Similarity    *float64       `json:"similarity,omitempty"`
	ExistingMatch *MatchRef      `json:"existingMatch,omitempty"`

	// IsDuplicate is true for every blocked record and for error records
	// whose server-side failure named an entity the item duplicated.
	IsDuplicate bool `json:"isDuplicate,omitempty"`
}
