package upload

// Messages for records the server gave no explicit reason for.
const (
	defaultWarningMessage = "possible duplicate detected"
	failureMessage        = "transport failure"
	abortedMessage        = "upload aborted"
	noResultMessage       = "no result returned for item"
)

// Classify assigns every item of batch to exactly one Record based on the
// batch's outcome. It is pure: the same (batch, outcome) pair always yields
// the same records and neither input is mutated.
//
// A Conflict blocks the whole batch: at this granularity a single offending
// item is not distinguishable, so the conservative policy rejects the group.
// A Failure (or an abort the caller chose to classify rather than stop on)
// marks the whole batch as errors. An OK outcome is walked positionally:
// created entities map to accepted or warning records, then server-side
// per-item errors are resolved by filename and take precedence over any
// record assigned in the first walk.
func Classify(batch Batch, outcome Outcome) []Record {
	switch outcome.Kind {
	case OutcomeConflict:
		records := make([]Record, 0, len(batch.Items))
		for _, it := range batch.Items {
			records = append(records, Record{
				Bucket:        BucketBlocked,
				ItemID:        it.ID,
				Filename:      it.Filename(),
				Message:       outcome.Message,
				ExistingMatch: outcome.ExistingMatch,
				IsDuplicate:   true,
			})
		}
		return records

	case OutcomeFailure, OutcomeAborted:
		msg := outcome.Message
		if msg == "" {
			msg = failureMessage
			if outcome.Kind == OutcomeAborted {
				msg = abortedMessage
			}
		}
		records := make([]Record, 0, len(batch.Items))
		for _, it := range batch.Items {
			records = append(records, Record{
				Bucket:   BucketError,
				ItemID:   it.ID,
				Filename: it.Filename(),
				Message:  msg,
			})
		}
		return records
	}

	return classifyOK(batch, outcome)
}

func classifyOK(batch Batch, outcome Outcome) []Record {
	verdicts := make(map[string]Record, len(batch.Items))

	// Walk created entities positionally against the batch's items. A
	// duplicate-risk flag on the entity, or a batch-level warning string,
	// demotes the item to a warning: nothing was created and a human has to
	// decide.
	for i := range outcome.Created {
		if i >= len(batch.Items) {
			break
		}
		item := batch.Items[i]
		entity := outcome.Created[i]

		if entity.DuplicateWarning || outcome.Warning != "" {
			msg := outcome.Warning
			if msg == "" {
				msg = defaultWarningMessage
			}
			verdicts[item.ID] = Record{
				Bucket:        BucketWarning,
				ItemID:        item.ID,
				Filename:      item.Filename(),
				EntityName:    entity.Name,
				Message:       msg,
				Similarity:    entity.Similarity,
				ExistingMatch: entity.ExistingMatch,
			}
			continue
		}

		verdicts[item.ID] = Record{
			Bucket:   BucketAccepted,
			ItemID:   item.ID,
			Filename: item.Filename(),
			Entity:   &entity,
		}
	}

	// Server-side per-item errors resolve by filename and win over a record
	// assigned above: an explicit failure beats an ambiguous partial success.
	for _, serverErr := range outcome.ServerErrors {
		item, ok := itemByFilename(batch, serverErr.Filename)
		if !ok {
			continue
		}
		verdicts[item.ID] = Record{
			Bucket:      BucketError,
			ItemID:      item.ID,
			Filename:    item.Filename(),
			Message:     serverErr.Message,
			IsDuplicate: serverErr.DuplicateOf != "",
		}
	}

	// Emit in batch order. Items the response covered with neither an entity
	// nor an error are recorded as errors so every attempted item ends up
	// classified exactly once.
	records := make([]Record, 0, len(batch.Items))
	for _, item := range batch.Items {
		rec, ok := verdicts[item.ID]
		if !ok {
			rec = Record{
				Bucket:   BucketError,
				ItemID:   item.ID,
				Filename: item.Filename(),
				Message:  noResultMessage,
			}
		}
		records = append(records, rec)
	}
	return records
}

func itemByFilename(batch Batch, filename string) (Item, bool) {
	for _, it := range batch.Items {
		if it.Filename() == filename {
			return it, true
		}
	}
	return Item{}, false
}
