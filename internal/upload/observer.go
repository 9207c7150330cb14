package upload

// Observer receives classification events while a session uploads. Both
// callbacks are invoked synchronously from the upload loop, in item order, so
// implementations must return promptly. Calling Cancel from a callback is
// allowed; Start, RetryFailed and Reset fail with ErrSessionActive while the
// session is uploading.
type Observer interface {
	// ItemClassified fires once per item, immediately after the item's
	// record is merged and progress advanced.
	ItemClassified(rec Record)

	// BatchComplete fires after every item of a batch has been classified.
	// batchIndex is 0-based; batchCount is the total number of batches in
	// the run.
	BatchComplete(batchIndex, batchCount int, outcome Outcome)
}

// ObserverFuncs adapts plain functions to the Observer interface. Nil fields
// are skipped.
type ObserverFuncs struct {
	OnItemClassified func(rec Record)
	OnBatchComplete  func(batchIndex, batchCount int, outcome Outcome)
}

// ItemClassified implements Observer.
func (o ObserverFuncs) ItemClassified(rec Record) {
	if o.OnItemClassified != nil {
		o.OnItemClassified(rec)
	}
}

// BatchComplete implements Observer.
func (o ObserverFuncs) BatchComplete(batchIndex, batchCount int, outcome Outcome) {
	if o.OnBatchComplete != nil {
		o.OnBatchComplete(batchIndex, batchCount, outcome)
	}
}

type nopObserver struct{}

func (nopObserver) ItemClassified(Record)           {}
func (nopObserver) BatchComplete(int, int, Outcome) {}

// NopObserver ignores all events; it is the default for sessions created
// without WithObserver.
var NopObserver Observer = nopObserver{}
