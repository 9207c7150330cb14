// Package upload implements the batch upload pipeline: chunking an ordered
// set of items into bounded batches, submitting each batch through a
// Transport, classifying every item's outcome into one of four buckets
// (accepted, warning, blocked, error), and tracking cumulative progress.
//
// A Session owns the state machine (idle, uploading, complete, cancelled,
// error) and processes batches strictly sequentially with one exchange in
// flight at a time. Cancellation is cooperative: it is checked before each
// batch starts and is threaded into the transport call so an in-flight
// exchange can be interrupted. Items whose batch never started are left
// unclassified.
//
// Sessions share no state; callers wanting parallel uploads create multiple
// independent Sessions.
package upload
