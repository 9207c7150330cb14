// Package logging provides structured logging for cardlift using zerolog.
//
// Commands build a logger once at startup with NewLogger and attach it to the
// request context; library code retrieves it with FromContext and tags events
// with component and operation fields. File output is opt-in and falls back
// to stderr when the file cannot be opened.
package logging
