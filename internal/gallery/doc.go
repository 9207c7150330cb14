// Package gallery implements the HTTP transport for the character gallery
// service. A Client submits one batch per exchange as a multipart payload
// (every item's blob plus one JSON metadata array, index-aligned) and maps
// the response onto the modeled upload outcomes: 2xx to OK, 409 to Conflict,
// anything else to Failure, and context cancellation to Aborted.
//
// The client never retries; retry policy belongs to the upload session. A
// malformed response body is not a modeled outcome and is returned as an
// error, which terminates the session.
package gallery
