// Package manifest turns card descriptions into upload items.
//
// Input is either a YAML manifest (manifest-wide defaults plus per-card
// entries) or plain file and directory arguments. Either way the package
// reads every image, validates it, and produces the []upload.Item the
// session consumes. File reads run concurrently but the resulting item
// order is deterministic: manifest order, or argument order with directory
// contents sorted by name.
package manifest
