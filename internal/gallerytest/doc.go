// Package gallerytest provides an in-process fake gallery server for
// exercising the upload pipeline over real HTTP.
//
// The fake implements the batch upload exchange end to end: bearer
// authentication, multipart decoding, exact-duplicate conflicts, duplicate
// warnings, per-file rejections, and scripted failures. Tests mount its
// Router on an httptest server; cmd/mockgallery wraps it in a standalone
// binary for manual runs against the real CLI.
package gallerytest
