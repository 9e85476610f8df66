// Package ingest validates and loads tabular datasets into the store.
//
// A Dataset carries typed rows for the four ingestible tables
// (ingredients, purchases, usage, sales). Row constraints are declared in
// an embedded CUE schema and enforced before anything touches the store:
// a dataset either loads completely or not at all.
//
// Identifier columns are canonicalized first (Unicode NFC, lowercased,
// spaces and hyphens folded to underscores) so the same ingredient spelled
// differently across uploads lands on one catalog row.
package ingest
