// Package repositories implements SQLite persistence for saved discovery runs.
//
// A run is stored as a header row plus position-indexed track rows that
// cascade on delete. Listings aggregate track counts without loading the
// track rows themselves.
package repositories
