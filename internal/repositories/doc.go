// Package repositories persists the local song history in sqlite.
//
// Every song observed in a fetched queue is recorded once per
// title/artist pair; repeat sightings bump a counter instead of
// inserting duplicates.
package repositories
