// Package models defines the domain entities for the song-request queue client.
//
// Two categories of types live here:
//
// 1. API value types, produced fresh on every fetch:
//   - [Song] : a single queue entry; Position 0 is the now-playing track
//   - [Queue] : an ordered queue snapshot plus the song-requests flag
//   - [Token] : the persisted credential triple
//
// 2. Persistent entities backing the local history database:
//   - [HistoryEntry] : a song observed in a fetched queue snapshot, with
//     first/last seen timestamps and an observation counter
//
// None of the API value types carry cross-fetch identity beyond the song ID,
// which is only used for delete/promote targeting.
package models
