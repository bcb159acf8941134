// Package discovery implements the track recommendation engine.
//
// The core abstraction is [Engine], which turns the listener's recent
// listening history into a ranked list of previously-unheard tracks:
//
//  1. [BuildKnownSet] unions the caller-supplied top tracks with the
//     listener's recently-played and saved track identifiers into an
//     immutable, case-insensitive exclusion set.
//  2. [Expander] grows a concurrent [Pool] of candidates from seed
//     artists and their related artists, at most four expansion units
//     in flight, with provenance reasons recorded on every insert.
//  3. A fallback backfill relaxes novelty when the pool is too sparse
//     to fill half the request.
//  4. [Diversify] caps per-artist representation, then [Rank] scores
//     candidates with a new-to-you bonus and random jitter and takes
//     the top of the list.
//
// Every stage appends a line to a [Trace] returned alongside the
// results for diagnostic display. Operations emit [ProgressUpdate]
// events via channels for non-blocking status reporting to CLI/TUI
// layers. All state is request-scoped; nothing survives between calls.
package discovery
