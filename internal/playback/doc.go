// Package playback executes music queue entries.
//
// A queue entry carries only a song id. The executor resolves it against the
// song catalog, refuses songs flagged corrupt, and asks a Player to load the
// media. The loaded resource is released after a short hold so repeated
// executions for the same song never leak handles.
package playback
