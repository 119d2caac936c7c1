// Package catchupsvc resolves which fragment a catching-up viewer should
// resume from and serves fragment blobs, enforcing the artificial CDN delay
// at serve time.
//
// Resolution policy:
//   - no requested index: land LiveEdgeOffset fragments behind the live edge
//     so forward playback keeps a buffer and cached not-yet-available
//     responses for the true edge do not starve synced viewers;
//   - requested index: clamp up to the signup fragment, then scan forward
//     for the first sync-ready fragment.
//
// "Not started" (no start payload on slot 0) and "nothing ready yet" are
// distinct outcomes: the first is permanent until a write occurs, the second
// resolves with retry.
package catchupsvc
