//go:build dynarr_debug

package dynarr

// Built with -tags dynarr_debug, the in-place collect loop checks that the
// write cursor never passes the read cursor.
const debugAssertions = true
