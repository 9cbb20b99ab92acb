//go:build !dynarr_debug

package dynarr

const debugAssertions = false
