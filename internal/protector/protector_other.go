//go:build !openbsd

package protector

// Protect is a no-op on platforms without pledge(2).
func Protect() {}
