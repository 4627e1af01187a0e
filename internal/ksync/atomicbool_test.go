package ksync

import "testing"

func TestAtomicBool(t *testing.T) {
	if !NewAtomicBool(true).Get() || NewAtomicBool(false).Get() {
		t.Error("invalid initial value")
	}

	ab := NewAtomicBool(true)
	if ab.Set(false) {
		t.Error("invalid return value")
	}
	if ab.Get() {
		t.Error("invalid state")
	}
}
