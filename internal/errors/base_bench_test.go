package errors

import (
	"errors"
	"testing"
)

var errWrapped = errors.New("wrapped error")

func BenchmarkWrap(b *testing.B) {
	b.Run("wrap nil", func(b *testing.B) {
		for b.Loop() {
			err := Wrap(nil, "cache load")
			_ = err
		}
	})

	b.Run("wrap error", func(b *testing.B) {
		for b.Loop() {
			err := Wrap(errWrapped, "submit order")
			_ = err.Error()
		}
	})

	b.Run("wrapf error", func(b *testing.B) {
		for b.Loop() {
			err := Wrapf(errWrapped, "order %s venue %s", "C-1", "SIM")
			_ = err.Error()
		}
	})

	b.Run("new error", func(b *testing.B) {
		for b.Loop() {
			err := errors.New("venue disconnected")
			_ = err.Error()
		}
	})
}
