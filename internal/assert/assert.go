// Package assert holds invariant checks that panic; they guard programmer errors, not input.
package assert

import (
	"fmt"
)

// Length panics unless value has exactly expected bytes
func Length(name, value string, expected int) {
	if len(value) != expected {
		panic(fmt.Sprintf("assert.Length %s: expected %d actual %d", name, expected, len(value)))
	}
}
