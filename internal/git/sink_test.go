package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeeFansOutAndSkipsNilSinks(t *testing.T) {
	var a, b Lines
	sink := Tee(a.Sink(), nil, b.Sink())
	sink("one")
	sink("two")
	assert.Equal(t, []string{"one", "two"}, a.Lines())
	assert.Equal(t, "one\ntwo", b.String())
}
