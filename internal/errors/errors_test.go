package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuralfKeepsMessage(t *testing.T) {
	err := Structuralf("Invalid type %q specified for attribute %q", "strng", "title")

	assert.Equal(t, `Invalid type "strng" specified for attribute "title"`, err.Error())
	assert.True(t, IsStructural(err))
}

func TestStructuralSurvivesWrap(t *testing.T) {
	err := Wrap(Structuralf("duplicate model"), "collecting sources")

	assert.True(t, IsStructural(err))
	assert.Contains(t, err.Error(), "collecting sources: duplicate model")
}

func TestPlainErrorIsNotStructural(t *testing.T) {
	assert.False(t, IsStructural(New("disk full")))
	assert.False(t, IsStructural(nil))
}
