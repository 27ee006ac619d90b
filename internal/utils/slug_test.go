package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"The Forest Hiker":       "the-forest-hiker",
		"  The Sea   Explorer! ": "the-sea-explorer",
		"Crème Brûlée Tour":      "creme-brulee-tour",
		"Tour #2 - Alps":         "tour-2-alps",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}
