package views

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/tour-booking-api/internal/models"
)

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)
	for _, name := range []string{"overview.html", "tour.html", "login.html", "account.html", "error.html"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestOverviewRendersTours(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "overview.html", map[string]any{
		"title": "All Tours",
		"tours": []models.Tour{{Name: "The Forest Hiker", Slug: "the-forest-hiker", Price: 397}},
		"user":  &models.User{Name: "Leo Gillespie", Photo: "user-1.jpg"},
		"alert": "",
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Natours | All Tours")
	assert.Contains(t, out, `href="/tour/the-forest-hiker"`)
	assert.Contains(t, out, "<span>Leo</span>")
}
