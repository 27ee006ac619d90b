// Package views holds the server-rendered page templates.
package views

import (
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"firstName": func(name string) string {
		if f := strings.Fields(name); len(f) > 0 {
			return f[0]
		}
		return name
	},
	"monthYear": func(t time.Time) string { return t.Format("January 2006") },
	"add":       func(a, b int) int { return a + b },
}

// Templates parses every page. Each page is addressed by its file name.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}
