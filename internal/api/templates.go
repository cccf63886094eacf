package api

import (
	"embed"
	"html/template"
	"net/url"
	"time"

	"github.com/astrocast/astrocast/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// newTemplates parses the page templates with their helper functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"deref": func(f *float64) float64 {
			if f == nil {
				return 0
			}
			return *f
		},
		"planLink":  planLink,
		"aqiLabel":  models.AQILabel,
		"monthName": func(m int) string { return time.Month(m).String() },
		"percent":   func(f float64) float64 { return f * 100 },
		"shareLink": func(city, date string) string {
			return "/share.png?" + url.Values{"city": {city}, "date": {date}}.Encode()
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
