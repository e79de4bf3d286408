package website

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Home renders the public landing page, the destination for callers turned
// away from another tenant's admin area.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	renderPage(w, "home")
}

// LoginPage renders the sign-in form. The form posts to the login handler.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, "login")
}

func renderPage(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, nil); err != nil {
		log.Error().Err(err).Str("page", name).Msg("Failed to render page")
	}
}
