package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"path"

	"github.com/shindakun/loginform/internal/loginform"
	"github.com/shindakun/loginform/internal/models"
)

//go:embed templates
var templateFS embed.FS

var pageNames = []string{"landing", "login", "home", "404"}

// TemplateData holds common data passed to templates
type TemplateData struct {
	Title    string
	Session  *models.Session
	Form     loginform.View
	Attempts []models.LoginAttempt
	Version  string
}

// parseTemplates builds one template set per page: the base layout, the
// page itself and the login form fragment
func parseTemplates() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))

	for _, name := range pageNames {
		tmpl, err := template.New(name).Parse(loginform.FormTemplate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse login form fragment: %w", err)
		}

		tmpl, err = tmpl.ParseFS(templateFS,
			path.Join("templates", "layouts", "base.html"),
			path.Join("templates", "pages", name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}

	return pages, nil
}

// renderTemplate renders a page with the base layout
func (h *Handlers) renderTemplate(w io.Writer, name string, data TemplateData) error {
	tmpl, ok := h.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	data.Version = h.version
	return tmpl.ExecuteTemplate(w, "base", data)
}
