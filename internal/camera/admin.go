package camera

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"tailscale.com/tsweb"
)

//go:embed templates/*
var adminTemplateFS embed.FS

var parametersTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/parameters.html.tmpl"))

// adminParameterRow is one line of the debug parameter table.
type adminParameterRow struct {
	Name        string
	Description string
	Value       float64
	Min, Max    float64
	Mutable     bool
}

// AttachAdminRoutes attaches debugging endpoints to the given HTTP mux served
// at /debug/. These routes are accessible only over localhost/via Tailscale
// and are not publicly accessible.
func (c *Controller) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("parameters", "camera parameter table", func(w http.ResponseWriter, r *http.Request) {
		snap := c.Snapshot()
		var rows []adminParameterRow
		for _, name := range snap.Names() {
			p, err := snap.GetP(name)
			if err != nil {
				continue
			}
			rows = append(rows, adminParameterRow{
				Name:        p.Name(),
				Description: p.Description(),
				Value:       p.Value(),
				Min:         p.Minimum(),
				Max:         p.Maximum(),
				Mutable:     p.Mutable(),
			})
		}
		if err := parametersTemplate.Execute(w, rows); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
		}
	})

	// SSE stream of parameters-changed notifications.
	debug.HandleSilentFunc("parameters-tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		id, ch := c.Subscribe()
		defer c.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				if _, err := fmt.Fprint(w, "data: parameters-changed\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
