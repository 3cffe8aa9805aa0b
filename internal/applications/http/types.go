package http

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/repository"
	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/view"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// appData is what the page and its live fragment are rendered from
type appData struct {
	view.View
	DeletePrompt string
}

// confirmData is what the delete confirmation page is rendered from
type confirmData struct {
	Prompt string
	Item   view.Item
}

// Handler serves the browser UI and the JSON API for job applications
type Handler struct {
	store     repository.Store
	sessions  *Registry
	upgrader  websocket.Upgrader
	keepAlive time.Duration
	log       zerolog.Logger
}

// New creates a new Handler. allowedOrigins limits which pages may open the
// WebSocket stream; same-host requests are always allowed.
func New(store repository.Store, sessions *Registry, allowedOrigins []string, log zerolog.Logger) *Handler {
	return &Handler{
		store:    store,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		keepAlive: 15 * time.Second,
		log:       log,
	}
}

// renderFragment executes one of the live page regions, "app" or "form"
func renderFragment(name string, v view.View) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, appData{View: v, DeletePrompt: view.DeletePrompt}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
