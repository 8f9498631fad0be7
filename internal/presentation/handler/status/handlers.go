package status

import (
	"html/template"
	"net/http"
	"time"

	"spinroom/internal/infrastructure/json"
	"spinroom/internal/infrastructure/metrics"
)

var startTime = time.Now()

type Handler struct {
	tmpl *template.Template
}

func NewHandler() *Handler {
	return &Handler{
		tmpl: template.Must(template.New("dashboard").Parse(dashboardHTML)),
	}
}

type statusResponse struct {
	Rooms       int64  `json:"rooms"`
	Users       int64  `json:"users"`
	Connections int64  `json:"connections"`
	Spins       int64  `json:"spins"`
	Uptime      string `json:"uptime"`
	Timestamp   string `json:"timestamp"`
}

func snapshot() statusResponse {
	snap := metrics.Snap()
	return statusResponse{
		Rooms:       snap.Rooms,
		Users:       snap.Users,
		Connections: snap.Connections,
		Spins:       snap.Spins,
		Uptime:      time.Since(startTime).Round(time.Second).String(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// GetStatus is the JSON probe consumed for operational visibility.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusOK, snapshot())
}

// Dashboard renders the same numbers as a small HTML page.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, snapshot()); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<title>spinroom status</title>
<meta http-equiv="refresh" content="5">
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
</style>
</head>
<body>
<h1>spinroom</h1>
<table>
<tr><th>Rooms</th><td>{{.Rooms}}</td></tr>
<tr><th>Users</th><td>{{.Users}}</td></tr>
<tr><th>Connections</th><td>{{.Connections}}</td></tr>
<tr><th>Spins started</th><td>{{.Spins}}</td></tr>
<tr><th>Uptime</th><td>{{.Uptime}}</td></tr>
</table>
<p>{{.Timestamp}}</p>
</body>
</html>
`
