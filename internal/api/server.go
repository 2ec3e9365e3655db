package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/harrier-data/sensor.report/internal/db"
	"github.com/harrier-data/sensor.report/internal/ingest"
	"github.com/harrier-data/sensor.report/internal/linemux"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	m        linemux.LineMuxer
	db       *db.DB
	hub      *ingest.Hub
	units    string
	location *time.Location
}

// NewServer builds the HTTP surface. The units string is the display target
// readings are converted to; location is the timezone day-aligned rollups
// use.
func NewServer(m linemux.LineMuxer, database *db.DB, hub *ingest.Hub, units string, location *time.Location) *Server {
	if location == nil {
		location = time.UTC
	}
	return &Server{
		m:        m,
		db:       database,
		hub:      hub,
		units:    units,
		location: location,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// Register mounts the API routes on an existing mux so the daemon can share
// it with the static file server and admin debug routes.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/read", s.readSeries)
	mux.HandleFunc("/api/sensors", s.sensorsCollection)
	mux.HandleFunc("/api/sensors/", s.sensorItem)
	mux.HandleFunc("/api/write", s.writeReadings)
	mux.HandleFunc("/api/rollups", s.serveRollups)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/chart", s.renderChart)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/live", s.liveStream)
	mux.HandleFunc("/command", s.sendCommandHandler)
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command := r.FormValue("command")

	if err := s.m.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) liveStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "Live stream disabled", http.StatusNotFound)
		return
	}
	s.hub.ServeWS(w, r)
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	stats, err := s.db.Stats()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to retrieve stats")
		return
	}

	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write stats")
		return
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	config := map[string]interface{}{
		"units":    s.units,
		"timezone": s.location.String(),
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}
