// Package admin serves the configuration portal and the JSON device API.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartnode-sim/internal/device"
	"smartnode-sim/internal/errcode"
)

//go:embed templates/index.html
var content embed.FS

// Server exposes the portal page, the REST API, the live telemetry
// websocket, and the Prometheus endpoint.
type Server struct {
	host *device.Host
	hub  *Hub
	tpl  *template.Template
	log  *slog.Logger
	srv  *http.Server
}

// NewServer builds the server around a device host. Pass the hub that
// sits in the host's writer fan-out, or nil to create a fresh one.
func NewServer(host *device.Host, hub *Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if hub == nil {
		hub = NewHub(log)
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{
		host: host,
		hub:  hub,
		tpl:  tpl,
		log:  log,
	}
}

// Hub returns the websocket broadcast hub.
func (s *Server) Hub() *Hub { return s.hub }

// Router assembles the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/ws", s.hub.ServeWS).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/scan", s.handleScan).Methods("GET")
	api.HandleFunc("/device-stats", s.handleDeviceStats).Methods("GET")
	api.HandleFunc("/sensor-data", s.handleSensorData).Methods("GET")
	api.HandleFunc("/sensor-history", s.handleSensorHistory).Methods("GET")
	api.HandleFunc("/sensor-stats", s.handleSensorStats).Methods("GET")

	api.HandleFunc("/connect", s.handleConnect).Methods("POST")
	api.HandleFunc("/disconnect", s.handleDisconnect).Methods("POST")
	api.HandleFunc("/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/factory-reset", s.handleFactoryReset).Methods("POST")
	api.HandleFunc("/device-name", s.handleDeviceName).Methods("POST")
	api.HandleFunc("/restart", s.handleRestart).Methods("POST")

	api.HandleFunc("/sensors/{channel}", s.handleSensorToggle).Methods("POST")
	api.HandleFunc("/interval", s.handleInterval).Methods("POST")
	api.HandleFunc("/history-size", s.handleHistorySize).Methods("POST")
	api.HandleFunc("/history/clear", s.handleHistoryClear).Methods("POST")
	api.HandleFunc("/stats/reset", s.handleStatsReset).Methods("POST")
	api.HandleFunc("/calibrate", s.handleCalibrate).Methods("POST")
	api.HandleFunc("/battery", s.handleBattery).Methods("POST")

	// Captive-portal behavior: while the access point is up, every
	// unknown URL lands on the portal page.
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	return r
}

// Start runs the HTTP server until the listener fails or Stop is called.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(os.Stdout, cors(s.Router())),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("admin server listening", "addr", addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(timeout time.Duration) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		DeviceName string
		Status     any
	}{
		DeviceName: s.host.DeviceName(),
		Status:     s.host.Connectivity().Snapshot(),
	}
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Error("render portal page", "err", err)
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if s.host.Connectivity().AccessPointActive() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.host.Connectivity().Snapshot())
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"networks": s.host.Connectivity().ScanNetworks(),
	})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	s.host.Restart()
	writeJSON(w, http.StatusOK, s.host.Stats())
}

func (s *Server) handleDeviceStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.host.Stats())
}

func (s *Server) handleSensorData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.host.Telemetry().CurrentReading())
}

func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	eng := s.host.Telemetry()
	writeJSON(w, http.StatusOK, map[string]any{
		"size":     eng.HistorySize(),
		"readings": eng.History(),
	})
}

func (s *Server) handleSensorStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.host.Telemetry().Statistics())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SSID     string `json:"ssid"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.host.Connectivity().Connect(req.SSID, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "connecting"})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.host.Connectivity().Disconnect()
	writeJSON(w, http.StatusOK, s.host.Connectivity().Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.host.Connectivity().ResetSettings()
	writeJSON(w, http.StatusOK, s.host.Connectivity().Snapshot())
}

func (s *Server) handleFactoryReset(w http.ResponseWriter, r *http.Request) {
	if err := s.host.FactoryReset(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.host.Stats())
}

func (s *Server) handleDeviceName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.host.SetDeviceName(req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"device_name": req.Name})
}

func (s *Server) handleSensorToggle(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.host.Telemetry().EnableChannel(channel, req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": channel, "enabled": req.Enabled})
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IntervalMS int `json:"interval_ms"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	eng := s.host.Telemetry()
	if err := eng.SetUpdateInterval(time.Duration(req.IntervalMS) * time.Millisecond); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interval_ms": eng.UpdateInterval().Milliseconds()})
}

func (s *Server) handleHistorySize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Size int `json:"size"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	eng := s.host.Telemetry()
	eng.SetHistorySize(req.Size)
	writeJSON(w, http.StatusOK, map[string]any{"size": eng.HistorySize()})
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	s.host.Telemetry().ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatsReset(w http.ResponseWriter, r *http.Request) {
	s.host.Telemetry().ResetStatistics()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string  `json:"channel"`
		Offset  float64 `json:"offset"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.host.Telemetry().Calibrate(req.Channel, req.Offset); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": req.Channel, "offset": req.Offset})
}

func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level float64 `json:"level"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	eng := s.host.Telemetry()
	eng.SetBatteryLevel(req.Level)
	writeJSON(w, http.StatusOK, eng.Battery())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	code := errcode.Of(err)
	status := http.StatusInternalServerError
	if errcode.IsValidation(code) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(code),
	})
}
