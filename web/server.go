// Package web serves the music HTTP surface: the user-provided credential
// lookup, the album listing, application info and metrics.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-profiles/album"
	"github.com/goliatone/go-profiles/cfenv"
	"github.com/goliatone/go-profiles/internal/metrics"
)

// Route templates.
const (
	RouteCredential = "/cups/{instance}/{name}"
	RouteAlbums     = "/albums"
	RouteInfo       = "/appinfo"
	RouteMetrics    = "/metrics"
)

// PropertyResolver is the read side of a sealed profiles.Environment.
type PropertyResolver interface {
	Property(key string) (string, bool)
}

// AppInfo describes the running instance.
type AppInfo struct {
	Profiles []string `json:"profiles"`
	Services []string `json:"services"`
}

// Config wires the router. Albums and Metrics are optional.
type Config struct {
	Properties PropertyResolver
	Albums     album.Repository
	Info       AppInfo
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

type server struct {
	props  PropertyResolver
	albums album.Repository
	info   AppInfo
	logger zerolog.Logger
}

// NewRouter registers every route.
func NewRouter(cfg Config) *mux.Router {
	s := &server{
		props:  cfg.Properties,
		albums: cfg.Albums,
		info:   cfg.Info,
		logger: cfg.Logger,
	}

	router := mux.NewRouter()
	handle := func(route string, fn http.HandlerFunc) *mux.Route {
		var h http.Handler = fn
		if cfg.Metrics != nil {
			h = cfg.Metrics.Instrument(route, h)
		}
		return router.Handle(route, h)
	}

	handle(RouteCredential, s.handleCredential).Methods(http.MethodGet)
	handle(RouteInfo, s.handleInfo).Methods(http.MethodGet)
	if s.albums != nil {
		handle(RouteAlbums, s.handleAlbums).Methods(http.MethodGet)
	}
	if cfg.Metrics != nil {
		router.Handle(RouteMetrics, cfg.Metrics.Handler()).Methods(http.MethodGet)
	}
	return router
}

// handleCredential answers with the raw credential value, or 404 with an
// empty body when the instance or credential is unknown.
func (s *server) handleCredential(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	instance, name := vars["instance"], vars["name"]
	key := cfenv.CredentialKey(instance, name)
	s.logger.Info().
		Str("instance", instance).
		Str("name", name).
		Str("key", key).
		Msg("credential lookup")

	var (
		value string
		ok    bool
	)
	if s.props != nil {
		value, ok = s.props.Property(key)
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(value))
}

func (s *server) handleAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := s.albums.FindAll(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list albums")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list albums"})
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

func (s *server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	info := AppInfo{Profiles: s.info.Profiles, Services: s.info.Services}
	if info.Profiles == nil {
		info.Profiles = []string{}
	}
	if info.Services == nil {
		info.Services = []string{}
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
