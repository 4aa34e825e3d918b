// Package server exposes the current state and a few controls over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/transitpal/internal/report"
	"github.com/danpilch/transitpal/internal/state"
	"github.com/danpilch/transitpal/internal/transit"
)

// Store is the part of the store the handlers need.
type Store interface {
	State() state.State
	Dispatch(state.Action)
}

type Refresher interface {
	RefreshDomain(ctx context.Context, d state.Domains) error
}

type Server struct {
	store     Store
	refresher Refresher
	logger    *logrus.Logger
	version   string

	gatherer   prometheus.Gatherer
	metricsTTL time.Duration

	// background refreshes started by requests
	wg sync.WaitGroup
}

func New(store Store, refresher Refresher, logger *logrus.Logger, version string) *Server {
	return &Server{
		store:      store,
		refresher:  refresher,
		logger:     logger,
		version:    version,
		gatherer:   prometheus.DefaultGatherer,
		metricsTTL: 10 * time.Second,
	}
}

// Routes builds the router. ctx bounds the metrics cache loop and the
// refreshes the handlers start.
func (s *Server) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", s.healthcheckHandler)
	router.HandlerFunc(http.MethodGet, "/v1/status", s.statusHandler)
	router.Handle(http.MethodPost, "/v1/refresh", s.refreshHandler(ctx))
	router.Handle(http.MethodPut, "/v1/favorites/:key", s.favoriteHandler(ctx, true))
	router.Handle(http.MethodDelete, "/v1/favorites/:key", s.favoriteHandler(ctx, false))
	router.Handler(http.MethodGet, "/metrics", NewCachedPromHandler(ctx, s.gatherer, s.metricsTTL))

	handler := SentryMiddleware(router)
	return SecurityHeaders(handler)
}

// Wait blocks until the refreshes started by requests have returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

type healthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Ready   bool   `json:"ready"`
}

// healthcheckHandler answers 503 while every source is failing with nothing to
// show.
func (s *Server) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	st := s.store.State()
	ready := state.Combine(st.TrainStatus, st.BusStatus, st.BikeStatus, st.HasData()) != state.FullFailure

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, healthStatus{
		Status:  "available",
		Version: s.version,
		Ready:   ready,
	})
}

type statusView struct {
	Status          state.RefreshStatus                          `json:"status"`
	Overall         state.RefreshStatus                          `json:"overall"`
	Sources         map[string]state.SourceStatus                `json:"sources"`
	Refreshing      state.Domains                                `json:"refreshing"`
	LastUpdate      *time.Time                                   `json:"lastUpdate,omitempty"`
	SinceLastUpdate string                                       `json:"sinceLastUpdate,omitempty"`
	Updated         map[string]time.Time                         `json:"updated"`
	ErrorMessage    string                                       `json:"errorMessage,omitempty"`
	Favorites       []transit.FavoriteKey                        `json:"favorites"`
	Train           map[string][]transit.TrainArrival            `json:"train"`
	Bus             map[transit.FavoriteKey][]transit.BusArrival `json:"bus"`
	Bike            []transit.BikeStation                        `json:"bike"`
	Routes          int                                          `json:"routes"`
}

func newStatusView(st state.State) statusView {
	v := statusView{
		Status:  st.DisplayStatus(),
		Overall: st.OverallStatus(),
		Sources: map[string]state.SourceStatus{
			"train":  st.TrainStatus,
			"bus":    st.BusStatus,
			"bike":   st.BikeStatus,
			"routes": st.BusRoutesStatus,
		},
		Updated:      map[string]time.Time{},
		Refreshing:   st.Refreshing,
		ErrorMessage: st.ErrorMessage,
		Favorites:    st.Favorites,
		Train:        st.TrainArrivals,
		Bus:          make(map[transit.FavoriteKey][]transit.BusArrival, len(st.BusArrivals)),
		Bike:         st.BikeStations,
		Routes:       len(st.BusRoutes),
	}
	if v.Favorites == nil {
		v.Favorites = []transit.FavoriteKey{}
	}
	if !st.LastUpdate.IsZero() {
		lastUpdate := st.LastUpdate
		v.LastUpdate = &lastUpdate
		v.SinceLastUpdate = st.SinceLastUpdate().Round(time.Second).String()
	}
	for name, at := range map[string]time.Time{
		"train": st.TrainUpdated,
		"bus":   st.BusUpdated,
		"bike":  st.BikeUpdated,
	} {
		if !at.IsZero() {
			v.Updated[name] = at
		}
	}
	for k, arrivals := range st.BusArrivals {
		v.Bus[transit.BusFavorite(k)] = arrivals
	}
	return v
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, newStatusView(s.store.State()))
}

func (s *Server) refreshHandler(ctx context.Context) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		d, err := state.ParseDomain(r.URL.Query().Get("domain"))
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}

		s.background(ctx, d)
		s.writeJSON(w, http.StatusAccepted, map[string]string{"refreshing": d.String()})
	}
}

// favoriteHandler adds or removes the favorite named in the path, then
// refreshes so the new selection is fetched.
func (s *Server) favoriteHandler(ctx context.Context, add bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key, err := transit.ParseFavoriteKey(ps.ByName("key"))
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}

		if add {
			s.store.Dispatch(state.AddFavorite{Key: key})
		} else {
			s.store.Dispatch(state.RemoveFavorite{Key: key})
		}
		s.background(ctx, state.AllArrivals)

		s.logger.WithFields(logrus.Fields{
			"key":   key,
			"added": add,
		}).Info("favorite updated over http")

		s.writeJSON(w, http.StatusAccepted, map[string]string{"key": string(key)})
	}
}

func (s *Server) background(ctx context.Context, d state.Domains) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.refresher.RefreshDomain(ctx, d); err != nil {
			s.logger.WithFields(logrus.Fields{
				"domain": d,
				"error":  err,
			}).Error("requested refresh failed")
			report.ReportError(err)
		}
	}()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithField("error", err).Warn("failed to write response")
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
