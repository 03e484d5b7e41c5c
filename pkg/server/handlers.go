package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mqttscope/mqttscope/pkg/acl"
	"github.com/mqttscope/mqttscope/pkg/httputil"
	"github.com/mqttscope/mqttscope/pkg/poller"
	"go.uber.org/zap"
)

const defaultRange = "24h"

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// buildOptions translates query parameters into one on-demand build.
func (s *Server) buildOptions(r *http.Request) poller.BuildOptions {
	opts := poller.BuildOptions{
		Range:             r.URL.Query().Get("range"),
		ObservationsTable: s.opts.ObservationsTable,
		EventsTable:       s.opts.EventsTable,
		Series:            s.opts.Series,
	}
	if opts.Range == "" {
		opts.Range = defaultRange
	}
	if series := r.URL.Query().Get("series"); series != "" {
		opts.Series = strings.Split(series, ",")
	}
	return opts
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	result, err := poller.Build(r.Context(), s.opts.Source, s.buildOptions(r))
	if err != nil {
		s.logger.Error("series build failed", zap.Error(err))
		httputil.Error(w, http.StatusBadGateway, "data API unavailable")
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := poller.BuildEvents(r.Context(), s.opts.Source, s.buildOptions(r))
	if err != nil {
		s.logger.Error("events build failed", zap.Error(err))
		httputil.Error(w, http.StatusBadGateway, "data API unavailable")
		return
	}
	httputil.JSON(w, http.StatusOK, events)
}

// handleOverview serves the poller's pre-fetched default-range snapshot, so
// the landing page renders without waiting on the data API.
func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Poller == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "polling disabled")
		return
	}
	result := s.opts.Poller.Latest()
	if result == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "no data yet")
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

func (s *Server) handleBroker(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Probe == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "broker probe disabled")
		return
	}
	httputil.JSON(w, http.StatusOK, s.opts.Probe.Snapshot())
}

func (s *Server) aclStore(w http.ResponseWriter) *acl.Store {
	if s.opts.ACL == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "ACL management disabled")
		return nil
	}
	return s.opts.ACL
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	store := s.aclStore(w)
	if store == nil {
		return
	}
	users, err := store.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		httputil.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	httputil.JSON(w, http.StatusOK, users)
}

type userRequest struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Superuser    bool   `json:"superuser"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	store := s.aclStore(w)
	if store == nil {
		return
	}
	var req userRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}
	if req.Username == "" {
		httputil.Error(w, http.StatusBadRequest, "username is required")
		return
	}
	user, err := store.CreateUser(r.Context(), acl.User{
		Username:     req.Username,
		PasswordHash: req.PasswordHash,
		Superuser:    req.Superuser,
	})
	if err != nil {
		s.logger.Error("create user failed", zap.String("username", req.Username), zap.Error(err))
		httputil.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	httputil.JSON(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	store := s.aclStore(w)
	if store == nil {
		return
	}
	var req userRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}
	err := store.UpdateUser(r.Context(), acl.User{
		Username:     r.PathValue("username"),
		PasswordHash: req.PasswordHash,
		Superuser:    req.Superuser,
	})
	if err != nil {
		s.logger.Error("update user failed", zap.Error(err))
		httputil.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	store := s.aclStore(w)
	if store == nil {
		return
	}
	err := store.DeleteUser(r.Context(), r.PathValue("username"))
	if errors.Is(err, acl.ErrNotFound) {
		httputil.Error(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.logger.Error("delete user failed", zap.Error(err))
		httputil.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	store := s.aclStore(w)
	if store == nil {
		return
	}
	rules, err := store.ListRules(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		s.logger.Error("list rules failed", zap.Error(err))
		httputil.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	httputil.JSON(w, http.StatusOK, rules)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	store := s.aclStore(w)
	if store == nil {
		return
	}
	var rule acl.Rule
	if err := httputil.BindOrError(r, w, &rule); err != nil {
		return
	}
	if rule.Username == "" || rule.Topic == "" {
		httputil.Error(w, http.StatusBadRequest, "username and topic are required")
		return
	}
	created, err := store.CreateRule(r.Context(), rule)
	if err != nil {
		s.logger.Error("create rule failed", zap.Error(err))
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	httputil.JSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	store := s.aclStore(w)
	if store == nil {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	var rule acl.Rule
	if err := httputil.BindOrError(r, w, &rule); err != nil {
		return
	}
	rule.ID = id
	err = store.UpdateRule(r.Context(), rule)
	if errors.Is(err, acl.ErrNotFound) {
		httputil.Error(w, http.StatusNotFound, "rule not found")
		return
	}
	if err != nil {
		s.logger.Error("update rule failed", zap.Error(err))
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	store := s.aclStore(w)
	if store == nil {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	err = store.DeleteRule(r.Context(), id)
	if errors.Is(err, acl.ErrNotFound) {
		httputil.Error(w, http.StatusNotFound, "rule not found")
		return
	}
	if err != nil {
		s.logger.Error("delete rule failed", zap.Error(err))
		httputil.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
