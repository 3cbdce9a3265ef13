package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vyapaars/syncledger/internal/common"
	"github.com/vyapaars/syncledger/internal/server/models"
	"github.com/vyapaars/syncledger/internal/server/services"
)

type registerRequest struct {
	Phone    string `json:"phone"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type identitySummary struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	FullName  string    `json:"full_name"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

func toSummary(i *models.Identity) identitySummary {
	return identitySummary{
		ID:        i.ID,
		Phone:     i.Phone,
		FullName:  i.FullName,
		Verified:  i.Verified,
		CreatedAt: i.CreatedAt,
	}
}

// handleRegister handles POST /identities.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var missing []string
	if req.Phone == "" {
		missing = append(missing, "phone")
	}
	if req.FullName == "" {
		missing = append(missing, "full_name")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "missing required fields",
			"fields": missing,
		})
		return
	}

	identity, err := s.identities.Register(r.Context(), req.Phone, req.FullName, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":  "phone number already registered",
				"fields": []string{"phone"},
			})
			return
		}
		s.logger.Error(r.Context(), "register failed", "request_id", requestIDFrom(r.Context()), "err", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toSummary(identity))
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
}

// handleLogin handles POST /sessions. Credentials arrive form-encoded
// (username = identity key, password = secret).
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeUnauthorized(w)
		return
	}

	pair, err := s.identities.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeUnauthorized(w)
			return
		}
		s.logger.Error(r.Context(), "login failed", "request_id", requestIDFrom(r.Context()), "err", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		TokenType:    "bearer",
		RefreshToken: pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleRefresh handles POST /sessions/refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := s.identities.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) || errors.Is(err, common.ErrRefreshTokenExpired) {
			writeUnauthorized(w)
			return
		}
		s.logger.Error(r.Context(), "refresh failed", "request_id", requestIDFrom(r.Context()), "err", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		TokenType:    "bearer",
		RefreshToken: pair.RefreshToken,
	})
}

// handleMe handles GET /identities/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.caller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSummary(identity))
}

type syncBatchRequest struct {
	DeviceID      string         `json:"device_id"`
	AppVersion    string         `json:"app_version"`
	ClientActions []clientAction `json:"client_actions"`
}

type clientAction struct {
	ClientID  string          `json:"client_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type syncBatchResponse struct {
	Status           string                            `json:"status"`
	ProcessedActions map[string]services.ActionOutcome `json:"processed_actions"`
}

// handleSyncBatch handles POST /sync/batch: the single entry point for
// offline clients uploading locally recorded actions.
func (s *Server) handleSyncBatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.caller(w, r)
	if !ok {
		return
	}

	var req syncBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	batch := &services.Batch{
		DeviceID:   req.DeviceID,
		AppVersion: req.AppVersion,
		Actions:    make([]services.ClientAction, 0, len(req.ClientActions)),
	}
	for _, a := range req.ClientActions {
		batch.Actions = append(batch.Actions, services.ClientAction{
			ClientID:  a.ClientID,
			Type:      a.Type,
			Payload:   a.Payload,
			Timestamp: a.Timestamp,
		})
	}

	outcomes, err := s.ledger.SyncBatch(r.Context(), identity, batch)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "batch validation failed",
				"fields": verr.Fields,
			})
		case errors.Is(err, common.ErrorUnavailable):
			s.logger.Error(r.Context(), "ledger unavailable", "request_id", requestIDFrom(r.Context()), "err", err.Error())
			writeError(w, http.StatusServiceUnavailable, "storage temporarily unavailable, retry the batch")
		default:
			s.logger.Error(r.Context(), "sync failed", "request_id", requestIDFrom(r.Context()), "err", err.Error())
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, syncBatchResponse{Status: "ok", ProcessedActions: outcomes})
}

// caller resolves the authenticated identity key to its identity record.
// A token whose subject no longer exists is an authentication failure.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (*models.Identity, bool) {
	key, ok := identityKeyFrom(r.Context())
	if !ok {
		writeUnauthorized(w)
		return nil, false
	}
	identity, err := s.identities.GetByKey(r.Context(), key)
	if err != nil {
		writeUnauthorized(w)
		return nil, false
	}
	return identity, true
}
