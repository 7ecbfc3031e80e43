package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/notice-client/internal/connection"
	"github.com/nerrad567/notice-client/internal/notice"
)

// stateResponse reports the connection state after a command.
type stateResponse struct {
	State string `json:"state"`
}

// messagesBody is the request and response body of /messages.
type messagesBody struct {
	Messages []notice.StoredMessage `json:"messages"`
	Count    int                    `json:"count"`
}

// handleGetConfig returns the persisted client record.
func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.GetConfig())
}

// handleSaveConfig replaces the client record. It applies on the next connect.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var cfg connection.ClientConfig
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	if err := s.service.SaveConfig(cfg); err != nil {
		s.logger.Error("saving client config", "error", err)
		writeInternalError(w, "failed to save config")
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// handleConnect starts connecting with the persisted record.
// It answers 202 because the broker handshake completes asynchronously.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Connect(r.Context()); err != nil {
		if errors.Is(err, connection.ErrAddressParse) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		writeInternalError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, stateResponse{State: s.service.ConnectionState()})
}

// handleDisconnect stops the connection.
func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.service.Disconnect()
	writeJSON(w, http.StatusOK, stateResponse{State: s.service.ConnectionState()})
}

// handleConnectionState returns the current connection state.
func (s *Server) handleConnectionState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse{State: s.service.ConnectionState()})
}

// handleGetMessages returns the stored history, newest first.
func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	msgs := s.service.Messages(r.Context())
	if msgs == nil {
		msgs = []notice.StoredMessage{}
	}
	writeJSON(w, http.StatusOK, messagesBody{Messages: msgs, Count: len(msgs)})
}

// handleSaveMessages replaces the stored history.
func (s *Server) handleSaveMessages(w http.ResponseWriter, r *http.Request) {
	var body messagesBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	if err := s.service.SaveMessages(r.Context(), body.Messages); err != nil {
		s.logger.Error("saving messages", "error", err)
		writeInternalError(w, "failed to save messages")
		return
	}

	msgs := s.service.Messages(r.Context())
	if msgs == nil {
		msgs = []notice.StoredMessage{}
	}
	writeJSON(w, http.StatusOK, messagesBody{Messages: msgs, Count: len(msgs)})
}
