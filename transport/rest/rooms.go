package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

type playerRequest struct {
	PlayerID string `json:"player_id"`
}

type roomsResponse struct {
	Rooms []string `json:"rooms"`
}

type roomCreatedResponse struct {
	RoomID string `json:"room_id"`
}

type joinResponse struct {
	Joined bool `json:"joined"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type roomHandlers struct {
	logger    *slog.Logger
	directory roomDirectory
}

func newRoomHandlers(logger *slog.Logger, directory roomDirectory) *roomHandlers {
	return &roomHandlers{
		logger:    logger,
		directory: directory,
	}
}

func (that *roomHandlers) list(w http.ResponseWriter, r *http.Request) {
	that.writeJSON(w, http.StatusOK, roomsResponse{Rooms: that.directory.ListOpenRooms(r.Context())})
}

func (that *roomHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	roomID, err := that.directory.CreateRoom(r.Context(), req.PlayerID)
	if err != nil {
		that.writeError(w, "CreateRoom", err)
		return
	}

	that.writeJSON(w, http.StatusCreated, roomCreatedResponse{RoomID: roomID})
}

func (that *roomHandlers) join(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	joined, err := that.directory.JoinRoom(r.Context(), chi.URLParam(r, "id"), req.PlayerID)
	if err != nil {
		that.writeError(w, "JoinRoom", err)
		return
	}

	status := http.StatusOK
	if !joined {
		status = http.StatusConflict
	}

	that.writeJSON(w, status, joinResponse{Joined: joined})
}

func (that *roomHandlers) writeError(w http.ResponseWriter, method string, err error) {
	switch {
	case errors.Is(err, apperror.ErrMissingPlayerID):
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, apperror.ErrRoomNotFound):
		that.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		that.logger.Error("request failed", "method", method, "error", err)
		that.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func (that *roomHandlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
