package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/match"
)

func decodePayload(msg *Message) (Payload, error) {
	var payload Payload
	if len(msg.Payload) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payload, nil
}

func (that *Server) handleConnect(ctx context.Context, sess *session, msg *Message) error {
	log := that.logger.With("method", "handleConnect")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		sess.sendError(msg.Action, "invalid payload")
		return err
	}

	var playerID string
	if payloadReq.Player != nil {
		playerID = payloadReq.Player.ID
	}

	player, err := that.players.GetOrCreatePlayer(ctx, playerID)
	if err != nil {
		sess.sendError(msg.Action, "failed to create a new player")
		return fmt.Errorf("failed to get or create player: %w", err)
	}

	sess.player = player

	resumeID := that.resumableRoom(ctx, player)
	sess.send(msg.Action, ResponsePayload{Player: player, RoomID: resumeID})

	if resumeID != "" {
		that.enterRoom(ctx, sess, resumeID)
	}

	log.Info("successfully connected player", "playerID", player.ID, "roomID", resumeID)

	return nil
}

// resumableRoom returns the player's last room if it still exists and still seats them.
func (that *Server) resumableRoom(ctx context.Context, player *entity.Player) string {
	if player.RoomID == "" {
		return ""
	}

	log := that.logger.With("method", "resumableRoom", "playerID", player.ID, "roomID", player.RoomID)

	// participants rejoin without a write, so this only confirms the seat
	seated, err := that.directory.JoinRoom(ctx, player.RoomID, player.ID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		log.Info("previous room is gone")
		return ""
	}

	if err != nil {
		log.Warn("failed to resume room", "error", err)
		return ""
	}

	if !seated {
		return ""
	}

	return player.RoomID
}

func (that *Server) handleLocalNew(_ context.Context, sess *session, msg *Message) error {
	payloadReq, err := decodePayload(msg)
	if err != nil {
		sess.sendError(msg.Action, "invalid payload")
		return err
	}

	mode, err := match.ParseMode(payloadReq.Mode)
	if err != nil {
		sess.sendError(msg.Action, err.Error())
		return nil
	}

	sess.local = match.NewLocalController(that.logger, mode)
	sess.localState = sess.local.Reset()

	that.sendLocalState(sess, msg.Action)

	return nil
}

func (that *Server) handleLocalTurn(_ context.Context, sess *session, msg *Message) error {
	if sess.local == nil {
		sess.sendError(msg.Action, "no local match in progress")
		return nil
	}

	payloadReq, err := decodePayload(msg)
	if err != nil {
		sess.sendError(msg.Action, "invalid payload")
		return err
	}

	if payloadReq.Cell == nil {
		sess.sendError(msg.Action, "cell is required")
		return nil
	}

	mark := payloadReq.Mark
	if mark == "" {
		mark = sess.localState.Turn
	}

	// rejected moves leave the state as it was; the client just redraws it
	sess.localState = sess.local.ApplyMove(sess.localState, *payloadReq.Cell, mark)

	that.sendLocalState(sess, msg.Action)

	return nil
}

func (that *Server) handleLocalReset(_ context.Context, sess *session, msg *Message) error {
	if sess.local == nil {
		sess.sendError(msg.Action, "no local match in progress")
		return nil
	}

	sess.localState = sess.local.Reset()

	that.sendLocalState(sess, msg.Action)

	return nil
}

func (that *Server) sendLocalState(sess *session, action string) {
	state := newStateResponse(sess.localState)
	state.Mode = string(sess.local.Mode())

	sess.send(action, ResponsePayload{State: state})
}

func (that *Server) handleRoomCreate(ctx context.Context, sess *session, msg *Message) error {
	if sess.player == nil {
		sess.sendError(msg.Action, "connect first")
		return nil
	}

	roomID, err := that.directory.CreateRoom(ctx, sess.player.ID)
	if err != nil {
		sess.sendError(msg.Action, "failed to create room")
		return fmt.Errorf("failed to create room: %w", err)
	}

	sess.send(msg.Action, ResponsePayload{RoomID: roomID})
	that.enterRoom(ctx, sess, roomID)

	return nil
}

func (that *Server) handleRoomList(ctx context.Context, sess *session, msg *Message) error {
	sess.send(msg.Action, ResponsePayload{Rooms: that.directory.ListOpenRooms(ctx)})
	return nil
}

func (that *Server) handleRoomJoin(ctx context.Context, sess *session, msg *Message) error {
	if sess.player == nil {
		sess.sendError(msg.Action, "connect first")
		return nil
	}

	payloadReq, err := decodePayload(msg)
	if err != nil {
		sess.sendError(msg.Action, "invalid payload")
		return err
	}

	if payloadReq.RoomID == "" {
		sess.sendError(msg.Action, "room_id is required")
		return nil
	}

	joined, err := that.directory.JoinRoom(ctx, payloadReq.RoomID, sess.player.ID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		sess.sendError(msg.Action, err.Error())
		return nil
	}

	if err != nil {
		sess.sendError(msg.Action, "failed to join room")
		return fmt.Errorf("failed to join room %s: %w", payloadReq.RoomID, err)
	}

	sess.send(msg.Action, ResponsePayload{RoomID: payloadReq.RoomID, Joined: &joined})

	if joined {
		that.enterRoom(ctx, sess, payloadReq.RoomID)
	}

	return nil
}

func (that *Server) handleRoomTurn(ctx context.Context, sess *session, msg *Message) error {
	if sess.online == nil {
		sess.sendError(msg.Action, "not in a room")
		return nil
	}

	payloadReq, err := decodePayload(msg)
	if err != nil {
		sess.sendError(msg.Action, "invalid payload")
		return err
	}

	if payloadReq.Cell == nil {
		sess.sendError(msg.Action, "cell is required")
		return nil
	}

	// the new board arrives as room:state once the directory has stored it
	accepted := sess.online.RequestMove(ctx, *payloadReq.Cell)
	sess.send(msg.Action, ResponsePayload{RoomID: sess.online.RoomID(), Accepted: &accepted})

	return nil
}

// enterRoom replaces the session's room mirror and pushes every applied snapshot as room:state.
func (that *Server) enterRoom(ctx context.Context, sess *session, roomID string) {
	sess.leaveRoom()

	onlineCtx, cancel := context.WithCancel(ctx)
	controller := match.NewOnlineController(that.logger, that.directory, roomID, sess.playerID())

	sess.online = controller
	sess.stopOnline = cancel

	go func() {
		defer cancel()

		err := controller.Run(onlineCtx, func(state entity.MatchState) {
			resp := newStateResponse(state)
			resp.RoomID = roomID
			resp.Symbol = controller.Symbol()

			sess.send(actionRoomState, ResponsePayload{State: resp})
		})
		if err != nil {
			that.logger.Error("room subscription failed", "roomID", roomID, "error", err)
			sess.send(actionRoomState, ResponsePayload{RoomID: roomID, Error: "room is unavailable"})
		}
	}()
}
