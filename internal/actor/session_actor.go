package actor

import (
	"github.com/asynkron/protoactor-go/actor"

	"github.com/phuhao00/roomrealm/internal/actor/messages"
	"github.com/phuhao00/roomrealm/internal/entity"
	"github.com/phuhao00/roomrealm/internal/logging"
	"github.com/phuhao00/roomrealm/internal/metrics"
	"github.com/phuhao00/roomrealm/internal/protocol"
	"github.com/phuhao00/roomrealm/internal/registry"
)

// SessionActor owns one connection for its whole lifetime: pre-login, the
// steady state of join/leave/message traffic, and termination cleanup
// (spec.md §4.1). It never touches the network directly; a transport adapter
// pushes decoded client messages in via InboundClientMessage and receives
// decoded server messages back out through the OutputWriter it handed over
// in Connected.
type SessionActor struct {
	bearerToken string

	players *registry.PlayerRegistry
	rooms   *registry.RoomRegistry

	writer      messages.OutputWriter
	playerID    entity.PlayerId
	loggedIn    bool
	joinedRooms map[entity.RoomId]*actor.PID
	terminated  bool
}

// NewSessionActor constructs a SessionActor. bearerToken is the single
// shared secret every LoginRequest's AuthConfig.Bearer.Token must match.
func NewSessionActor(bearerToken string, players *registry.PlayerRegistry, rooms *registry.RoomRegistry) actor.Actor {
	return &SessionActor{
		bearerToken: bearerToken,
		players:     players,
		rooms:       rooms,
		joinedRooms: make(map[entity.RoomId]*actor.PID),
	}
}

// PropsForSession builds actor.Props for a SessionActor.
func PropsForSession(bearerToken string, players *registry.PlayerRegistry, rooms *registry.RoomRegistry) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor {
		return NewSessionActor(bearerToken, players, rooms)
	})
}

func (a *SessionActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		metrics.ActiveSessions.Inc()
		logging.Debugf("session %s started", ctx.Self().Id)

	case *actor.Stopped:
		metrics.ActiveSessions.Dec()
		logging.Debugf("session %s stopped, player=%q", ctx.Self().Id, a.playerID)

	case *messages.Connected:
		a.writer = msg.Writer

	case *messages.InboundClientMessage:
		a.handleInbound(ctx, msg.Msg)

	case *messages.TransportClosed:
		logging.Debugf("session %s: transport closed (%s)", ctx.Self().Id, msg.Reason)
		a.terminate(ctx)

	case *messages.RoomJoinOk:
		a.handleRoomJoinOk(ctx, msg)

	case *messages.RoomJoinErr:
		a.handleRoomJoinErr(ctx, msg)

	case *messages.RoomLeaveOk:
		a.handleRoomLeaveOk(ctx, msg)

	case *messages.RoomMessageEvent:
		a.emit(ctx, &protocol.ServerMessage{MessageNotification: &protocol.MessageNotification{
			RoomId:   msg.RoomId,
			SenderId: msg.SenderId,
			Body:     msg.Body,
		}})
	}
}

// handleInbound dispatches one decoded ClientMessage according to whichever
// lifecycle phase the session is currently in.
func (a *SessionActor) handleInbound(ctx actor.Context, msg *protocol.ClientMessage) {
	if !a.loggedIn {
		if msg.LoginRequest == nil {
			logging.Debugf("session %s: pre-login message that is not a LoginRequest, terminating", ctx.Self().Id)
			a.terminate(ctx)
			return
		}
		a.handleLogin(ctx, msg.LoginRequest)
		return
	}

	switch {
	case msg.LoginRequest != nil:
		a.emit(ctx, &protocol.ServerMessage{LoginResponse: &protocol.LoginResponse{
			Error: protocol.ErrorOf(entity.ErrAlreadyLoggedIn, "already logged in"),
		}})

	case msg.JoinRequest != nil:
		a.handleJoinRequest(ctx, msg.JoinRequest)

	case msg.LeaveRequest != nil:
		a.handleLeaveRequest(ctx, msg.LeaveRequest)

	case msg.SendMessage != nil:
		a.handleSendMessage(ctx, msg.SendMessage)
	}
}

func (a *SessionActor) handleLogin(ctx actor.Context, req *protocol.LoginRequest) {
	if !a.players.TryInsert(req.PlayerId) {
		a.emit(ctx, &protocol.ServerMessage{LoginResponse: &protocol.LoginResponse{
			Error: protocol.ErrorOf(entity.ErrAlreadyLoggedIn, "player already logged in"),
		}})
		a.terminate(ctx)
		return
	}

	if req.AuthConfig == nil || req.AuthConfig.Bearer == nil || req.AuthConfig.Bearer.Token != a.bearerToken {
		a.emit(ctx, &protocol.ServerMessage{LoginResponse: &protocol.LoginResponse{
			Error: protocol.ErrorOf(entity.ErrUnauthorized, "invalid or missing bearer token"),
		}})
		a.players.Remove(req.PlayerId)
		a.terminate(ctx)
		return
	}

	a.playerID = req.PlayerId
	a.loggedIn = true
	logging.Infof("session %s: player %s logged in", ctx.Self().Id, a.playerID)
	a.emit(ctx, &protocol.ServerMessage{LoginResponse: &protocol.LoginResponse{Error: protocol.NoError()}})
}

func (a *SessionActor) handleJoinRequest(ctx actor.Context, req *protocol.JoinRequest) {
	requestedConfig := entity.DefaultRoomConfig()
	if req.RoomConfig != nil {
		requestedConfig = *req.RoomConfig
	}

	pid := a.rooms.GetOrCreate(req.RoomId, requestedConfig)
	if !a.roomAlive(ctx, pid) {
		// The room self-terminated between GetOrCreate returning and this
		// check; the registry entry is already gone too by the time this
		// observation happens (spec.md §4.1, §9 invariant 3).
		a.emit(ctx, &protocol.ServerMessage{JoinResponse: &protocol.JoinResponse{
			RoomId:         req.RoomId,
			CurrentPlayers: []entity.PlayerId{},
			Error:          protocol.ErrorOf(entity.ErrRoomNotFound, "room not found"),
		}})
		return
	}

	ctx.Send(pid, &messages.RoomJoin{
		PlayerId:        a.playerID,
		PlayerPID:       ctx.Self(),
		RequestedConfig: requestedConfig,
	})
}

func (a *SessionActor) handleLeaveRequest(ctx actor.Context, req *protocol.LeaveRequest) {
	pid, ok := a.rooms.Get(req.RoomId)
	if !ok {
		a.emit(ctx, &protocol.ServerMessage{LeaveResponse: &protocol.LeaveResponse{
			RoomId: req.RoomId,
			Error:  protocol.ErrorOf(entity.ErrFailedPrecondition, "not joined to this room"),
		}})
		return
	}
	ctx.Send(pid, &messages.RoomLeave{PlayerId: a.playerID})
}

func (a *SessionActor) handleSendMessage(ctx actor.Context, req *protocol.SendMessage) {
	pid, ok := a.rooms.Get(req.RoomId)
	if !ok {
		return // messaging is best-effort; silently drop
	}
	ctx.Send(pid, &messages.RoomMessage{
		SenderId:  a.playerID,
		TargetIds: req.TargetIds,
		Body:      req.Body,
	})
}

func (a *SessionActor) handleRoomJoinOk(ctx actor.Context, msg *messages.RoomJoinOk) {
	if msg.PlayerId != a.playerID {
		a.emit(ctx, &protocol.ServerMessage{JoinNotification: &protocol.JoinNotification{
			RoomId:   msg.RoomId,
			PlayerId: msg.PlayerId,
		}})
		return
	}

	pid, ok := a.rooms.Get(msg.RoomId)
	if !ok {
		a.emit(ctx, &protocol.ServerMessage{JoinResponse: &protocol.JoinResponse{
			RoomId:         msg.RoomId,
			CurrentPlayers: []entity.PlayerId{},
			Error:          protocol.ErrorOf(entity.ErrRoomNotFound, "room not found"),
		}})
		return
	}

	a.joinedRooms[msg.RoomId] = pid
	cfg := msg.RoomConfig
	a.emit(ctx, &protocol.ServerMessage{JoinResponse: &protocol.JoinResponse{
		RoomId:         msg.RoomId,
		CurrentPlayers: msg.RoomPlayerIds,
		RoomConfig:     &cfg,
		Error:          protocol.NoError(),
	}})
}

func (a *SessionActor) handleRoomJoinErr(ctx actor.Context, msg *messages.RoomJoinErr) {
	a.emit(ctx, &protocol.ServerMessage{JoinResponse: &protocol.JoinResponse{
		RoomId:         msg.RoomId,
		CurrentPlayers: []entity.PlayerId{},
		Error:          protocol.ErrorOf(msg.Kind.ErrorCode(), msg.Kind.String()),
	}})
}

func (a *SessionActor) handleRoomLeaveOk(ctx actor.Context, msg *messages.RoomLeaveOk) {
	if msg.PlayerId != a.playerID {
		a.emit(ctx, &protocol.ServerMessage{LeaveNotification: &protocol.LeaveNotification{
			RoomId:   msg.RoomId,
			PlayerId: msg.PlayerId,
		}})
		return
	}

	delete(a.joinedRooms, msg.RoomId)
	a.emit(ctx, &protocol.ServerMessage{LeaveResponse: &protocol.LeaveResponse{
		RoomId: msg.RoomId,
		Error:  protocol.NoError(),
	}})
}

// roomAlive reports whether pid still has a live process registered. Used
// only to detect a room that self-terminated between GetOrCreate and the
// Send. A room removes its registry entry under the registry lock and only
// then stops its process, so a room that is already stopping can still pass
// this check; a RoomJoin sent to it is dropped without a reply.
func (a *SessionActor) roomAlive(ctx actor.Context, pid *actor.PID) bool {
	_, ok := ctx.ActorSystem().ProcessRegistry.Get(pid)
	return ok
}

// emit pushes one ServerMessage out through the transport. A write failure
// is a session-fatal error (spec.md §7): the peer is presumed gone.
func (a *SessionActor) emit(ctx actor.Context, msg *protocol.ServerMessage) {
	if a.writer == nil {
		return
	}
	if err := a.writer.Send(msg); err != nil {
		logging.Warnf("session %s: write failed, terminating: %v", ctx.Self().Id, err)
		a.terminate(ctx)
	}
}

// terminate runs the leave-all/unregister cleanup exactly once and stops the
// actor (spec.md §4.1 phase 3, §7 session-fatal errors).
func (a *SessionActor) terminate(ctx actor.Context) {
	if a.terminated {
		return
	}
	a.terminated = true

	for roomID, pid := range a.joinedRooms {
		ctx.Send(pid, &messages.RoomLeave{PlayerId: a.playerID})
		delete(a.joinedRooms, roomID)
	}

	if a.loggedIn {
		a.players.Remove(a.playerID)
	}

	if a.writer != nil {
		a.writer.Close()
	}

	ctx.Stop(ctx.Self())
}
