package actor

import (
	"github.com/asynkron/protoactor-go/actor"

	"github.com/phuhao00/roomrealm/internal/actor/messages"
	"github.com/phuhao00/roomrealm/internal/entity"
	"github.com/phuhao00/roomrealm/internal/logging"
	"github.com/phuhao00/roomrealm/internal/metrics"
	"github.com/phuhao00/roomrealm/internal/registry"
)

// RoomActor owns one room's membership and serializes every join, leave and
// message fan-out through its single mailbox (spec.md §4.2). There is no
// locking inside it: the protoactor mailbox is the serialization point, so
// "at most one event processed at a time" falls out of the actor model for
// free rather than needing an explicit mutex the way the teacher's
// RoomManagerActor needs one for its process-wide maps.
type RoomActor struct {
	roomID   entity.RoomId
	config   entity.RoomConfig
	players  map[entity.PlayerId]*actor.PID
	registry *registry.RoomRegistry
}

// NewRoomActor constructs a RoomActor. registry is the room registry this
// actor must remove itself from on self-termination.
func NewRoomActor(roomID entity.RoomId, config entity.RoomConfig, reg *registry.RoomRegistry) actor.Actor {
	return &RoomActor{
		roomID:   roomID,
		config:   config,
		players:  make(map[entity.PlayerId]*actor.PID),
		registry: reg,
	}
}

// PropsForRoom builds actor.Props for a RoomActor.
func PropsForRoom(roomID entity.RoomId, config entity.RoomConfig, reg *registry.RoomRegistry) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor {
		return NewRoomActor(roomID, config, reg)
	})
}

func (a *RoomActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		logging.Debugf("room %s started, max_players=%d", a.roomID, a.config.MaxPlayers)
		return // nothing to re-check; a freshly started room has no members yet

	case *messages.RoomJoin:
		a.handleJoin(ctx, msg)

	case *messages.RoomLeave:
		a.handleLeave(ctx, msg)

	case *messages.RoomMessage:
		a.handleMessage(ctx, msg)

	default:
		return
	}

	a.terminateIfEmpty(ctx)
}

func (a *RoomActor) handleJoin(ctx actor.Context, msg *messages.RoomJoin) {
	if a.config != msg.RequestedConfig {
		logging.Debugf("room %s: join rejected for %s, config mismatch", a.roomID, msg.PlayerId)
		metrics.JoinAttemptsTotal.WithLabelValues("config_mismatch").Inc()
		ctx.Send(msg.PlayerPID, &messages.RoomJoinErr{
			Kind:     entity.JoinErrConfigMismatch,
			RoomId:   a.roomID,
			PlayerId: msg.PlayerId,
		})
		return
	}

	if _, exists := a.players[msg.PlayerId]; exists {
		logging.Debugf("room %s: join rejected for %s, already joined", a.roomID, msg.PlayerId)
		metrics.JoinAttemptsTotal.WithLabelValues("already_joined").Inc()
		ctx.Send(msg.PlayerPID, &messages.RoomJoinErr{
			Kind:     entity.JoinErrAlreadyJoined,
			RoomId:   a.roomID,
			PlayerId: msg.PlayerId,
		})
		return
	}

	if uint32(len(a.players)) >= a.config.MaxPlayers {
		logging.Debugf("room %s: join rejected for %s, room full (%d/%d)", a.roomID, msg.PlayerId, len(a.players), a.config.MaxPlayers)
		metrics.JoinAttemptsTotal.WithLabelValues("room_full").Inc()
		ctx.Send(msg.PlayerPID, &messages.RoomJoinErr{
			Kind:     entity.JoinErrRoomFull,
			RoomId:   a.roomID,
			PlayerId: msg.PlayerId,
		})
		return
	}

	a.players[msg.PlayerId] = msg.PlayerPID
	metrics.JoinAttemptsTotal.WithLabelValues("ok").Inc()
	logging.Infof("room %s: %s joined (%d/%d)", a.roomID, msg.PlayerId, len(a.players), a.config.MaxPlayers)

	ok := &messages.RoomJoinOk{
		RoomId:        a.roomID,
		PlayerId:      msg.PlayerId,
		RoomPlayerIds: a.memberIDs(),
		RoomConfig:    a.config,
	}
	a.broadcast(ctx, ok)
}

func (a *RoomActor) handleLeave(ctx actor.Context, msg *messages.RoomLeave) {
	if _, exists := a.players[msg.PlayerId]; !exists {
		logging.Debugf("room %s: leave ignored for %s, not a member (double leave?)", a.roomID, msg.PlayerId)
		return
	}

	a.broadcast(ctx, &messages.RoomLeaveOk{RoomId: a.roomID, PlayerId: msg.PlayerId})
	delete(a.players, msg.PlayerId)
	logging.Infof("room %s: %s left (%d/%d)", a.roomID, msg.PlayerId, len(a.players), a.config.MaxPlayers)
}

func (a *RoomActor) handleMessage(ctx actor.Context, msg *messages.RoomMessage) {
	event := &messages.RoomMessageEvent{
		RoomId:   a.roomID,
		SenderId: msg.SenderId,
		Body:     msg.Body,
	}

	if len(msg.TargetIds) == 0 {
		metrics.RoomMessagesTotal.WithLabelValues("broadcast").Inc()
		a.broadcast(ctx, event)
		return
	}

	metrics.RoomMessagesTotal.WithLabelValues("unicast").Inc()
	for _, target := range msg.TargetIds {
		pid, exists := a.players[target]
		if !exists {
			logging.Warnf("room %s: message target %s is not a member, skipping", a.roomID, target)
			continue
		}
		ctx.Send(pid, event)
	}
}

func (a *RoomActor) broadcast(ctx actor.Context, event interface{}) {
	for _, pid := range a.players {
		ctx.Send(pid, event)
	}
}

func (a *RoomActor) memberIDs() []entity.PlayerId {
	ids := make([]entity.PlayerId, 0, len(a.players))
	for id := range a.players {
		ids = append(ids, id)
	}
	return ids
}

// terminateIfEmpty implements the room's state machine (spec.md §4.2):
// Active -> Terminated the moment membership hits zero after processing an
// event. Removal from the registry happens before the mailbox stops being
// drained, under the registry's write lock, so a GetOrCreate racing this
// self-termination either observes the removal and spawns a fresh room, or
// never gets a chance to race at all.
func (a *RoomActor) terminateIfEmpty(ctx actor.Context) {
	if len(a.players) != 0 {
		return
	}
	logging.Infof("room %s: empty, self-terminating", a.roomID)
	a.registry.Remove(a.roomID)
	ctx.Stop(ctx.Self())
}
