// Package messages defines the protoactor-go message types passed between
// the transport adapters, the session actor and the room actor. They are the
// concrete realization of spec.md §3's InputEvent/OutputEvent taxonomy: a
// protoactor *actor.PID mailbox is the "non-blocking, unbounded enqueue
// endpoint" the spec calls an OutputSink, so room->session fan-out is plain
// ctx.Send to the member's PID, and session->room requests are plain
// ctx.Send to the room's PID.
package messages

import (
	"github.com/asynkron/protoactor-go/actor"

	"github.com/phuhao00/roomrealm/internal/entity"
	"github.com/phuhao00/roomrealm/internal/protocol"
)

// OutputWriter is how a session actor pushes a decoded ServerMessage back out
// through whichever transport owns the connection. Implementations must be
// safe to call from the session actor's Receive goroutine and must not block
// the actor on a slow peer for long; TCP/WebSocket/gRPC adapters each write
// straight to the connection or stream, serialized by a mutex.
type OutputWriter interface {
	Send(msg *protocol.ServerMessage) error
	Close()
}

// Connected is sent once by a transport adapter right after it spawns a
// session actor for a new connection.
type Connected struct {
	Writer OutputWriter
}

// InboundClientMessage carries one decoded ClientMessage from the transport.
type InboundClientMessage struct {
	Msg *protocol.ClientMessage
}

// TransportClosed is sent by a transport adapter when it detects peer
// disconnect or read EOF, a fatal decode error, or (TCP only) server
// shutdown. Write failures do not go through this message: the session
// actor detects them itself when an OutputWriter.Send fails.
type TransportClosed struct {
	Reason string
}

// --- Room-directed input events (session -> room) ---

// RoomJoin asks a room actor to admit a player.
type RoomJoin struct {
	PlayerId        entity.PlayerId
	PlayerPID       *actor.PID
	RequestedConfig entity.RoomConfig
}

// RoomLeave asks a room actor to remove a player.
type RoomLeave struct {
	PlayerId entity.PlayerId
}

// RoomMessage asks a room actor to fan a message body out to targets (or
// broadcast, if TargetIds is empty).
type RoomMessage struct {
	SenderId  entity.PlayerId
	TargetIds []entity.PlayerId
	Body      []byte
}

// --- Room-originated output events (room -> session, sent to member PIDs) ---

// RoomJoinOk is broadcast to every member (including the new joiner) on a
// successful join.
type RoomJoinOk struct {
	RoomId        entity.RoomId
	PlayerId      entity.PlayerId
	RoomPlayerIds []entity.PlayerId
	RoomConfig    entity.RoomConfig
}

// RoomJoinErr is sent only to the rejected joiner.
type RoomJoinErr struct {
	Kind     entity.JoinErrorKind
	RoomId   entity.RoomId
	PlayerId entity.PlayerId
}

// RoomLeaveOk is broadcast to every member still in the room, including the
// leaver, before the leaver is actually removed from the membership map.
type RoomLeaveOk struct {
	RoomId   entity.RoomId
	PlayerId entity.PlayerId
}

// RoomMessageEvent is delivered to broadcast recipients or unicast targets.
type RoomMessageEvent struct {
	RoomId   entity.RoomId
	SenderId entity.PlayerId
	Body     []byte
}
