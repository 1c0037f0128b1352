package actor_test

import (
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	roomactor "github.com/phuhao00/roomrealm/internal/actor"
	"github.com/phuhao00/roomrealm/internal/actor/messages"
	"github.com/phuhao00/roomrealm/internal/entity"
	"github.com/phuhao00/roomrealm/internal/registry"
)

// memberProbe stands in for a session actor: it's a plain actor that records
// every message delivered to it on a channel so a test can assert on room
// broadcast/unicast behavior without spinning up a full SessionActor.
type memberProbe struct {
	received chan interface{}
}

func newMemberProbe() *memberProbe {
	return &memberProbe{received: make(chan interface{}, 32)}
}

func (p *memberProbe) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case *actor.Started, *actor.Stopping, *actor.Stopped:
		return
	}
	p.received <- ctx.Message()
}

func (p *memberProbe) next(t *testing.T, timeout time.Duration) interface{} {
	t.Helper()
	select {
	case msg := <-p.received:
		return msg
	case <-time.After(timeout):
		require.Fail(t, "timed out waiting for message at member probe")
		return nil
	}
}

func spawnProbe(system *actor.ActorSystem) (*actor.PID, *memberProbe) {
	probe := newMemberProbe()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return probe }))
	return pid, probe
}

func newTestRoomRegistry(system *actor.ActorSystem) *registry.RoomRegistry {
	var reg *registry.RoomRegistry
	reg = registry.NewRoomRegistry(func(id entity.RoomId, cfg entity.RoomConfig) *actor.PID {
		return system.Root.Spawn(roomactor.PropsForRoom(id, cfg, reg))
	})
	return reg
}

func TestRoomActorJoinBroadcastsToAllMembers(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()

	rooms := newTestRoomRegistry(system)
	cfg := entity.RoomConfig{MaxPlayers: 2}
	roomPID := rooms.GetOrCreate("room-1", cfg)

	alicePID, alice := spawnProbe(system)
	system.Root.Send(roomPID, &messages.RoomJoin{PlayerId: "alice", PlayerPID: alicePID, RequestedConfig: cfg})

	msg, ok := alice.next(t, time.Second).(*messages.RoomJoinOk)
	require.True(t, ok, "expected a RoomJoinOk")
	assert.Equal(t, entity.PlayerId("alice"), msg.PlayerId)
	assert.Equal(t, entity.RoomId("room-1"), msg.RoomId)
	assert.Equal(t, []entity.PlayerId{"alice"}, msg.RoomPlayerIds)

	bobPID, bob := spawnProbe(system)
	system.Root.Send(roomPID, &messages.RoomJoin{PlayerId: "bob", PlayerPID: bobPID, RequestedConfig: cfg})

	bobMsg, ok := bob.next(t, time.Second).(*messages.RoomJoinOk)
	require.True(t, ok, "expected bob's own join ok")
	assert.Equal(t, entity.PlayerId("bob"), bobMsg.PlayerId)

	// Alice, already a member, must also observe bob's join.
	aliceMsg, ok := alice.next(t, time.Second).(*messages.RoomJoinOk)
	require.True(t, ok, "expected alice to observe bob's join")
	assert.Equal(t, entity.PlayerId("bob"), aliceMsg.PlayerId)
}

func TestRoomActorRejectsConfigMismatch(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()

	rooms := newTestRoomRegistry(system)
	roomPID := rooms.GetOrCreate("room-1", entity.RoomConfig{MaxPlayers: 2})

	pid, probe := spawnProbe(system)
	system.Root.Send(roomPID, &messages.RoomJoin{PlayerId: "alice", PlayerPID: pid, RequestedConfig: entity.RoomConfig{MaxPlayers: 5}})

	msg, ok := probe.next(t, time.Second).(*messages.RoomJoinErr)
	require.True(t, ok, "expected a RoomJoinErr")
	assert.Equal(t, entity.JoinErrConfigMismatch, msg.Kind)
}

func TestRoomActorRejectsAlreadyJoined(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()

	rooms := newTestRoomRegistry(system)
	cfg := entity.RoomConfig{MaxPlayers: 2}
	roomPID := rooms.GetOrCreate("room-1", cfg)

	pid, probe := spawnProbe(system)
	system.Root.Send(roomPID, &messages.RoomJoin{PlayerId: "alice", PlayerPID: pid, RequestedConfig: cfg})
	probe.next(t, time.Second) // initial JoinOk

	system.Root.Send(roomPID, &messages.RoomJoin{PlayerId: "alice", PlayerPID: pid, RequestedConfig: cfg})
	msg, ok := probe.next(t, time.Second).(*messages.RoomJoinErr)
	require.True(t, ok, "expected a RoomJoinErr")
	assert.Equal(t, entity.JoinErrAlreadyJoined, msg.Kind)
}

func TestRoomActorRejectsWhenFull(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()

	rooms := newTestRoomRegistry(system)
	cfg := entity.RoomConfig{MaxPlayers: 1}
	roomPID := rooms.GetOrCreate("room-1", cfg)

	alicePID, alice := spawnProbe(system)
	system.Root.Send(roomPID, &messages.RoomJoin{PlayerId: "alice", PlayerPID: alicePID, RequestedConfig: cfg})
	alice.next(t, time.Second)

	bobPID, bob := spawnProbe(system)
	system.Root.Send(roomPID, &messages.RoomJoin{PlayerId: "bob", PlayerPID: bobPID, RequestedConfig: cfg})
	msg, ok := bob.next(t, time.Second).(*messages.RoomJoinErr)
	require.True(t, ok, "expected a RoomJoinErr")
	assert.Equal(t, entity.JoinErrRoomFull, msg.Kind)
}

func TestRoomActorLeaveBroadcastsThenSelfTerminates(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()

	rooms := newTestRoomRegistry(system)
	cfg := entity.RoomConfig{MaxPlayers: 2}
	roomPID := rooms.GetOrCreate("room-1", cfg)

	pid, probe := spawnProbe(system)
	system.Root.Send(roomPID, &messages.RoomJoin{PlayerId: "alice", PlayerPID: pid, RequestedConfig: cfg})
	probe.next(t, time.Second)

	system.Root.Send(roomPID, &messages.RoomLeave{PlayerId: "alice"})
	msg, ok := probe.next(t, time.Second).(*messages.RoomLeaveOk)
	require.True(t, ok, "expected a RoomLeaveOk")
	assert.Equal(t, entity.PlayerId("alice"), msg.PlayerId)
	assert.Equal(t, entity.RoomId("room-1"), msg.RoomId)

	assert.Eventually(t, func() bool {
		return rooms.Count() == 0
	}, time.Second, 10*time.Millisecond, "expected room to self-terminate and be removed from the registry after emptying")
}

func TestRoomActorMessageBroadcastAndUnicast(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()

	rooms := newTestRoomRegistry(system)
	cfg := entity.RoomConfig{MaxPlayers: 3}
	roomPID := rooms.GetOrCreate("room-1", cfg)

	alicePID, alice := spawnProbe(system)
	system.Root.Send(roomPID, &messages.RoomJoin{PlayerId: "alice", PlayerPID: alicePID, RequestedConfig: cfg})
	alice.next(t, time.Second)

	bobPID, bob := spawnProbe(system)
	system.Root.Send(roomPID, &messages.RoomJoin{PlayerId: "bob", PlayerPID: bobPID, RequestedConfig: cfg})
	bob.next(t, time.Second)
	alice.next(t, time.Second) // alice observes bob's join

	system.Root.Send(roomPID, &messages.RoomMessage{SenderId: "alice", Body: []byte("hi all")})
	aliceEvent, ok := alice.next(t, time.Second).(*messages.RoomMessageEvent)
	require.True(t, ok, "expected a RoomMessageEvent for alice")
	bobEvent, ok := bob.next(t, time.Second).(*messages.RoomMessageEvent)
	require.True(t, ok, "expected a RoomMessageEvent for bob")
	assert.Equal(t, "hi all", string(aliceEvent.Body))
	assert.Equal(t, "hi all", string(bobEvent.Body))

	system.Root.Send(roomPID, &messages.RoomMessage{SenderId: "alice", TargetIds: []entity.PlayerId{"bob"}, Body: []byte("psst")})
	unicastEvent, ok := bob.next(t, time.Second).(*messages.RoomMessageEvent)
	require.True(t, ok, "expected a unicast RoomMessageEvent for bob")
	assert.Equal(t, "psst", string(unicastEvent.Body))

	select {
	case msg := <-alice.received:
		assert.Fail(t, "alice should not receive a unicast targeted at bob", "got %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
