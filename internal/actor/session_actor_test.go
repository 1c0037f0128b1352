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
	"github.com/phuhao00/roomrealm/internal/protocol"
	"github.com/phuhao00/roomrealm/internal/registry"
)

const testBearerToken = "s3cr3t"

func newTestSession(t *testing.T, system *actor.ActorSystem, players *registry.PlayerRegistry, rooms *registry.RoomRegistry) (*actor.PID, *fakeWriter) {
	t.Helper()
	pid := system.Root.Spawn(roomactor.PropsForSession(testBearerToken, players, rooms))
	w := newFakeWriter()
	system.Root.Send(pid, &messages.Connected{Writer: w})
	return pid, w
}

func login(t *testing.T, system *actor.ActorSystem, pid *actor.PID, w *fakeWriter, playerID, token string) *protocol.LoginResponse {
	t.Helper()
	system.Root.Send(pid, &messages.InboundClientMessage{Msg: &protocol.ClientMessage{
		LoginRequest: &protocol.LoginRequest{
			PlayerId:   playerID,
			AuthConfig: &protocol.AuthConfig{Bearer: &protocol.BearerAuth{Token: token}},
		},
	}})
	resp := w.next(t, time.Second)
	require.NotNil(t, resp.LoginResponse, "expected a LoginResponse, got %+v", resp)
	return resp.LoginResponse
}

func TestSessionActorLoginSuccess(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()
	players := registry.NewPlayerRegistry()
	rooms := registry.NewRoomRegistry(func(id entity.RoomId, cfg entity.RoomConfig) *actor.PID { return nil })

	pid, w := newTestSession(t, system, players, rooms)
	resp := login(t, system, pid, w, "alice", testBearerToken)
	assert.Equal(t, entity.ErrNone, resp.Error.Code)
	assert.True(t, players.Contains("alice"), "expected alice to be registered in the player registry after login")
}

func TestSessionActorRejectsBadToken(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()
	players := registry.NewPlayerRegistry()
	rooms := registry.NewRoomRegistry(func(id entity.RoomId, cfg entity.RoomConfig) *actor.PID { return nil })

	pid, w := newTestSession(t, system, players, rooms)
	resp := login(t, system, pid, w, "alice", "wrong-token")
	assert.Equal(t, entity.ErrUnauthorized, resp.Error.Code)
	assert.False(t, players.Contains("alice"), "expected alice to be removed from the registry after failed auth")
}

func TestSessionActorRejectsDuplicateLoginAtPreLogin(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()
	players := registry.NewPlayerRegistry()
	rooms := registry.NewRoomRegistry(func(id entity.RoomId, cfg entity.RoomConfig) *actor.PID { return nil })
	players.TryInsert("alice") // simulate another session already holding "alice"

	pid, w := newTestSession(t, system, players, rooms)
	resp := login(t, system, pid, w, "alice", testBearerToken)
	assert.Equal(t, entity.ErrAlreadyLoggedIn, resp.Error.Code)
}

func TestSessionActorPreLoginNonLoginMessageTerminates(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()
	players := registry.NewPlayerRegistry()
	rooms := registry.NewRoomRegistry(func(id entity.RoomId, cfg entity.RoomConfig) *actor.PID { return nil })

	pid, w := newTestSession(t, system, players, rooms)
	system.Root.Send(pid, &messages.InboundClientMessage{Msg: &protocol.ClientMessage{
		LeaveRequest: &protocol.LeaveRequest{RoomId: "room-1"},
	}})

	assert.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.closed
	}, time.Second, 10*time.Millisecond, "expected session to terminate (closing its writer) on a pre-login non-LoginRequest message")
}

func TestSessionActorJoinThenLeaveRoundTrip(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()
	players := registry.NewPlayerRegistry()

	var rooms *registry.RoomRegistry
	rooms = registry.NewRoomRegistry(func(id entity.RoomId, cfg entity.RoomConfig) *actor.PID {
		return system.Root.Spawn(roomactor.PropsForRoom(id, cfg, rooms))
	})

	pid, w := newTestSession(t, system, players, rooms)
	login(t, system, pid, w, "alice", testBearerToken)

	system.Root.Send(pid, &messages.InboundClientMessage{Msg: &protocol.ClientMessage{
		JoinRequest: &protocol.JoinRequest{RoomId: "room-1"},
	}})
	joinResp := w.next(t, time.Second)
	require.NotNil(t, joinResp.JoinResponse, "expected a JoinResponse, got %+v", joinResp)
	assert.Equal(t, entity.ErrNone, joinResp.JoinResponse.Error.Code)
	assert.Equal(t, []entity.PlayerId{"alice"}, joinResp.JoinResponse.CurrentPlayers)

	system.Root.Send(pid, &messages.InboundClientMessage{Msg: &protocol.ClientMessage{
		LeaveRequest: &protocol.LeaveRequest{RoomId: "room-1"},
	}})
	leaveResp := w.next(t, time.Second)
	require.NotNil(t, leaveResp.LeaveResponse, "expected a LeaveResponse, got %+v", leaveResp)
	assert.Equal(t, entity.ErrNone, leaveResp.LeaveResponse.Error.Code)

	assert.Eventually(t, func() bool {
		return rooms.Count() == 0
	}, time.Second, 10*time.Millisecond, "expected the room to self-terminate after its only member left")
}

func TestSessionActorLeaveUnjoinedRoomIsFailedPrecondition(t *testing.T) {
	system := actor.NewActorSystem()
	defer system.Shutdown()
	players := registry.NewPlayerRegistry()
	rooms := registry.NewRoomRegistry(func(id entity.RoomId, cfg entity.RoomConfig) *actor.PID { return nil })

	pid, w := newTestSession(t, system, players, rooms)
	login(t, system, pid, w, "alice", testBearerToken)

	system.Root.Send(pid, &messages.InboundClientMessage{Msg: &protocol.ClientMessage{
		LeaveRequest: &protocol.LeaveRequest{RoomId: "never-joined"},
	}})
	resp := w.next(t, time.Second)
	require.NotNil(t, resp.LeaveResponse, "expected a LeaveResponse, got %+v", resp)
	assert.Equal(t, entity.ErrFailedPrecondition, resp.LeaveResponse.Error.Code)
}
