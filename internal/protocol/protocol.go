// Package protocol defines the wire-level client/server message schema
// described in spec.md §6. The same Go types are shared by all three
// transport adapters (TCP, WebSocket, gRPC): TCP and WebSocket encode them as
// JSON frames, gRPC carries them through a JSON-based grpc/encoding.Codec (see
// internal/transport/grpc). Only one schema needs to be kept in sync.
package protocol

import "github.com/phuhao00/roomrealm/internal/entity"

// ClientMessage is the oneof envelope for every message a client can send.
// Exactly one of the pointer fields is expected to be non-nil.
type ClientMessage struct {
	LoginRequest *LoginRequest `json:"loginRequest,omitempty"`
	JoinRequest  *JoinRequest  `json:"joinRequest,omitempty"`
	LeaveRequest *LeaveRequest `json:"leaveRequest,omitempty"`
	SendMessage  *SendMessage  `json:"sendMessage,omitempty"`
}

type LoginRequest struct {
	PlayerId   entity.PlayerId `json:"playerId"`
	AuthConfig *AuthConfig     `json:"authConfig,omitempty"`
}

// AuthConfig is itself a oneof; today only Bearer exists.
type AuthConfig struct {
	Bearer *BearerAuth `json:"bearer,omitempty"`
}

type BearerAuth struct {
	Token string `json:"token"`
}

type JoinRequest struct {
	RoomId     entity.RoomId     `json:"roomId"`
	RoomConfig *entity.RoomConfig `json:"roomConfig,omitempty"`
}

type LeaveRequest struct {
	RoomId entity.RoomId `json:"roomId"`
}

type SendMessage struct {
	RoomId    entity.RoomId     `json:"roomId"`
	TargetIds []entity.PlayerId `json:"targetIds,omitempty"`
	Body      []byte            `json:"body"`
}

// ServerMessage is the oneof envelope for every message the server can send.
type ServerMessage struct {
	LoginResponse     *LoginResponse     `json:"loginResponse,omitempty"`
	JoinResponse      *JoinResponse      `json:"joinResponse,omitempty"`
	LeaveResponse     *LeaveResponse     `json:"leaveResponse,omitempty"`
	JoinNotification  *JoinNotification  `json:"joinNotification,omitempty"`
	LeaveNotification *LeaveNotification `json:"leaveNotification,omitempty"`
	MessageNotification *MessageNotification `json:"messageNotification,omitempty"`
}

type Error struct {
	Code    entity.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func NoError() Error { return Error{Code: entity.ErrNone} }

func ErrorOf(code entity.ErrorCode, message string) Error {
	return Error{Code: code, Message: message}
}

type LoginResponse struct {
	Error Error `json:"error"`
}

type JoinResponse struct {
	RoomId         entity.RoomId      `json:"roomId"`
	CurrentPlayers []entity.PlayerId  `json:"currentPlayers"`
	RoomConfig     *entity.RoomConfig `json:"roomConfig,omitempty"`
	Error          Error              `json:"error"`
}

type LeaveResponse struct {
	RoomId entity.RoomId `json:"roomId"`
	Error  Error         `json:"error"`
}

type JoinNotification struct {
	RoomId   entity.RoomId   `json:"roomId"`
	PlayerId entity.PlayerId `json:"playerId"`
}

type LeaveNotification struct {
	RoomId   entity.RoomId   `json:"roomId"`
	PlayerId entity.PlayerId `json:"playerId"`
}

type MessageNotification struct {
	RoomId   entity.RoomId   `json:"roomId"`
	SenderId entity.PlayerId `json:"senderId"`
	Body     []byte          `json:"body"`
}
