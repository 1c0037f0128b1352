package grpc

import (
	"testing"

	"github.com/phuhao00/roomrealm/internal/entity"
	"github.com/phuhao00/roomrealm/internal/protocol"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := jsonCodec{}
	if codec.Name() != CodecName {
		t.Fatalf("expected codec name %q, got %q", CodecName, codec.Name())
	}

	original := &protocol.ClientMessage{
		JoinRequest: &protocol.JoinRequest{
			RoomId:     "lobby",
			RoomConfig: &entity.RoomConfig{MaxPlayers: 4},
		},
	}

	data, err := codec.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded protocol.ClientMessage
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.JoinRequest == nil || decoded.JoinRequest.RoomId != "lobby" {
		t.Fatalf("unexpected decoded message: %+v", decoded.JoinRequest)
	}
	if decoded.JoinRequest.RoomConfig == nil || decoded.JoinRequest.RoomConfig.MaxPlayers != 4 {
		t.Fatalf("unexpected decoded room config: %+v", decoded.JoinRequest.RoomConfig)
	}
}
