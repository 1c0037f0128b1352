// Command client is a minimal interactive test client for the framed TCP
// transport, adapted from the teacher's tools/client line-based REPL onto
// this server's length-prefixed JSON frames.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/phuhao00/roomrealm/internal/entity"
	"github.com/phuhao00/roomrealm/internal/protocol"
)

const lengthPrefixSize = 4

func main() {
	host := flag.String("host", "localhost", "server host")
	port := flag.Int("port", 9000, "server TCP port")
	flag.Parse()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("connected to %s\n", addr)
	fmt.Println("commands: /login <playerId> <token>, /join <room> [maxPlayers], /leave <room>, /say <room> <message>, /quit")

	go readServerMessages(conn)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}

		msg, err := parseCommand(line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		if msg == nil {
			continue
		}
		if err := writeFrame(conn, msg); err != nil {
			fmt.Println("send failed:", err)
			break
		}
	}

	fmt.Println("goodbye")
}

func parseCommand(line string) (*protocol.ClientMessage, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	switch fields[0] {
	case "/login":
		if len(fields) < 3 {
			return nil, fmt.Errorf("usage: /login <playerId> <token>")
		}
		return &protocol.ClientMessage{
			LoginRequest: &protocol.LoginRequest{
				PlayerId:   fields[1],
				AuthConfig: &protocol.AuthConfig{Bearer: &protocol.BearerAuth{Token: fields[2]}},
			},
		}, nil

	case "/join":
		if len(fields) < 2 {
			return nil, fmt.Errorf("usage: /join <room> [maxPlayers]")
		}
		req := &protocol.JoinRequest{RoomId: fields[1]}
		if len(fields) >= 3 {
			maxPlayers, err := strconv.ParseUint(fields[2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid maxPlayers: %w", err)
			}
			cfg := entity.RoomConfig{MaxPlayers: uint32(maxPlayers)}
			req.RoomConfig = &cfg
		}
		return &protocol.ClientMessage{JoinRequest: req}, nil

	case "/leave":
		if len(fields) < 2 {
			return nil, fmt.Errorf("usage: /leave <room>")
		}
		return &protocol.ClientMessage{LeaveRequest: &protocol.LeaveRequest{RoomId: fields[1]}}, nil

	case "/say":
		if len(fields) < 3 {
			return nil, fmt.Errorf("usage: /say <room> <message>")
		}
		body := strings.Join(fields[2:], " ")
		return &protocol.ClientMessage{SendMessage: &protocol.SendMessage{
			RoomId: fields[1],
			Body:   []byte(body),
		}}, nil

	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}

func writeFrame(conn net.Conn, msg *protocol.ClientMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	lenBuf := make([]byte, lengthPrefixSize)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	if _, err := conn.Write(lenBuf); err != nil {
		return err
	}
	_, err = conn.Write(data)
	return err
}

func readServerMessages(conn net.Conn) {
	reader := bufio.NewReader(conn)
	lenBuf := make([]byte, lengthPrefixSize)
	for {
		if _, err := io.ReadFull(reader, lenBuf); err != nil {
			fmt.Printf("\nconnection closed: %v\n", err)
			os.Exit(0)
		}
		n := binary.BigEndian.Uint32(lenBuf)
		payload := make([]byte, n)
		if _, err := io.ReadFull(reader, payload); err != nil {
			fmt.Printf("\nconnection closed: %v\n", err)
			os.Exit(0)
		}

		var msg protocol.ServerMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			fmt.Printf("\nmalformed server message: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n> ", describe(&msg))
	}
}

func describe(msg *protocol.ServerMessage) string {
	switch {
	case msg.LoginResponse != nil:
		return fmt.Sprintf("login: %s", msg.LoginResponse.Error.Code)
	case msg.JoinResponse != nil:
		return fmt.Sprintf("join %s: error=%s players=%v", msg.JoinResponse.RoomId, msg.JoinResponse.Error.Code, msg.JoinResponse.CurrentPlayers)
	case msg.LeaveResponse != nil:
		return fmt.Sprintf("leave %s: error=%s", msg.LeaveResponse.RoomId, msg.LeaveResponse.Error.Code)
	case msg.JoinNotification != nil:
		return fmt.Sprintf("%s joined %s", msg.JoinNotification.PlayerId, msg.JoinNotification.RoomId)
	case msg.LeaveNotification != nil:
		return fmt.Sprintf("%s left %s", msg.LeaveNotification.PlayerId, msg.LeaveNotification.RoomId)
	case msg.MessageNotification != nil:
		return fmt.Sprintf("[%s] %s: %s", msg.MessageNotification.RoomId, msg.MessageNotification.SenderId, string(msg.MessageNotification.Body))
	default:
		return "unknown server message"
	}
}
