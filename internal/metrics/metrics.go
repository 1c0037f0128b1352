// Package metrics exposes the server's Prometheus collectors. It mirrors how
// the teacher repo's go.mod already pulls in prometheus/client_golang
// (transitively, through protoactor-go's own metrics support) — here it is
// wired directly rather than left dangling.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "roomrealm",
		Name:      "active_sessions",
		Help:      "Number of session actors currently live (logged in or not).",
	})

	ActiveRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "roomrealm",
		Name:      "active_rooms",
		Help:      "Number of room actors currently registered in the room registry.",
	})

	RoomMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomrealm",
		Name:      "room_messages_total",
		Help:      "Number of Message input events processed by room actors, by delivery kind.",
	}, []string{"kind"}) // "broadcast" or "unicast"

	JoinAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomrealm",
		Name:      "join_attempts_total",
		Help:      "Number of join attempts processed by room actors, by outcome.",
	}, []string{"outcome"}) // "ok", "already_joined", "config_mismatch", "room_full"
)

// Register adds all collectors to the given registerer. Safe to call once
// at process startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(ActiveSessions, ActiveRooms, RoomMessagesTotal, JoinAttemptsTotal)
}
