package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters live in atomics so the status dashboard can read them without
// scraping; the prometheus collectors are thin views over the same values.
var (
	rooms       atomic.Int64
	users       atomic.Int64
	connections atomic.Int64
	spins       atomic.Int64
)

func init() {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "spinroom_rooms_open",
		Help: "Number of live rooms.",
	}, func() float64 { return float64(rooms.Load()) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "spinroom_users_online",
		Help: "Number of users across all rooms.",
	}, func() float64 { return float64(users.Load()) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "spinroom_connections_active",
		Help: "Number of open websocket connections.",
	}, func() float64 { return float64(connections.Load()) })

	promauto.NewCounterFunc(prometheus.CounterOpts{
		Name: "spinroom_spins_total",
		Help: "Spins started since boot.",
	}, func() float64 { return float64(spins.Load()) })
}

func AddRooms(d int64)       { rooms.Add(d) }
func AddUsers(d int64)       { users.Add(d) }
func AddConnections(d int64) { connections.Add(d) }
func IncSpins()              { spins.Add(1) }

type Snapshot struct {
	Rooms       int64
	Users       int64
	Connections int64
	Spins       int64
}

func Snap() Snapshot {
	return Snapshot{
		Rooms:       rooms.Load(),
		Users:       users.Load(),
		Connections: connections.Load(),
		Spins:       spins.Load(),
	}
}

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
