package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PersistCycles = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "talentbridge_persist_cycles_total", Help: "Total snapshot persistence cycles"},
	)
	RemoteSyncSuccess = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "talentbridge_remote_sync_success_total", Help: "Total successful remote mirror writes"},
	)
	RemoteSyncFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "talentbridge_remote_sync_failed_total", Help: "Total failed remote mirror writes"},
	)
	LocalWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "talentbridge_local_write_failed_total", Help: "Total failed local mirror writes"},
	)
)

// Register installs the counters on the default prometheus registry.
func Register() {
	prometheus.MustRegister(PersistCycles, RemoteSyncSuccess, RemoteSyncFailures, LocalWriteFailures)
}
