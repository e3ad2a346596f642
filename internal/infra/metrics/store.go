package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(storeOpsTotal) }

var storeOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "store_operations_total",
		Help: "Registry and cursor store operations by driver, op and status.",
	},
	[]string{"driver", "op", "status"}, // status: 'ok', 'error'
)

func IncStoreOp(driver, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeOpsTotal.WithLabelValues(norm(driver), norm(op), status).Inc()
}
