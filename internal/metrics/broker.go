package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Broker-level Prometheus metrics. Defined in a standalone package to avoid
// import cycles between the nonce/auth packages and the HTTP layer.

var (
	NoncesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "siwauth_nonces_issued_total",
		Help: "Nonces emitidos",
	})

	NoncesConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siwauth_nonces_consumed_total",
		Help: "Intentos de consumo de nonce por resultado",
	}, []string{"result"}) // ok | miss

	VerifyRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siwauth_verify_total",
		Help: "Verificaciones SIWX por resultado",
	}, []string{"result"}) // accepted | invalid_nonce | invalid_signature | missing_nonce | upstream_error

	RelayLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "siwauth_relay_latency_seconds",
		Help:    "Latencia del verificador externo",
		Buckets: prometheus.DefBuckets,
	})
)

// RegisterBroker registers the broker metrics on the given registry (or default if nil).
func RegisterBroker(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{NoncesIssued, NoncesConsumed, VerifyRequests, RelayLatency} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
