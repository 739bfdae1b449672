package provisioner

import "github.com/prometheus/client_golang/prometheus"

var (
	metricCredentialsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "provisionr",
		Name:      "credentials_issued_total",
		Help:      "Machines that received freshly generated credentials.",
	})

	metricCredentialsReused = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "provisionr",
		Name:      "credentials_reused_total",
		Help:      "Requests served with previously issued credentials.",
	})

	metricRenders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "provisionr",
		Name:      "renders_total",
		Help:      "Render attempts by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(metricCredentialsIssued)

	prometheus.MustRegister(metricCredentialsReused)

	prometheus.MustRegister(metricRenders)
}
