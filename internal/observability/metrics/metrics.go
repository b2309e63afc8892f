package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the listener, queue,
// and generation flows.
type PipelineMetrics struct {
	eventsTotal       *prometheus.CounterVec
	tasksTotal        *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	modelTokens       *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Subsystem: "listener",
			Name:      "events_total",
			Help:      "Message events emitted by the reconciler",
		}, []string{"sender"}),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Subsystem: "queue",
			Name:      "tasks_total",
			Help:      "Queue tasks by terminal status",
		}, []string{"status"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "copilot",
			Subsystem: "reply",
			Name:      "generation_latency_seconds",
			Help:      "Latency of three-variant reply generation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		modelTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Subsystem: "reply",
			Name:      "model_tokens_total",
			Help:      "Model tokens consumed",
		}, []string{"direction"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.eventsTotal, m.tasksTotal, m.generationLatency, m.modelTokens)
	return m
}

func (m *PipelineMetrics) ObserveEvent(sender string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(sender).Inc()
}

func (m *PipelineMetrics) ObserveTask(status string) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveGeneration(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.generationLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *PipelineMetrics) ObserveTokens(prompt, completion int) {
	if m == nil {
		return
	}
	m.modelTokens.WithLabelValues("prompt").Add(float64(prompt))
	m.modelTokens.WithLabelValues("completion").Add(float64(completion))
}
