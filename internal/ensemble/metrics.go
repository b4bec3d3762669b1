package ensemble

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// engineMetrics exports training outcomes. A nil receiver is valid and
// turns every observation into a no-op, so metrics stay optional.
type engineMetrics struct {
	cvRMSE   *prometheus.GaugeVec
	weight   *prometheus.GaugeVec
	duration prometheus.Gauge
}

func newEngineMetrics(reg prometheus.Registerer) *engineMetrics {
	if reg == nil {
		return nil
	}
	m := &engineMetrics{
		cvRMSE: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sardinai",
			Subsystem: "ensemble",
			Name:      "cv_rmse",
			Help:      "Cross-validated RMSE of each model from the last training run.",
		}, []string{"model"}),
		weight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sardinai",
			Subsystem: "ensemble",
			Name:      "model_weight",
			Help:      "Current blended ensemble weight of each model.",
		}, []string{"model"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sardinai",
			Subsystem: "ensemble",
			Name:      "training_duration_seconds",
			Help:      "Wall-clock duration of the last training run.",
		}),
	}
	reg.MustRegister(m.cvRMSE, m.weight, m.duration)
	return m
}

func (m *engineMetrics) observeTraining(scores map[string]ModelScore, weights map[string]float64, d time.Duration) {
	if m == nil {
		return
	}
	for name, s := range scores {
		m.cvRMSE.WithLabelValues(name).Set(s.CVRMSE)
	}
	m.duration.Set(d.Seconds())
	m.observeWeights(weights)
}

func (m *engineMetrics) observeWeights(weights map[string]float64) {
	if m == nil {
		return
	}
	for name, w := range weights {
		m.weight.WithLabelValues(name).Set(w)
	}
}
