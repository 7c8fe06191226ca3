package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// ErrGathererAlreadyRegistered is returned by MultiGatherer.Register when
// namespace is already in use.
var ErrGathererAlreadyRegistered = errors.New("telemetry: gatherer namespace already registered")

// MultiGatherer combines several prometheus.Gatherers (for instance, one per
// CarrierRuntime component) into a single prometheus.Gatherer a caller can
// expose on one /metrics endpoint, mirroring the teacher's
// internal/api/metrics.MultiGatherer.
type MultiGatherer interface {
	prometheus.Gatherer
	Register(namespace string, gatherer prometheus.Gatherer) error
}

type multiGatherer struct {
	order     []string
	gatherers map[string]prometheus.Gatherer
}

// NewMultiGatherer returns an empty MultiGatherer.
func NewMultiGatherer() MultiGatherer {
	return &multiGatherer{gatherers: make(map[string]prometheus.Gatherer)}
}

func (m *multiGatherer) Register(namespace string, gatherer prometheus.Gatherer) error {
	if _, ok := m.gatherers[namespace]; ok {
		return ErrGathererAlreadyRegistered
	}
	m.gatherers[namespace] = gatherer
	m.order = append(m.order, namespace)
	return nil
}

// Gather implements prometheus.Gatherer by concatenating every registered
// gatherer's families in registration order, so the combined output is
// deterministic regardless of Go's map iteration order.
func (m *multiGatherer) Gather() ([]*dto.MetricFamily, error) {
	var result []*dto.MetricFamily
	for _, namespace := range m.order {
		families, err := m.gatherers[namespace].Gather()
		if err != nil {
			return nil, err
		}
		result = append(result, families...)
	}
	return result, nil
}
