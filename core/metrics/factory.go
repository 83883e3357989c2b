package metrics

import "github.com/kilianp07/vaxcal/core/factory"

var sinkRegistry = factory.NewRegistry[PlannerSink]()

// RegisterSink adds a metrics sink factory identified by name.
func RegisterSink(name string, f factory.Factory[PlannerSink]) error {
	return sinkRegistry.Register(name, f)
}

// NewPlannerSink creates a PlannerSink from the provided configuration.
func NewPlannerSink(cfgs []factory.ModuleConfig) (PlannerSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]PlannerSink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
