// Package metrics defines the planner metrics sink and its helpers. Sinks
// like PromSink and InfluxSink in infra/metrics register themselves with the
// factory; NewPlannerSink returns a MultiSink automatically when several are
// configured.
package metrics
