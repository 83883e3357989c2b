// Package infra holds the adapters behind the planner: loggers, metrics
// sinks, error monitoring and the MQTT calendar publisher. Core packages
// never import it.
package infra
