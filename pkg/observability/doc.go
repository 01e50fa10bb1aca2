/*
Package observability turns session events into Prometheus metrics and log lines.

Both are plain session listeners: pass Metrics.Observe or LogEvents(logger) to
Kitchen.Subscribe, or use mise.WithMetrics which does it for you.
*/
package observability
