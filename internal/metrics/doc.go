// Package metrics records git invocation and material poll metrics.
//
// Components receive a Recorder and default to NoopRecorder, so the engine
// and CLI carry no Prometheus dependency at runtime unless the daemon wires a
// PrometheusRecorder:
//
//	reg := metrics.NewRegistry()
//	recorder := metrics.NewPrometheusRecorder(reg)
//	runner := git.NewExecRunner(recorder)
//	mux.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
