// Package controller contains the HTTP middlewares and helper handlers used by
// the worker's ops server.
//
// Provided middlewares:
//   - WithLogger: Attaches a request-scoped logger and request ID to the context and logs access info.
//
// Provided helpers:
//   - PprofMux: Returns a ServeMux exposing net/http/pprof handlers under /debug/pprof/.
//   - Health: Reports the result of a readiness check.
package controller
