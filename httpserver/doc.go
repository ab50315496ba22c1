/*
Package httpserver serves a record store over HTTP.

Records are JSON objects addressed by name. Names are sanitized into storage
keys by the underlying records.Manager, so "a/b.json" and "b" address the same
record.

# Endpoints

  - GET /api/records - List all records
  - HEAD /api/records/{name} - 200 if the record exists, 404 otherwise
  - GET /api/records/{name} - Read a record
  - POST /api/records/{name} - Create a record (201), optionally with initial content
  - PUT /api/records/{name}?create=true - Replace a record, creating it when create=true
  - DELETE /api/records/{name} - Delete a record (204)
  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready
  - /debug/* - pprof, when enabled

# Errors

Errors are returned as plain text with these status codes:

  - 400: invalid name, operation not supported in the storage mode, malformed body
  - 404: record not found
  - 409: record already exists
  - 500: local and remote backends disagree, or a stored record is malformed
  - 502: a dual-mode mutation succeeded remotely but failed locally
  - 503: a backend is unavailable

# Example Usage

	handler := httpserver.NewHandler(manager, metricsSrv.Recorder(), logger)
	server, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr: ":8080",
		Metrics:    metricsSrv,
		Log:        logger,
	}, handler)
	if err != nil {
		log.Fatal(err)
	}
	server.RunInBackground()
	defer server.Shutdown()
*/
package httpserver
