package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/loomhq/tenantgate/app"
)

// OpenAPISchema serves a minimal OpenAPI description of the scaffold
func OpenAPISchema(deps *app.Dependencies) http.HandlerFunc {
	schema := map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":   "tenantgate",
			"version": "0.1.0",
		},
		"paths": map[string]interface{}{
			"/healthz":   map[string]interface{}{},
			"/api/v1/me": map[string]interface{}{},
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(schema)
	}
}

// Docs serves a placeholder API docs page
func Docs(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>tenantgate API</h1><p>See /openapi.json</p></body></html>"))
	}
}

// Metrics serves a placeholder metrics endpoint. It sits on the public
// allowlist so scrapers never hit the auth pipeline.
func Metrics(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("# no collectors registered\n"))
	}
}
