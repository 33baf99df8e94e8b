// Package handlers implements the HTTP API layer of the qa-agent.
//
// Handlers validate requests, delegate to the services layer and map results
// and typed errors to HTTP responses.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     HTTP Request (Gin)                          │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Handler (this package)                     │
//	│  - Body and query validation                                    │
//	│  - Pagination                                                   │
//	│  - Error mapping to HTTP status codes                           │
//	│  - Model-to-API conversion (api/v1 extension.go)                │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Services Layer                             │
//	│             RunService        │        WaitService              │
//	└─────────────────────────────────────────────────────────────────┘
//
// Handler implements v1.ServerInterface and is mounted with
//
//	v1.RegisterHandlers(router, handler)
//
// # API Endpoints
//
//	┌────────┬──────────────────────────┬────────────────────────────────────────┐
//	│ Method │ Endpoint                 │ Description                            │
//	├────────┼──────────────────────────┼────────────────────────────────────────┤
//	│ GET    │ /testcases               │ Registered testcases and their inputs  │
//	│ GET    │ /testcases/{id}/inputs   │ Stored inputs document                 │
//	│ PUT    │ /testcases/{id}/inputs   │ Replace the stored inputs document     │
//	│ GET    │ /runs                    │ Paginated runs, newest first           │
//	│ POST   │ /runs                    │ Start a run (202)                      │
//	│ GET    │ /runs/{id}               │ One run                                │
//	│ DELETE │ /runs/{id}               │ Cancel a pending or running run        │
//	│ GET    │ /waits                   │ Paginated wait records                 │
//	└────────┴──────────────────────────┴────────────────────────────────────────┘
//
// # Error Mapping
//
//	┌─────────────────────────────┬────────┐
//	│ Error                       │ Status │
//	├─────────────────────────────┼────────┤
//	│ ResourceNotFoundError       │ 404    │
//	│ RunInProgressError          │ 409    │
//	│ InvalidInputsError          │ 400    │
//	│ malformed body or filter    │ 400    │
//	│ anything else               │ 500    │
//	└─────────────────────────────┴────────┘
//
// # Pagination
//
// page starts at 1. pageSize defaults to 20 and is capped at 100.
// Responses carry page, pageCount and total.
package handlers
