// Package cacheproxy hosts the HTTP service that owns the key-value binding
// holding cache entries. Workers never talk to the store directly; they go
// through this service. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /cache/{owner}/{name}?pushedAt=... to check whether an item needs
//     processing.
//   - PUT /cache/{owner}/{name} to record a completed item.
//   - GET /cache/stats for aggregate hit/miss counters.
package cacheproxy
