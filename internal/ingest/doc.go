// Package ingest defines the core types, interfaces, and errors shared
// across the ingestion pipeline: the feed fetcher, partitioner, cache
// client, extraction adapter, storage uploader, and orchestrator.
package ingest
