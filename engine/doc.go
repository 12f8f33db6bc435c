// Package engine wires all syncq subsystems together: the job store,
// processor registry, middleware chain, queue engine, recovery
// manager, dead letter service, retry poller, recurring scheduler,
// and janitor.
//
// This package exists to break the import cycle: the root syncq
// package defines Entity, SyncError, and Config (imported by job,
// dlq, recovery) and so cannot import those packages back. The engine
// package sits above all subsystem packages and below the application
// layer.
package engine
