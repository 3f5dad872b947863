// Package event streams analysis progress to websocket clients.
//
// A Hub is registered as the pipeline observer. Every event is encoded once
// as JSON and queued to each connected client:
//
//	{"type":"unit.finished","run_id":"...","unit":"zsteg","status":"Success","done":4,"total":13,...}
//
// Design decision: Publish is called from the analysis goroutines, so it
// never waits on a network write. Each client has a bounded queue drained
// by its own writer goroutine, and a client whose queue is full is
// disconnected.
package event
