// Package server exposes the analysis pipeline over HTTP.
//
// Routes:
//
//	POST /api/analyze            analyze an upload (multipart field "file", or a raw body with ?filename=)
//	GET  /api/analyses           list stored analyses (?limit=, ?offset=, ?verdict=)
//	GET  /api/analyses/{id}      fetch a stored report
//	GET  /api/tools              registered tools and whether they are installed
//	GET  /health                 liveness check
//	GET  /ws                     websocket stream of progress events
//	GET  /static/bitplanes/...   rendered bit planes
//
// A successful analysis returns the report document. Every failure returns
// the error document {"error": "..."} with one of these statuses:
//
//	400  the request carries no file
//	413  the upload exceeds the size limit
//	422  the upload is not a supported, decodable image
//	504  the analysis did not finish within the request timeout
//	500  anything else
//
// Design decision: Adapter failures never reach this package. They are part
// of a successful report. Only ingestion errors and cancellation fail an
// analysis request.
package server
