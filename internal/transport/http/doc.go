// Package http exposes pipeline results over a chi router.
//
// Report endpoints share one cached pipeline result. The first request after
// startup runs the pipeline, POST /api/v1/refresh runs it again, and
// concurrent requests that need a run wait on the same one. Pipeline errors
// map to API errors: store failures answer 503 and analysis failures 422.
package http
