// Package server provides HTTP routing, middleware and handlers for the relay API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering,
// so path wildcards such as /proxy/{video_id} are read with [http.Request.PathValue].
//
// # Endpoints
//
//	GET /                  → liveness message
//	GET /health            → {status, backend}
//	GET /search            → {query, results}
//	GET /playlist          → {playlist_id, playlist_name, track_count, tracks}
//	GET /stream/{video_id} → {id, title, artist, duration, direct_url, thumbnail}
//	GET /proxy/{video_id}  → audio bytes, relayed in chunks
//
// # Errors
//
// Every error response is a JSON object {"detail": "..."}; [StatusFor] maps service errors to
// status codes. Missing or malformed query parameters answer 422.
//
// # Middleware
//
// [RequestID] tags each request, [Logger] writes one line per request and [Recover] turns
// panics into 500 responses. The logging wrapper passes Flush through so proxied audio
// reaches the caller chunk by chunk.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
