// Package services turns extractor output into the relay's responses.
//
// # Catalog
//
// [Catalog] serves the metadata operations. Each one selects an option profile, calls the
// extractor and projects the result:
//   - [Catalog.Search] builds a ytsearch<limit>:<query> target and lists [models.Track] rows
//   - [Catalog.Playlist] rewrites youtube.com links to music.youtube.com and lists entries
//   - [Catalog.StreamMetadata] describes one video with its direct media URL
//
// # Format Resolution
//
// [Resolve] picks one media URL from an extraction result: the top-level url, then the
// format matching format_id, then the last listed format. [ResolveTarget] pairs the URL
// with the header set the upstream expects.
//
// # Relay
//
// [Relay.Open] extracts and resolves a video, then opens a streaming GET against the media
// host. The returned [Stream] yields fixed size chunks in upstream order and closes the
// upstream body on completion, on read failure and when the consumer stops early:
//
//	stream, err := relay.Open(ctx, videoID)
//	if err != nil {
//		return err
//	}
//	stats, err := stream.Forward(w)
//
// A stream moves through Idle, Resolving, Fetching and Streaming before ending Completed or
// Aborted. [RelayStats] reports the final state with chunk and byte counts.
//
// # Error Handling
//
// Services return errors wrapping sentinels from the shared package:
//   - [shared.ErrExtractionFailed] : the extractor failed
//   - [shared.ErrBotDetected] : the extractor was rejected as automated traffic
//   - [shared.ErrNoStreamFound] : no media URL could be resolved
//   - [shared.ErrInvalidPlaylist] : the playlist listed no entries
//   - [shared.ErrUpstreamFailed] : the media host refused or dropped the request
//   - [shared.ErrInvalidInput] : a caller supplied parameter is out of range
//
// # Relay Client
//
// [RelayClient] makes raw HTTP requests against a running relay, used by the CLI status check.
package services
