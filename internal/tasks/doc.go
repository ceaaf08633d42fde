// Package tasks runs multi-playlist jobs over the catalog with real-time progress reporting.
//
// # Bulk Export
//
// [Exporter.BulkExport] fetches several playlists and writes each one to disk:
//   - a bounded pool of workers shares one rate limiter, so extractor calls stay paced
//   - every playlist is written in the requested [formatter.Format], Markdown exports get
//     their own directory with cover art
//   - failures are recorded per playlist and do not stop the others
//   - an export_manifest.json summarizing the run is written last
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends use select with default,
// so a slow or absent reader never blocks an export.
package tasks
