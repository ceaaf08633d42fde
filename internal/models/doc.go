// Package models defines the data carried through a single relay request.
//
// The package contains two categories of types:
//
// 1. Extractor output: a loose mirror of the metadata a media extractor reports
//   - [Info] : a single media item, or a container whose Entries hold the items
//   - [Format] : one downloadable variant of an item
//   - [Thumbnail] : artwork ordered from smallest to largest
//
// 2. Response shapes served to the player client
//   - [Track] : search and playlist rows
//   - [Playlist] : playlist listing with its tracks
//   - [StreamMetadata] : stream details for one video
//   - [StreamTarget] : the resolved upstream location for a proxy request
//
// Nothing here outlives the request that produced it.
package models
