package models

import (
	"encoding/json"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestInfo(t *testing.T) {
	t.Run("Artist", func(t *testing.T) {
		tc := []struct {
			name string
			info Info
			want string
		}{
			{name: "channel wins", info: Info{Channel: strPtr("Channel"), Uploader: strPtr("Uploader")}, want: "Channel"},
			{name: "uploader fallback", info: Info{Uploader: strPtr("Uploader")}, want: "Uploader"},
			{name: "empty channel falls through", info: Info{Channel: strPtr(""), Uploader: strPtr("Uploader")}, want: "Uploader"},
			{name: "neither", info: Info{}, want: UnknownArtist},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := tt.info.Artist(); got != tt.want {
					t.Errorf("Artist() = %q, want %q", got, tt.want)
				}
			})
		}
	})

	t.Run("LargestThumbnail", func(t *testing.T) {
		info := Info{Thumbnails: []Thumbnail{{URL: "small"}, {URL: "large"}}}
		if got := info.LargestThumbnail(); got == nil || *got != "large" {
			t.Errorf("expected last thumbnail, got %v", got)
		}

		if got := (&Info{}).LargestThumbnail(); got != nil {
			t.Errorf("expected nil thumbnail, got %v", *got)
		}
	})

	t.Run("decodes extractor JSON", func(t *testing.T) {
		payload := `{
			"id": "PL1",
			"title": "Mix",
			"entries": [
				{"id": "a", "title": "Song A", "channel": "Band", "duration": 201.0,
				 "thumbnails": [{"url": "t1"}, {"url": "t2", "width": 480, "height": 360}]},
				null,
				{"id": "b", "title": "Song B", "uploader": null}
			]
		}`

		var info Info
		if err := json.Unmarshal([]byte(payload), &info); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !info.HasEntries() || len(info.Entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(info.Entries))
		}
		if info.Entries[1] != nil {
			t.Error("expected null entry to decode as nil")
		}

		first := NewTrack(info.Entries[0])
		if first.Artist != "Band" || first.Duration == nil || *first.Duration != 201 {
			t.Errorf("unexpected track %+v", first)
		}
		if first.Thumbnail == nil || *first.Thumbnail != "t2" {
			t.Errorf("expected largest thumbnail t2, got %v", first.Thumbnail)
		}

		last := NewTrack(info.Entries[2])
		if last.Artist != UnknownArtist {
			t.Errorf("expected sentinel artist, got %q", last.Artist)
		}
		if last.Duration != nil || last.Thumbnail != nil {
			t.Errorf("expected null duration and thumbnail, got %+v", last)
		}
	})

	t.Run("missing entries", func(t *testing.T) {
		var info Info
		if err := json.Unmarshal([]byte(`{"id": "x"}`), &info); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.HasEntries() {
			t.Error("expected no entries list")
		}
	})
}

func TestStreamTarget_WithHeaders(t *testing.T) {
	base := map[string]string{"User-Agent": "profile", "Accept-Language": "en"}
	extra := map[string]string{"User-Agent": "extractor"}

	target := StreamTarget{URL: "u"}.WithHeaders(base, extra)

	if target.Headers["User-Agent"] != "extractor" {
		t.Errorf("expected extractor header to win, got %q", target.Headers["User-Agent"])
	}
	if target.Headers["Accept-Language"] != "en" {
		t.Errorf("expected base header kept, got %v", target.Headers)
	}

	target.Headers["X"] = "y"
	if _, ok := base["X"]; ok {
		t.Error("WithHeaders must not alias the base map")
	}
}
