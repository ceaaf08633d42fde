// package formatter renders track listings as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/shared"
)

// Format names an output format accepted by [Render].
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat accepts json, csv, md/markdown and txt/text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, s)
	}
}

// Listing is a titled list of tracks, built from a playlist or a search result.
type Listing struct {
	ID     string
	Title  string
	Tracks []models.Track
}

// FromPlaylist builds a [Listing] from a playlist response.
func FromPlaylist(p *models.Playlist) Listing {
	return Listing{ID: p.ID, Title: p.Name, Tracks: p.Tracks}
}

// FromSearch builds a [Listing] from a search response.
func FromSearch(r *models.SearchResult) Listing {
	return Listing{Title: fmt.Sprintf("Search: %s", r.Query), Tracks: r.Results}
}

// Cover returns the thumbnail of the first track that has one, or "".
func (l Listing) Cover() string {
	for _, t := range l.Tracks {
		if t.Thumbnail != nil && *t.Thumbnail != "" {
			return *t.Thumbnail
		}
	}
	return ""
}

// Render writes v in format f. Listing formats require v to be a [Listing].
func Render(f Format, v any) ([]byte, error) {
	if f == FormatJSON {
		return ToJSON(v)
	}

	l, ok := v.(Listing)
	if !ok {
		return nil, fmt.Errorf("%w: format %s needs a track listing", shared.ErrInvalidInput, f)
	}
	switch f {
	case FormatCSV:
		return ExportToCSV(l)
	case FormatMarkdown:
		return ExportToMarkdown(l, "")
	case FormatText:
		return ExportToText(l)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, f)
	}
}

// ToJSON renders v as indented JSON with a trailing newline.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts a Listing to CSV with columns: ID, Title, Artist, Duration, Thumbnail
func ExportToCSV(l Listing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Duration", "Thumbnail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range l.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			seconds(track.Duration),
			deref(track.Thumbnail),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Listing to Markdown with an optional cover image
func ExportToMarkdown(l Listing, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", l.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if l.ID != "" {
		fmt.Fprintf(&buf, "**ID**: %s\n", l.ID)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(l.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range l.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, duration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Listing to plain text
func ExportToText(l Listing) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", l.Title)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(l.Tracks))

	for i, track := range l.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s (%s) %s\n", i+1, track.Artist, track.Title, duration(track.Duration), track.ID)
	}

	return buf.Bytes(), nil
}

// DownloadImage fetches an image and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes a Listing to {dir}/README.md, with the cover image saved
// beside it as cover.jpg when it can be downloaded.
//
// Directory name defaults to the listing ID. A cover that cannot be downloaded is skipped.
func WriteMarkdownExport(ctx context.Context, client *http.Client, l Listing, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = l.ID
	}
	if outputDir == "" {
		return nil, fmt.Errorf("%w: output directory required", shared.ErrInvalidInput)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var coverImageFilename string
	if cover := l.Cover(); cover != "" {
		if imageData, err := DownloadImage(ctx, client, cover); err == nil {
			coverImagePath := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(coverImagePath, imageData, 0644); err == nil {
				coverImageFilename = "cover.jpg"
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(l, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

func duration(d *float64) string {
	if d == nil {
		return shared.FormatDuration(0)
	}
	return shared.FormatDuration(int(*d))
}

func seconds(d *float64) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%d", int(*d))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
