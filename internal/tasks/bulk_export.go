package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytrelay/internal/formatter"
	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultWorkers   = 3
	MaxWorkers       = 10
	DefaultRateLimit = 2.0
)

// PlaylistSource lists the tracks of a playlist URL.
type PlaylistSource interface {
	Playlist(ctx context.Context, rawURL string) (*models.Playlist, error)
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format: json, csv, md, txt
	OutputDir  string           // Base output directory (default: ytrelay_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 3, at most 10)
	RateLimit  float64          // Playlist fetches per second (default: 2)
	HTTPClient *http.Client     // Used for Markdown cover art
}

// PlaylistExportResult is the outcome for one playlist URL.
type PlaylistExportResult struct {
	URL          string   `json:"url"`
	PlaylistID   string   `json:"playlist_id,omitempty"`
	PlaylistName string   `json:"playlist_name,omitempty"`
	TrackCount   int      `json:"track_count"`
	Success      bool     `json:"success"`
	Files        []string `json:"files,omitempty"`
	Error        error    `json:"-"`
	Message      string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export. Results follow the order of the input URLs.
type BulkExportResult struct {
	Format            formatter.Format       `json:"format"`
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	ExportedAt        time.Time              `json:"exported_at"`
	Results           []PlaylistExportResult `json:"results"`
}

type exportJob struct {
	index int
	total int
	url   string
}

// Exporter writes playlists from a [PlaylistSource] to disk.
type Exporter struct {
	source PlaylistSource
	logger *log.Logger
}

// NewExporter creates an Exporter. A nil logger discards output.
func NewExporter(source PlaylistSource, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Exporter{source: source, logger: logger}
}

// BulkExport exports multiple playlists concurrently with rate limiting and progress tracking.
//
// Partial failures are recorded in the result; the returned error is reserved for setup
// failures, cancellation and a manifest that cannot be written.
func (e *Exporter) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, urls []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: at least one playlist url", shared.ErrMissingArgument)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("ytrelay_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = DefaultWorkers
	}
	if opts.NumWorkers > MaxWorkers {
		opts.NumWorkers = MaxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalPlaylists:  len(urls),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, len(urls)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	names := &fileNames{used: map[string]bool{}}
	jobs := make(chan exportJob)
	done := make(chan int, len(urls))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result.Results[job.index] = e.exportOne(ctx, prog, limiter, names, job, opts)
				done <- job.index
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, u := range urls {
			select {
			case <-ctx.Done():
				return
			case jobs <- exportJob{index: i, total: len(urls), url: u}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for i := range done {
		completed++
		res := result.Results[i]
		if res.Success {
			sendProgress(prog, exportCompletedUpdate(completed, len(urls), res.PlaylistName, len(res.Files)))
		} else {
			sendProgress(prog, exportFailedUpdate(completed, len(urls), res.URL, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export interrupted after %d of %d playlists: %w", completed, len(urls), err)
	}

	for i := range result.Results {
		if result.Results[i].Success {
			result.SuccessfulExports++
		} else {
			result.FailedExports++
		}
	}
	result.ExportedAt = time.Now().UTC()

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))

	e.logger.Info("bulk export finished", "total", len(urls), "ok", result.SuccessfulExports, "failed", result.FailedExports, "dir", opts.OutputDir)
	return result, nil
}

func (e *Exporter) exportOne(ctx context.Context, prog chan<- ProgressUpdate, limiter *rate.Limiter, names *fileNames, job exportJob, opts BulkExportOpts) PlaylistExportResult {
	res := PlaylistExportResult{URL: job.url}
	fail := func(err error) PlaylistExportResult {
		res.Error = err
		res.Message = err.Error()
		e.logger.Warn("playlist export failed", "url", job.url, "error", err)
		return res
	}

	if err := limiter.Wait(ctx); err != nil {
		return fail(err)
	}

	sendProgress(prog, fetchingPlaylistUpdate(job.index+1, job.total, job.url))
	playlist, err := e.source.Playlist(ctx, job.url)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch playlist: %w", err))
	}

	res.PlaylistID = playlist.ID
	res.PlaylistName = playlist.Name
	res.TrackCount = playlist.TrackCount

	files, err := writePlaylist(ctx, playlist, names.claim(playlist.ID, job.index), opts)
	if err != nil {
		return fail(err)
	}
	res.Files = files
	res.Success = true
	return res
}

// writePlaylist writes one playlist in opts.Format under base and returns the files it created.
func writePlaylist(ctx context.Context, p *models.Playlist, base string, opts BulkExportOpts) ([]string, error) {
	listing := formatter.FromPlaylist(p)

	if opts.Format == formatter.FormatMarkdown {
		md, err := formatter.WriteMarkdownExport(ctx, opts.HTTPClient, listing, filepath.Join(opts.OutputDir, base))
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return md.Files, nil
	}

	var v any = listing
	if opts.Format == formatter.FormatJSON {
		v = p
	}
	data, err := formatter.Render(opts.Format, v)
	if err != nil {
		return nil, fmt.Errorf("%s export failed: %w", opts.Format, err)
	}

	path := filepath.Join(opts.OutputDir, base+"."+string(opts.Format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("%s write failed: %w", opts.Format, err)
	}
	return []string{path}, nil
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := formatter.ToJSON(result)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// fileBase turns a playlist ID into a file name, falling back to its position in the input.
func fileBase(id string, index int) string {
	if base := unsafeChars.ReplaceAllString(id, "_"); base != "" && base != "_" {
		return base
	}
	return fmt.Sprintf("playlist_%d", index+1)
}

// fileNames hands out file bases that are unique within one export run.
type fileNames struct {
	mu   sync.Mutex
	used map[string]bool
}

// claim returns the base for a playlist, suffixed with its 1-based input position (then
// counting up) when an earlier playlist in the run already took the name.
func (n *fileNames) claim(id string, index int) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	base := fileBase(id, index)
	name := base
	for i := index + 1; n.used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	n.used[name] = true
	return name
}
