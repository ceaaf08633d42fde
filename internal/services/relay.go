package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytrelay/internal/extractor"
	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/profiles"
	"github.com/desertthunder/ytrelay/internal/shared"
)

// DefaultChunkSize is the relay chunk size when none is configured.
const DefaultChunkSize = 1 << 20

// State is the lifecycle position of a [Stream].
type State int

const (
	StateIdle State = iota
	StateResolving
	StateFetching
	StateStreaming
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateFetching:
		return "fetching"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RelayStats summarizes one relayed stream.
type RelayStats struct {
	VideoID string
	State   State
	Chunks  int
	Bytes   int64
	Elapsed time.Duration
}

// Relay resolves videos and streams their audio from the media host.
type Relay struct {
	extractor   extractor.Extractor
	profiles    *profiles.Table
	client      *http.Client
	chunkSize   int
	readTimeout time.Duration
	contentType string
	logger      *log.Logger
}

// NewRelay creates a Relay. client should come from [NewHTTPClient]; nil uses [http.DefaultClient].
func NewRelay(ext extractor.Extractor, table *profiles.Table, c shared.RelayConfig, client *http.Client, logger *log.Logger) *Relay {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	chunkSize := c.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	contentType := c.ContentType
	if contentType == "" {
		contentType = "audio/mp4"
	}

	return &Relay{
		extractor:   ext,
		profiles:    table,
		client:      client,
		chunkSize:   chunkSize,
		readTimeout: c.ReadTimeout.Duration,
		contentType: contentType,
		logger:      logger,
	}
}

// NewHTTPClient builds the upstream client: dial, TLS and response header timeouts from c,
// IPv4-only dialing and an outbound proxy from p. The client has no overall timeout so long
// streams are not cut off.
func NewHTTPClient(c shared.RelayConfig, p profiles.OptionProfile) (*http.Client, error) {
	dialer := &net.Dialer{Timeout: c.ConnectTimeout.Duration, KeepAlive: 30 * time.Second}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = c.ConnectTimeout.Duration
	transport.ResponseHeaderTimeout = c.HeaderTimeout.Duration
	transport.DialContext = dialer.DialContext
	if p.ForceIPv4 {
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		}
	}

	if p.Proxy != "" {
		proxyURL, err := url.Parse(p.Proxy)
		if err != nil {
			return nil, fmt.Errorf("%w: proxy: %v", shared.ErrInvalidConfig, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{Transport: transport}, nil
}

// ContentType is the content type declared for every relayed stream.
func (r *Relay) ContentType() string {
	return r.contentType
}

// Open extracts and resolves videoID, then starts the upstream GET.
//
// The returned [Stream] owns the upstream body; consume it with [Stream.Chunks] or
// [Stream.Forward], or release it with [Stream.Close].
func (r *Relay) Open(ctx context.Context, videoID string) (*Stream, error) {
	if videoID == "" {
		return nil, fmt.Errorf("%w: video id must not be empty", shared.ErrInvalidInput)
	}

	s := &Stream{
		stats:       RelayStats{VideoID: videoID, State: StateIdle},
		started:     time.Now(),
		chunkSize:   r.chunkSize,
		readTimeout: r.readTimeout,
		logger:      r.logger.With("video_id", videoID),
	}

	s.transition(StateResolving)
	profile := r.profiles.Select(profiles.IntentProxy)
	info, err := r.extractor.Extract(ctx, fmt.Sprintf(extractor.WatchURL, videoID), profile)
	if err != nil {
		s.transition(StateAborted)
		return nil, StreamError(err)
	}

	target, err := ResolveTarget(info, profile, r.contentType)
	if err != nil {
		s.transition(StateAborted)
		return nil, fmt.Errorf("%w: %w", shared.ErrNoStreamFound, err)
	}
	s.Target = target

	s.transition(StateFetching)
	reqCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.URL, nil)
	if err != nil {
		cancel()
		s.transition(StateAborted)
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrUpstreamFailed, err)
	}
	for key, value := range target.Headers {
		req.Header.Set(key, value)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		cancel()
		s.transition(StateAborted)
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		cancel()
		s.transition(StateAborted)
		return nil, fmt.Errorf("%w: media host returned status %d", shared.ErrUpstreamFailed, resp.StatusCode)
	}

	s.body = resp.Body
	s.cancel = cancel
	return s, nil
}

// Stream is an open upstream response relayed in fixed size chunks.
type Stream struct {
	Target models.StreamTarget

	body        io.ReadCloser
	cancel      context.CancelFunc
	chunkSize   int
	readTimeout time.Duration
	logger      *log.Logger

	started   time.Time
	stats     RelayStats
	consumed  atomic.Bool
	timedOut  atomic.Bool
	closeOnce sync.Once
}

// ContentType is the declared content type of the relayed bytes.
func (s *Stream) ContentType() string {
	return s.Target.ContentType
}

// Stats reports progress so far. Read it after the stream has been consumed.
func (s *Stream) Stats() RelayStats {
	stats := s.stats
	stats.Elapsed = time.Since(s.started)
	return stats
}

// Close releases the upstream connection. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.body != nil {
			err = s.body.Close()
		}
		if s.stats.State != StateCompleted && s.stats.State != StateAborted {
			s.transition(StateAborted)
		}
	})
	return err
}

// Chunks yields the upstream body in order as chunks of the configured size; only the last
// may be shorter. Empty reads are never yielded.
//
// The sequence can be ranged over once. The yielded slice is reused and is only valid until
// the next iteration. Stopping early, a read failure or the end of the body closes the
// upstream connection.
func (s *Stream) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			yield(nil, errors.New("relay: stream already consumed"))
			return
		}
		defer s.Close()

		s.transition(StateStreaming)
		buf := make([]byte, s.chunkSize)
		for {
			n, err := s.readChunk(buf)
			if n > 0 {
				s.stats.Chunks++
				s.stats.Bytes += int64(n)
				if !yield(buf[:n], nil) {
					s.logger.Debug("consumer stopped", "chunks", s.stats.Chunks, "bytes", s.stats.Bytes)
					return
				}
			}

			switch {
			case err == nil:
			case err == io.EOF:
				s.transition(StateCompleted)
				return
			default:
				s.transition(StateAborted)
				yield(nil, s.readError(err))
				return
			}
		}
	}
}

// Forward writes every chunk to w, flushing after each when w supports it, and stops at
// the first write failure. The upstream connection is closed before Forward returns.
func (s *Stream) Forward(w io.Writer) (RelayStats, error) {
	flusher, _ := w.(http.Flusher)

	for chunk, err := range s.Chunks() {
		if err != nil {
			return s.Stats(), err
		}
		if _, err := w.Write(chunk); err != nil {
			s.Close()
			return s.Stats(), fmt.Errorf("write to caller: %w", err)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	return s.Stats(), nil
}

// readChunk fills buf from the body until it is full or the body ends. A clean end of body
// returns the bytes read so far with [io.EOF]; any other read error is returned as is.
func (s *Stream) readChunk(buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := s.read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// read performs a single body read, cancelling the request if it does not return within
// the idle read timeout. The timer is armed per read, so a slow but steady upstream is
// never cut off.
func (s *Stream) read(p []byte) (int, error) {
	if s.readTimeout <= 0 {
		return s.body.Read(p)
	}

	timer := time.AfterFunc(s.readTimeout, func() {
		s.timedOut.Store(true)
		s.cancel()
	})
	defer timer.Stop()

	return s.body.Read(p)
}

func (s *Stream) readError(err error) error {
	if s.timedOut.Load() {
		return fmt.Errorf("%w: %w: no data for %s", shared.ErrUpstreamFailed, shared.ErrTimeout, s.readTimeout)
	}
	return fmt.Errorf("%w: %v", shared.ErrUpstreamFailed, err)
}

func (s *Stream) transition(to State) {
	s.logger.Debug("relay state", "from", s.stats.State, "to", to)
	s.stats.State = to
}
