package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytrelay/internal/extractor"
	"github.com/desertthunder/ytrelay/internal/models"
	"github.com/desertthunder/ytrelay/internal/profiles"
	"github.com/desertthunder/ytrelay/internal/shared"
	tu "github.com/desertthunder/ytrelay/internal/testing"
)

const testChunkSize = 4

func relayConfig() shared.RelayConfig {
	return shared.RelayConfig{ChunkSize: testChunkSize, ContentType: "audio/mp4"}
}

func mediaInfo(url string) *tu.MockExtractor {
	return &tu.MockExtractor{Results: map[string]*models.Info{
		watchAbc: {ID: "abc", URL: url, HTTPHeaders: map[string]string{"X-Media": "yes"}},
	}}
}

func trackingClient(body *tu.TrackingBody, status int) *http.Client {
	return &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       body,
	}, nil)}
}

func collect(t *testing.T, s *Stream) ([][]byte, error) {
	t.Helper()
	var chunks [][]byte
	for chunk, err := range s.Chunks() {
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, bytes.Clone(chunk))
	}
	return chunks, nil
}

func TestRelay_Chunks(t *testing.T) {
	sizes := []int{0, 1, testChunkSize - 1, testChunkSize, 2*testChunkSize + 2, 10 * testChunkSize}

	for _, size := range sizes {
		t.Run(fmt.Sprintf("%d bytes", size), func(t *testing.T) {
			payload := make([]byte, size)
			for i := range payload {
				payload[i] = byte(i)
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "audio/webm")
				w.Write(payload)
			}))
			defer server.Close()

			relay := NewRelay(mediaInfo(server.URL), profiles.DefaultTable(), relayConfig(), server.Client(), nil)
			stream, err := relay.Open(context.Background(), "abc")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			chunks, err := collect(t, stream)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for i, chunk := range chunks {
				if len(chunk) == 0 {
					t.Errorf("chunk %d is empty", i)
				}
				if i < len(chunks)-1 && len(chunk) != testChunkSize {
					t.Errorf("chunk %d has %d bytes, want %d", i, len(chunk), testChunkSize)
				}
			}
			if got := bytes.Join(chunks, nil); !bytes.Equal(got, payload) {
				t.Errorf("relayed %d bytes, want %d in order", len(got), len(payload))
			}

			stats := stream.Stats()
			if stats.State != StateCompleted || stats.Bytes != int64(size) || stats.Chunks != len(chunks) {
				t.Errorf("unexpected stats %+v", stats)
			}
			if stream.ContentType() != "audio/mp4" {
				t.Errorf("expected audio/mp4, got %s", stream.ContentType())
			}
		})
	}
}

func TestRelay_Open(t *testing.T) {
	t.Run("forwards profile and extractor headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Media") != "yes" {
				t.Errorf("expected extractor header, got %v", r.Header)
			}
			if r.Header.Get("Accept-Language") == "" {
				t.Errorf("expected profile header, got %v", r.Header)
			}
		}))
		defer server.Close()

		mock := mediaInfo(server.URL)
		stream, err := NewRelay(mock, profiles.DefaultTable(), relayConfig(), server.Client(), nil).Open(context.Background(), "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stream.Close()

		if p := mock.LastProfile(); p.Client != profiles.ClientAndroid || p.Format != "bestaudio/best" {
			t.Errorf("expected proxy profile, got %+v", p)
		}
	})

	t.Run("upstream status", func(t *testing.T) {
		body := tu.NewTrackingBody(strings.NewReader("forbidden"))
		relay := NewRelay(mediaInfo("https://media.example/a"), profiles.DefaultTable(), relayConfig(), trackingClient(body, http.StatusForbidden), nil)

		_, err := relay.Open(context.Background(), "abc")
		if !errors.Is(err, shared.ErrUpstreamFailed) {
			t.Errorf("expected ErrUpstreamFailed, got %v", err)
		}
		if !body.Closed() {
			t.Error("expected upstream body to be closed")
		}
	})

	t.Run("upstream unreachable", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		relay := NewRelay(mediaInfo("https://media.example/a"), profiles.DefaultTable(), relayConfig(), client, nil)

		_, err := relay.Open(context.Background(), "abc")
		if !errors.Is(err, shared.ErrUpstreamFailed) {
			t.Errorf("expected ErrUpstreamFailed, got %v", err)
		}
	})

	t.Run("bot detection", func(t *testing.T) {
		mock := &tu.MockExtractor{Err: extractor.Classify(watchAbc, errors.New("ERROR: Sign in to confirm you're not a bot"))}
		relay := NewRelay(mock, profiles.DefaultTable(), relayConfig(), nil, nil)

		_, err := relay.Open(context.Background(), "abc")
		if !errors.Is(err, shared.ErrBotDetected) {
			t.Errorf("expected ErrBotDetected, got %v", err)
		}
	})

	t.Run("extraction failure", func(t *testing.T) {
		mock := &tu.MockExtractor{Err: extractor.Classify(watchAbc, errors.New("Video unavailable"))}
		relay := NewRelay(mock, profiles.DefaultTable(), relayConfig(), nil, nil)

		_, err := relay.Open(context.Background(), "abc")
		if !errors.Is(err, shared.ErrExtractionFailed) {
			t.Errorf("expected ErrExtractionFailed, got %v", err)
		}
	})

	t.Run("no stream found", func(t *testing.T) {
		mock := &tu.MockExtractor{Results: map[string]*models.Info{watchAbc: {ID: "abc"}}}
		relay := NewRelay(mock, profiles.DefaultTable(), relayConfig(), nil, nil)

		_, err := relay.Open(context.Background(), "abc")
		if !errors.Is(err, shared.ErrNoStreamFound) || !errors.Is(err, shared.ErrResolution) {
			t.Errorf("expected ErrNoStreamFound wrapping ErrResolution, got %v", err)
		}
	})

	t.Run("empty video id", func(t *testing.T) {
		relay := NewRelay(&tu.MockExtractor{}, profiles.DefaultTable(), relayConfig(), nil, nil)

		_, err := relay.Open(context.Background(), "")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		relay := NewRelay(&tu.MockExtractor{}, profiles.DefaultTable(), shared.RelayConfig{}, nil, nil)
		if relay.chunkSize != DefaultChunkSize || relay.ContentType() != "audio/mp4" {
			t.Errorf("unexpected defaults: chunk %d, content type %s", relay.chunkSize, relay.ContentType())
		}
	})
}

func TestStream_Release(t *testing.T) {
	open := func(t *testing.T, r io.Reader) (*Stream, *tu.TrackingBody) {
		t.Helper()
		body := tu.NewTrackingBody(r)
		relay := NewRelay(mediaInfo("https://media.example/a"), profiles.DefaultTable(), relayConfig(), trackingClient(body, http.StatusOK), nil)
		stream, err := relay.Open(context.Background(), "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return stream, body
	}

	t.Run("consumer stop closes upstream", func(t *testing.T) {
		stream, body := open(t, strings.NewReader(strings.Repeat("a", 100*testChunkSize)))

		for range stream.Chunks() {
			break
		}

		if !body.Closed() {
			t.Error("expected upstream body to be closed")
		}
		if stats := stream.Stats(); stats.State != StateAborted || stats.Chunks != 1 {
			t.Errorf("expected one chunk then abort, got %+v", stats)
		}
	})

	t.Run("write failure stops forwarding", func(t *testing.T) {
		stream, body := open(t, strings.NewReader(strings.Repeat("a", 100*testChunkSize)))

		stats, err := stream.Forward(&tu.FWriter{})
		if err == nil {
			t.Fatal("expected write error")
		}
		if !body.Closed() {
			t.Error("expected upstream body to be closed")
		}
		if stats.State != StateAborted || stats.Chunks != 1 {
			t.Errorf("expected abort after first chunk, got %+v", stats)
		}
	})

	t.Run("caller disconnect after a few chunks", func(t *testing.T) {
		stream, body := open(t, strings.NewReader(strings.Repeat("a", 100*testChunkSize)))

		var out bytes.Buffer
		w := tu.NewLimitedWriter(3, 0, &out)
		stats, err := stream.Forward(&w)
		if err == nil {
			t.Fatal("expected write error")
		}
		if !body.Closed() {
			t.Error("expected upstream body to be closed")
		}
		if stats.Chunks != 4 || out.Len() != 3*testChunkSize {
			t.Errorf("expected to stop within one chunk of the failure, got %+v and %d bytes", stats, out.Len())
		}
	})

	t.Run("read failure mid-stream", func(t *testing.T) {
		stream, body := open(t, io.MultiReader(strings.NewReader("abcdefghij"), &tu.FCloser{}))

		chunks, err := collect(t, stream)
		if !errors.Is(err, shared.ErrUpstreamFailed) {
			t.Fatalf("expected ErrUpstreamFailed, got %v", err)
		}
		if got := string(bytes.Join(chunks, nil)); got != "abcdefghij" {
			t.Errorf("expected bytes before the failure, got %q", got)
		}
		if !body.Closed() {
			t.Error("expected upstream body to be closed")
		}
		if stream.Stats().State != StateAborted {
			t.Errorf("expected aborted, got %v", stream.Stats().State)
		}
	})

	t.Run("forward to recorder", func(t *testing.T) {
		stream, body := open(t, strings.NewReader("0123456789"))

		rec := httptest.NewRecorder()
		stats, err := stream.Forward(rec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Body.String() != "0123456789" || !rec.Flushed {
			t.Errorf("unexpected body %q (flushed %v)", rec.Body.String(), rec.Flushed)
		}
		if stats.State != StateCompleted || stats.Chunks != 3 || stats.Bytes != 10 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if !body.Closed() {
			t.Error("expected upstream body to be closed")
		}
	})

	t.Run("single use", func(t *testing.T) {
		stream, _ := open(t, strings.NewReader("abc"))
		if _, err := collect(t, stream); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := collect(t, stream); err == nil {
			t.Error("expected error on second iteration")
		}
	})

	t.Run("close without consuming", func(t *testing.T) {
		stream, body := open(t, strings.NewReader("abc"))
		stream.Close()
		stream.Close()

		if !body.Closed() || stream.Stats().State != StateAborted {
			t.Errorf("expected closed aborted stream, got %+v", stream.Stats())
		}
	})
}

func TestStream_IdleTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	c := relayConfig()
	c.ReadTimeout = shared.Duration{Duration: 20 * time.Millisecond}
	relay := NewRelay(mediaInfo(server.URL), profiles.DefaultTable(), c, server.Client(), nil)

	stream, err := relay.Open(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = collect(t, stream)
	if !errors.Is(err, shared.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestStream_SlowUpstream(t *testing.T) {
	const writes = 10
	piece := bytes.Repeat([]byte("a"), 1024)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for range writes {
			w.Write(piece)
			w.(http.Flusher).Flush()
			time.Sleep(50 * time.Millisecond)
		}
	}))
	defer server.Close()

	c := relayConfig()
	c.ChunkSize = 1 << 20
	c.ReadTimeout = shared.Duration{Duration: 200 * time.Millisecond}
	relay := NewRelay(mediaInfo(server.URL), profiles.DefaultTable(), c, server.Client(), nil)

	stream, err := relay.Open(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks, err := collect(t, stream)
	if err != nil {
		t.Fatalf("steady upstream should not time out: %v", err)
	}
	if got := len(bytes.Join(chunks, nil)); got != writes*len(piece) {
		t.Errorf("relayed %d bytes, want %d", got, writes*len(piece))
	}
	if stats := stream.Stats(); stats.State != StateCompleted || stats.Chunks != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestStream_TruncatedUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		defer conn.Close()

		buf.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 1000\r\nContent-Type: audio/webm\r\n\r\n")
		buf.Write(bytes.Repeat([]byte("x"), 300))
		buf.Flush()
	}))
	defer server.Close()

	relay := NewRelay(mediaInfo(server.URL), profiles.DefaultTable(), relayConfig(), server.Client(), nil)
	stream, err := relay.Open(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks, err := collect(t, stream)
	if !errors.Is(err, shared.ErrUpstreamFailed) {
		t.Fatalf("expected ErrUpstreamFailed, got %v", err)
	}
	if got := len(bytes.Join(chunks, nil)); got != 300 {
		t.Errorf("expected the 300 bytes sent before the cut, got %d", got)
	}
	if stream.Stats().State != StateAborted {
		t.Errorf("expected aborted, got %v", stream.Stats().State)
	}
}

func TestNewHTTPClient(t *testing.T) {
	c := shared.DefaultConfig().Relay

	t.Run("applies timeouts", func(t *testing.T) {
		client, err := NewHTTPClient(c, profiles.OptionProfile{ForceIPv4: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		transport := client.Transport.(*http.Transport)
		if transport.ResponseHeaderTimeout != c.HeaderTimeout.Duration {
			t.Errorf("expected header timeout %s, got %s", c.HeaderTimeout.Duration, transport.ResponseHeaderTimeout)
		}
		if transport.TLSHandshakeTimeout != c.ConnectTimeout.Duration {
			t.Errorf("expected TLS timeout %s, got %s", c.ConnectTimeout.Duration, transport.TLSHandshakeTimeout)
		}
		if client.Timeout != 0 {
			t.Error("expected no overall client timeout")
		}
	})

	t.Run("proxy", func(t *testing.T) {
		client, err := NewHTTPClient(c, profiles.OptionProfile{Proxy: "http://127.0.0.1:3128"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		req, _ := http.NewRequest(http.MethodGet, "https://media.example/a", nil)
		proxyURL, err := client.Transport.(*http.Transport).Proxy(req)
		if err != nil || proxyURL == nil || proxyURL.Host != "127.0.0.1:3128" {
			t.Errorf("expected proxy 127.0.0.1:3128, got %v (%v)", proxyURL, err)
		}
	})

	t.Run("bad proxy", func(t *testing.T) {
		_, err := NewHTTPClient(c, profiles.OptionProfile{Proxy: "://nope"})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
