// Package profiles holds the option bundles handed to the extractor for each kind of request.
//
// A [Table] is built once at startup from configuration and never mutated; [Table.Select]
// hands out copies, so handlers may read it concurrently without locking.
package profiles

import (
	"fmt"
	"maps"
	"strings"

	"github.com/desertthunder/ytrelay/internal/shared"
)

// Intent names the kind of request an option profile serves.
type Intent string

const (
	IntentSearch         Intent = "search"
	IntentPlaylist       Intent = "playlist"
	IntentStreamMetadata Intent = "stream-metadata"
	IntentProxy          Intent = "proxy"
)

// Intents lists every intent the table must cover.
var Intents = []Intent{IntentSearch, IntentPlaylist, IntentStreamMetadata, IntentProxy}

// Client is the player client identity the extractor impersonates.
type Client string

const (
	ClientDefault Client = ""
	ClientWeb     Client = "web"
	ClientAndroid Client = "android"
	ClientIOS     Client = "ios"
	ClientTV      Client = "tv"
)

// ParseClient validates a configured client name.
func ParseClient(s string) (Client, error) {
	switch c := Client(strings.ToLower(strings.TrimSpace(s))); c {
	case ClientDefault, ClientWeb, ClientAndroid, ClientIOS, ClientTV:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown player client %q", shared.ErrInvalidConfig, s)
	}
}

// OptionProfile is the option bundle passed to the extractor for one intent.
type OptionProfile struct {
	Quiet        bool
	ForceIPv4    bool
	Client       Client
	ExtraHeaders map[string]string
	UserAgent    string
	Proxy        string

	Format       string // format selector, empty for the extractor default
	FlatPlaylist bool   // list entries without resolving each one
	NoPlaylist   bool   // treat watch URLs carrying a list= parameter as a single video
}

// Headers returns the header set sent with extractor and upstream requests.
func (p OptionProfile) Headers() map[string]string {
	headers := make(map[string]string, len(p.ExtraHeaders)+1)
	maps.Copy(headers, p.ExtraHeaders)
	if p.UserAgent != "" {
		headers["User-Agent"] = p.UserAgent
	}
	return headers
}

func (p OptionProfile) clone() OptionProfile {
	p.ExtraHeaders = maps.Clone(p.ExtraHeaders)
	return p
}

// Table maps every [Intent] to its [OptionProfile].
type Table struct {
	profiles map[Intent]OptionProfile
}

// Select returns a copy of the profile for intent.
//
// Every [Intent] constant is present in a table built by [NewTable]; asking for any other
// value is a programming error and panics.
func (t *Table) Select(intent Intent) OptionProfile {
	p, ok := t.profiles[intent]
	if !ok {
		panic(fmt.Sprintf("profiles: no option profile for intent %q", intent))
	}
	return p.clone()
}

// NewTable builds the profile table from configuration.
//
// Metadata listing (search, playlist) uses flat extraction with the default client; stream
// extraction spoofs the configured player client and asks for the best audio format.
func NewTable(c shared.ProfileConfig, proxy string) (*Table, error) {
	client, err := ParseClient(c.Client)
	if err != nil {
		return nil, err
	}

	headers := maps.Clone(c.Headers)
	if headers == nil {
		headers = map[string]string{}
	}

	if c.HeadersCurlFile != "" {
		curl, err := shared.ParseCurlFile(c.HeadersCurlFile)
		if err != nil {
			return nil, fmt.Errorf("%w: headers_curl_file: %v", shared.ErrInvalidConfig, err)
		}
		maps.Copy(headers, curl.HTTPHeaders())
	}

	base := OptionProfile{
		Quiet:        true,
		ForceIPv4:    true,
		ExtraHeaders: headers,
		UserAgent:    c.UserAgent,
		Proxy:        proxy,
	}

	listing := base.clone()
	listing.FlatPlaylist = true

	stream := base.clone()
	stream.Client = client
	stream.Format = "bestaudio/best"
	stream.NoPlaylist = true

	return &Table{profiles: map[Intent]OptionProfile{
		IntentSearch:         listing,
		IntentPlaylist:       listing.clone(),
		IntentStreamMetadata: stream,
		IntentProxy:          stream.clone(),
	}}, nil
}

// DefaultTable builds a table from the embedded default configuration.
func DefaultTable() *Table {
	c := shared.DefaultConfig()
	t, err := NewTable(c.Profile, c.Extractor.Proxy)
	if err != nil {
		panic(fmt.Sprintf("profiles: default table: %v", err))
	}
	return t
}
