package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JoaChP/talentbridge-backend/internal/store"
)

const (
	defaultRemoteTimeout = 8 * time.Second
	secretHeader         = "X-Master-Key"
)

// ErrRemoteUnavailable indicates a remote mirror read or write failed.
// Mutating operations never surface it; only explicit status probes do.
var ErrRemoteUnavailable = errors.New("mirror: remote unavailable")

// RemoteMirrorConfig carries the connection parameters of the shared blob
// store.
type RemoteMirrorConfig struct {
	Endpoint string
	BinID    string
	APIKey   string
	Timeout  time.Duration
	Client   *http.Client
}

// RemoteMirror persists the snapshot in a shared single-document blob
// store over HTTP: GET <endpoint>/b/<bin>/latest returns the document
// wrapped in a record envelope, PUT <endpoint>/b/<bin> replaces it.
type RemoteMirror struct {
	endpoint string
	binID    string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
}

// NewRemoteMirror constructs the adapter. An empty bin id yields an
// unconfigured mirror that refuses all calls.
func NewRemoteMirror(cfg RemoteMirrorConfig) *RemoteMirror {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &RemoteMirror{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		binID:    cfg.BinID,
		apiKey:   cfg.APIKey,
		timeout:  timeout,
		client:   client,
	}
}

// Configured reports whether connection parameters are present.
func (m *RemoteMirror) Configured() bool {
	return m.endpoint != "" && m.binID != ""
}

// Timeout returns the bound applied to every remote call.
func (m *RemoteMirror) Timeout() time.Duration {
	return m.timeout
}

type recordEnvelope struct {
	Record store.Snapshot `json:"record"`
}

// Fetch reads the latest remote document. The second return is false when
// the document is empty.
func (m *RemoteMirror) Fetch(ctx context.Context) (store.Snapshot, bool, error) {
	if !m.Configured() {
		return store.Snapshot{}, false, fmt.Errorf("%w: not configured", ErrRemoteUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/b/%s/latest", m.endpoint, m.binID)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return store.Snapshot{}, false, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	m.setHeaders(request)

	response, err := m.client.Do(request)
	if err != nil {
		return store.Snapshot{}, false, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return store.Snapshot{}, false, fmt.Errorf("%w: unexpected status %d", ErrRemoteUnavailable, response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return store.Snapshot{}, false, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	var envelope recordEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return store.Snapshot{}, false, fmt.Errorf("%w: malformed document: %v", ErrRemoteUnavailable, err)
	}
	if envelope.Record.Empty() {
		return store.Snapshot{}, false, nil
	}
	return envelope.Record, true, nil
}

// Put replaces the remote document with the snapshot.
func (m *RemoteMirror) Put(ctx context.Context, snapshot store.Snapshot) error {
	if !m.Configured() {
		return fmt.Errorf("%w: not configured", ErrRemoteUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	body, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/b/%s", m.endpoint, m.binID)
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	request.Header.Set("Content-Type", "application/json")
	m.setHeaders(request)

	response, err := m.client.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrRemoteUnavailable, response.StatusCode)
	}
	return nil
}

func (m *RemoteMirror) setHeaders(request *http.Request) {
	if m.apiKey != "" {
		request.Header.Set(secretHeader, m.apiKey)
	}
}
