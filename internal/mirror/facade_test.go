package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFacade(t *testing.T, remote *RemoteMirror, clock func() time.Time) (*Facade, *LocalMirror) {
	t.Helper()
	local := openTestMirror(t)
	facade, err := NewFacade(FacadeConfig{Local: local, Remote: remote, Clock: clock})
	if err != nil {
		t.Fatalf("failed to build facade: %v", err)
	}
	return facade, local
}

func TestFacadeInitializePrefersRemote(t *testing.T) {
	remoteDoc := testSnapshot()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"record": remoteDoc})
	}))
	defer server.Close()

	remote := NewRemoteMirror(RemoteMirrorConfig{Endpoint: server.URL, BinID: "bin-1"})
	facade, local := newTestFacade(t, remote, nil)

	snapshot, source, err := facade.Initialize(context.Background())
	if err != nil {
		t.Fatalf("unexpected initialize error: %v", err)
	}
	if source != SourceRemote {
		t.Fatalf("expected remote source, got %q", source)
	}
	if mustJSON(t, snapshot) != mustJSON(t, remoteDoc) {
		t.Fatal("initialize did not return the remote document")
	}

	// Repair-on-read: the remote document must now live in the local mirror.
	stored, ok, err := local.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected repaired local document, ok=%v err=%v", ok, err)
	}
	if mustJSON(t, stored) != mustJSON(t, remoteDoc) {
		t.Fatal("local mirror holds a different document than the remote")
	}
	if facade.RemoteStatus() != nil {
		t.Fatalf("expected healthy remote status, got %v", facade.RemoteStatus())
	}
}

func TestFacadeInitializeFallsBackToLocal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	remote := NewRemoteMirror(RemoteMirrorConfig{Endpoint: server.URL, BinID: "bin-1"})
	facade, local := newTestFacade(t, remote, nil)

	localDoc := testSnapshot()
	if err := local.Save(context.Background(), localDoc, time.Now().Unix()); err != nil {
		t.Fatalf("failed to seed local mirror: %v", err)
	}

	snapshot, source, err := facade.Initialize(context.Background())
	if err != nil {
		t.Fatalf("unexpected initialize error: %v", err)
	}
	if source != SourceLocal {
		t.Fatalf("expected local source, got %q", source)
	}
	if mustJSON(t, snapshot) != mustJSON(t, localDoc) {
		t.Fatal("initialize did not return the local document")
	}
	if facade.RemoteStatus() == nil {
		t.Fatal("expected remote status to carry the fetch failure")
	}
}

func TestFacadeInitializeFallsBackToSeed(t *testing.T) {
	facade, local := newTestFacade(t, NewRemoteMirror(RemoteMirrorConfig{}), nil)

	snapshot, source, err := facade.Initialize(context.Background())
	if err != nil {
		t.Fatalf("unexpected initialize error: %v", err)
	}
	if source != SourceSeed {
		t.Fatalf("expected seed source, got %q", source)
	}
	if snapshot.Empty() {
		t.Fatal("seed snapshot must not be empty")
	}
	facade.Wait()

	// The seed set is persisted immediately so the next cold start hits
	// the local mirror.
	stored, ok, err := local.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected persisted seed set, ok=%v err=%v", ok, err)
	}
	if mustJSON(t, stored) != mustJSON(t, snapshot) {
		t.Fatal("persisted seed differs from the returned snapshot")
	}
}

func TestFacadeInitializeServesCachedRemoteWithinTTL(t *testing.T) {
	var fetches atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"record": testSnapshot()})
	}))
	defer server.Close()

	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	remote := NewRemoteMirror(RemoteMirrorConfig{Endpoint: server.URL, BinID: "bin-1"})
	facade, _ := newTestFacade(t, remote, clock)

	for i := 0; i < 3; i++ {
		if _, source, err := facade.Initialize(context.Background()); err != nil || source != SourceRemote {
			t.Fatalf("initialize %d: source=%q err=%v", i, source, err)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected a single fetch within the cache window, got %d", got)
	}

	now = now.Add(defaultCacheTTL + time.Second)
	if _, source, err := facade.Initialize(context.Background()); err != nil || source != SourceRemote {
		t.Fatalf("post-expiry initialize: source=%q err=%v", source, err)
	}
	if got := fetches.Load(); got != 2 {
		t.Fatalf("expected a refetch after the cache expired, got %d", got)
	}
}

func TestFacadePersistWritesBothMirrors(t *testing.T) {
	var puts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			puts.Add(1)
		}
	}))
	defer server.Close()

	remote := NewRemoteMirror(RemoteMirrorConfig{Endpoint: server.URL, BinID: "bin-1"})
	facade, local := newTestFacade(t, remote, nil)

	snapshot := testSnapshot()
	facade.Persist(context.Background(), snapshot)
	facade.Wait()

	stored, ok, err := local.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected local document after persist, ok=%v err=%v", ok, err)
	}
	if mustJSON(t, stored) != mustJSON(t, snapshot) {
		t.Fatal("local mirror holds a different document")
	}
	if got := puts.Load(); got != 1 {
		t.Fatalf("expected one remote write, got %d", got)
	}
	if facade.RemoteStatus() != nil {
		t.Fatalf("expected healthy remote status, got %v", facade.RemoteStatus())
	}
}

func TestFacadePersistSurvivesRemoteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	remote := NewRemoteMirror(RemoteMirrorConfig{Endpoint: server.URL, BinID: "bin-1"})
	facade, local := newTestFacade(t, remote, nil)

	snapshot := testSnapshot()
	facade.Persist(context.Background(), snapshot)
	facade.Wait()

	// The local write settles regardless of the remote outcome.
	stored, ok, err := local.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected local document after persist, ok=%v err=%v", ok, err)
	}
	if mustJSON(t, stored) != mustJSON(t, snapshot) {
		t.Fatal("local mirror holds a different document")
	}
	if facade.RemoteStatus() == nil {
		t.Fatal("expected remote status to carry the write failure")
	}
}
