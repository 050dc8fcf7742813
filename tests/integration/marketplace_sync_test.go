package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JoaChP/talentbridge-backend/internal/auth"
	"github.com/JoaChP/talentbridge-backend/internal/events"
	"github.com/JoaChP/talentbridge-backend/internal/mirror"
	"github.com/JoaChP/talentbridge-backend/internal/server"
	"github.com/JoaChP/talentbridge-backend/internal/store"
)

const (
	integrationSecret = "integration-secret"
	integrationBinID  = "test-bin"
	jsonContentType   = "application/json"
)

// blobServer is an in-memory stand-in for the shared remote document
// store, speaking the same GET-latest/PUT wire shape.
type blobServer struct {
	mu       sync.Mutex
	document json.RawMessage
}

func (b *blobServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /b/"+integrationBinID+"/latest", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		document := b.document
		b.mu.Unlock()
		if document == nil {
			document = json.RawMessage("{}")
		}
		w.Header().Set("Content-Type", jsonContentType)
		fmt.Fprintf(w, `{"record":%s}`, document)
	})
	mux.HandleFunc("PUT /b/"+integrationBinID, func(w http.ResponseWriter, r *http.Request) {
		var document json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&document); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.document = document
		b.mu.Unlock()
	})
	return mux
}

type testEnvironment struct {
	handler http.Handler
	facade  *mirror.Facade
	source  mirror.Source
}

func startEnvironment(t *testing.T, remoteURL, databasePath string) testEnvironment {
	t.Helper()
	gin.SetMode(gin.TestMode)

	local, err := mirror.OpenLocal(databasePath, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open local mirror: %v", err)
	}
	t.Cleanup(func() {
		if err := local.Close(); err != nil {
			t.Errorf("failed to close local mirror: %v", err)
		}
	})

	remote := mirror.NewRemoteMirror(mirror.RemoteMirrorConfig{
		Endpoint: remoteURL,
		BinID:    integrationBinID,
	})
	facade, err := mirror.NewFacade(mirror.FacadeConfig{Local: local, Remote: remote})
	if err != nil {
		t.Fatalf("failed to build facade: %v", err)
	}

	snapshot, source, err := facade.Initialize(t.Context())
	if err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}

	tokens := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(integrationSecret),
		Issuer:        "talentbridge-auth",
		Audience:      "talentbridge-api",
	})
	bus := events.NewBus()
	entityStore, err := store.New(store.Config{
		Initial:   snapshot,
		Persister: facade,
		Notifier:  bus,
		Tokens:    tokens,
	})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Store:  entityStore,
		Tokens: tokens,
		Bus:    bus,
		Remote: facade,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	return testEnvironment{handler: handler, facade: facade, source: source}
}

func (e testEnvironment) request(t *testing.T, method, target, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
		body = raw
	}
	request := httptest.NewRequest(method, target, bytes.NewReader(body))
	request.Header.Set("Content-Type", jsonContentType)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, request)
	return recorder
}

func (e testEnvironment) login(t *testing.T, email, password string) string {
	t.Helper()
	recorder := e.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d body %s", email, recorder.Code, recorder.Body.String())
	}
	var session struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &session); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	return session.AccessToken
}

func TestColdStartApplyAcceptAndRecoverFromRemote(t *testing.T) {
	blobs := &blobServer{}
	remote := httptest.NewServer(blobs.handler())
	defer remote.Close()

	first := startEnvironment(t, remote.URL, filepath.Join(t.TempDir(), "first.db"))
	if first.source != mirror.SourceSeed {
		t.Fatalf("expected seed source on a blank deployment, got %q", first.source)
	}

	studentToken := first.login(t, store.SeedStudentEmail, store.SeedStudentPassword)
	companyToken := first.login(t, store.SeedCompanyEmail, store.SeedCompanyPassword)

	// Apply to a seeded published practice the student has not touched yet.
	applied := first.request(t, http.MethodPost, "/practices/seed-practice-data/applications", studentToken, nil)
	if applied.Code != http.StatusCreated {
		t.Fatalf("apply failed: %d body %s", applied.Code, applied.Body.String())
	}
	var application store.Application
	if err := json.Unmarshal(applied.Body.Bytes(), &application); err != nil {
		t.Fatalf("failed to decode application: %v", err)
	}

	// The practice owner moves it through the workflow.
	reviewed := first.request(t, http.MethodPatch, "/applications/"+application.ID, companyToken, map[string]string{"status": "Reviewing"})
	if reviewed.Code != http.StatusOK {
		t.Fatalf("review failed: %d body %s", reviewed.Code, reviewed.Body.String())
	}
	accepted := first.request(t, http.MethodPatch, "/applications/"+application.ID, companyToken, map[string]string{"status": "Accepted"})
	if accepted.Code != http.StatusOK {
		t.Fatalf("accept failed: %d body %s", accepted.Code, accepted.Body.String())
	}

	// Open the conversation attached to the application.
	thread := first.request(t, http.MethodPost, "/threads", studentToken, map[string]string{"practiceId": "seed-practice-data"})
	if thread.Code != http.StatusOK {
		t.Fatalf("thread creation failed: %d body %s", thread.Code, thread.Body.String())
	}

	// Let all background remote writes settle before the second cold start.
	first.facade.Wait()

	// A fresh deployment with an empty local mirror recovers everything
	// from the shared remote document.
	second := startEnvironment(t, remote.URL, filepath.Join(t.TempDir(), "second.db"))
	if second.source != mirror.SourceRemote {
		t.Fatalf("expected remote source on recovery, got %q", second.source)
	}

	recoveredToken := second.login(t, store.SeedStudentEmail, store.SeedStudentPassword)
	listed := second.request(t, http.MethodGet, "/applications", recoveredToken, nil)
	if listed.Code != http.StatusOK {
		t.Fatalf("listing applications failed: %d", listed.Code)
	}
	var response struct {
		Applications []store.Application `json:"applications"`
	}
	if err := json.Unmarshal(listed.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode applications: %v", err)
	}
	// The seed set already carries one application for this student.
	if len(response.Applications) != 2 {
		t.Fatalf("expected two applications after recovery, got %d", len(response.Applications))
	}
	var recovered *store.Application
	for index := range response.Applications {
		if response.Applications[index].PracticeID == "seed-practice-data" {
			recovered = &response.Applications[index]
		}
	}
	if recovered == nil {
		t.Fatal("the new application did not survive recovery")
	}
	if recovered.Status != store.ApplicationAccepted {
		t.Fatalf("expected accepted status after recovery, got %q", recovered.Status)
	}

	threads := second.request(t, http.MethodGet, "/threads", recoveredToken, nil)
	if threads.Code != http.StatusOK {
		t.Fatalf("listing threads failed: %d", threads.Code)
	}
	var threadResponse struct {
		Threads []store.Thread `json:"threads"`
	}
	if err := json.Unmarshal(threads.Body.Bytes(), &threadResponse); err != nil {
		t.Fatalf("failed to decode threads: %v", err)
	}
	if len(threadResponse.Threads) != 1 {
		t.Fatalf("expected the recovered thread, got %d", len(threadResponse.Threads))
	}
}
