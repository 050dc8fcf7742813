package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/JoaChP/talentbridge-backend/internal/events"
)

type recordingPersister struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (p *recordingPersister) Persist(_ context.Context, snapshot Snapshot) {
	p.mu.Lock()
	p.snapshots = append(p.snapshots, snapshot)
	p.mu.Unlock()
}

func (p *recordingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

type recordingNotifier struct {
	mu    sync.Mutex
	names []events.Name
}

func (n *recordingNotifier) Publish(name events.Name) {
	n.mu.Lock()
	n.names = append(n.names, name)
	n.mu.Unlock()
}

func (n *recordingNotifier) published() []events.Name {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]events.Name(nil), n.names...)
}

type stubTokenSource struct{}

func (stubTokenSource) IssueToken(_ context.Context, userID string) (string, int64, error) {
	return "token-for-" + userID, 3600, nil
}

type sequentialIDProvider struct {
	mu   sync.Mutex
	next int
}

func (p *sequentialIDProvider) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("id-%d", p.next), nil
}

func stubHash(password string) (string, error) {
	return "hashed:" + password, nil
}

func stubCheck(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

type storeFixture struct {
	store     *Store
	persister *recordingPersister
	notifier  *recordingNotifier
}

func newTestStore(t *testing.T, initial Snapshot) storeFixture {
	t.Helper()
	persister := &recordingPersister{}
	notifier := &recordingNotifier{}
	s, err := New(Config{
		Initial:       initial,
		Persister:     persister,
		Notifier:      notifier,
		Tokens:        stubTokenSource{},
		Clock:         func() time.Time { return time.Unix(1700000000, 0).UTC() },
		IDProvider:    &sequentialIDProvider{},
		HashPassword:  stubHash,
		CheckPassword: stubCheck,
	})
	if err != nil {
		t.Fatalf("unexpected store construction error: %v", err)
	}
	return storeFixture{store: s, persister: persister, notifier: notifier}
}

func marketplaceSnapshot() Snapshot {
	company := Company{ID: "co-1", Name: "NovaTech", OwnerUserID: "user-owner"}
	return Snapshot{
		Users: []User{
			{ID: "user-admin", Name: "Root", Email: "root@talentbridge.dev", Role: RoleAdmin, PasswordHash: "hashed:rootpw"},
			{ID: "user-owner", Name: "NovaTech Talent", Email: "talent@novatech.dev", Role: RoleCompany, PasswordHash: "hashed:ownerpw"},
			{ID: "user-other-company", Name: "Rival Corp", Email: "talent@rival.dev", Role: RoleCompany, PasswordHash: "hashed:rivalpw"},
			{ID: "user-maria", Name: "Maria Lopez", Email: "maria@student.dev", Role: RoleStudent, PasswordHash: "hashed:mariapw"},
			{ID: "user-pedro", Name: "Pedro Ruiz", Email: "pedro@student.dev", Role: RoleStudent, PasswordHash: "hashed:pedropw"},
		},
		Practices: []Practice{
			{
				ID:             "practice-frontend",
				Title:          "Frontend Developer Intern",
				Company:        company,
				City:           "Valencia",
				Country:        "Spain",
				Modality:       ModalityHybrid,
				DurationMonths: 6,
				Skills:         []string{"TypeScript", "React"},
				Description:    "Build customer dashboards.",
				Status:         PracticePublished,
			},
			{
				ID:             "practice-data",
				Title:          "Data Engineering Intern",
				Company:        company,
				City:           "Madrid",
				Country:        "Spain",
				Modality:       ModalityRemote,
				DurationMonths: 4,
				Skills:         []string{"Python", "SQL"},
				Description:    "Ship ingestion pipelines.",
				Status:         PracticePublished,
			},
			{
				ID:             "practice-draft",
				Title:          "QA Intern",
				Company:        company,
				City:           "Valencia",
				Country:        "Spain",
				Modality:       ModalityOnsite,
				DurationMonths: 3,
				Skills:         []string{"Playwright"},
				Description:    "Extend the regression suite.",
				Status:         PracticeDraft,
			},
		},
		Applications: []Application{},
		Threads:      []Thread{},
		Messages:     []Message{},
	}
}
