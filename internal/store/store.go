package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JoaChP/talentbridge-backend/internal/auth"
	"github.com/JoaChP/talentbridge-backend/internal/events"
)

const snippetLimit = 50

var (
	errMissingPersister = errors.New("store: persister is required")
	errMissingNotifier  = errors.New("store: notifier is required")
	errMissingTokens    = errors.New("store: token source is required")
	noOpLogger          = zap.NewNop()
)

// Persister receives the full snapshot after every committed mutation.
// Persistence failures stay inside the persister; the store never learns
// about them.
type Persister interface {
	Persist(ctx context.Context, snapshot Snapshot)
}

// Notifier broadcasts change events after a committed mutation.
type Notifier interface {
	Publish(name events.Name)
}

// TokenSource issues bearer tokens for authenticated users.
type TokenSource interface {
	IssueToken(ctx context.Context, userID string) (token string, expiresIn int64, err error)
}

// Config describes the dependencies of the entity store.
type Config struct {
	Initial       Snapshot
	Persister     Persister
	Notifier      Notifier
	Tokens        TokenSource
	Clock         func() time.Time
	IDProvider    IDProvider
	Logger        *zap.Logger
	HashPassword  func(password string) (string, error)
	CheckPassword func(hash, password string) error
}

// Store is the sole owner and mutator of the five canonical collections.
// Every mutation commits in memory first, then flows through the
// persister and the notifier.
type Store struct {
	mu            sync.RWMutex
	data          Snapshot
	persister     Persister
	notifier      Notifier
	tokens        TokenSource
	clock         func() time.Time
	idProvider    IDProvider
	logger        *zap.Logger
	hashPassword  func(string) (string, error)
	checkPassword func(hash, password string) error
}

// New constructs the store around an initial snapshot.
func New(cfg Config) (*Store, error) {
	if cfg.Persister == nil {
		return nil, errMissingPersister
	}
	if cfg.Notifier == nil {
		return nil, errMissingNotifier
	}
	if cfg.Tokens == nil {
		return nil, errMissingTokens
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	hash := cfg.HashPassword
	if hash == nil {
		hash = auth.HashPassword
	}
	check := cfg.CheckPassword
	if check == nil {
		check = auth.CheckPassword
	}
	return &Store{
		data:          cfg.Initial.Clone(),
		persister:     cfg.Persister,
		notifier:      cfg.Notifier,
		tokens:        cfg.Tokens,
		clock:         clock,
		idProvider:    idProvider,
		logger:        logger,
		hashPassword:  hash,
		checkPassword: check,
	}, nil
}

// Session is the result of a successful login or registration.
type Session struct {
	User      User
	Token     string
	ExpiresIn int64
}

// Login authenticates by email and password.
func (s *Store) Login(ctx context.Context, email, password string) (Session, error) {
	normalized := normalizeEmail(email)

	s.mu.RLock()
	var found *User
	for i := range s.data.Users {
		if normalizeEmail(s.data.Users[i].Email) == normalized {
			found = &s.data.Users[i]
			break
		}
	}
	var candidate User
	if found != nil {
		candidate = *found
	}
	s.mu.RUnlock()

	if found == nil {
		return Session{}, fmt.Errorf("%w: unknown email", ErrInvalidCredentials)
	}
	if err := s.checkPassword(candidate.PasswordHash, password); err != nil {
		return Session{}, fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
	}
	return s.newSession(ctx, candidate)
}

// Register creates a user account and returns a session for it.
func (s *Store) Register(ctx context.Context, name, email, password string, role Role, phone string) (Session, error) {
	name = strings.TrimSpace(name)
	normalized := normalizeEmail(email)
	if name == "" || normalized == "" || password == "" {
		return Session{}, fmt.Errorf("%w: name, email, and password are required", ErrValidation)
	}
	if role == "" {
		role = RoleStudent
	}
	if !ValidRole(role) {
		return Session{}, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return Session{}, err
	}

	var created User
	err = s.mutate(ctx, func() ([]events.Name, error) {
		for i := range s.data.Users {
			if normalizeEmail(s.data.Users[i].Email) == normalized {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, normalized)
			}
		}
		id, err := s.idProvider.NewID()
		if err != nil {
			return nil, err
		}
		created = User{
			ID:           id,
			Name:         name,
			Email:        normalized,
			Role:         role,
			PasswordHash: hash,
			Phone:        strings.TrimSpace(phone),
		}
		s.data.Users = append(s.data.Users, created)
		return []events.Name{events.DataUpdated}, nil
	})
	if err != nil {
		return Session{}, err
	}
	return s.newSession(ctx, created)
}

func (s *Store) newSession(ctx context.Context, user User) (Session, error) {
	token, expiresIn, err := s.tokens.IssueToken(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	user.PasswordHash = ""
	return Session{User: user, Token: token, ExpiresIn: expiresIn}, nil
}

// ListPractices returns published practices narrowed by the filter.
func (s *Store) ListPractices(filter PracticeFilter) []Practice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Practice, 0)
	for _, practice := range s.data.Practices {
		if filter.matches(practice) {
			matched = append(matched, clonePractice(practice))
		}
	}
	return matched
}

// GetPractice looks up a practice by id.
func (s *Store) GetPractice(id string) (Practice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, practice := range s.data.Practices {
		if practice.ID == id {
			return clonePractice(practice), nil
		}
	}
	return Practice{}, fmt.Errorf("%w: practice %s", ErrNotFound, id)
}

// GetUser looks up a user by id. The password hash is never returned.
func (s *Store) GetUser(id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.data.Users {
		if user.ID == id {
			user.PasswordHash = ""
			return user, nil
		}
	}
	return User{}, fmt.Errorf("%w: user %s", ErrNotFound, id)
}

// CreatePractice stores a new posting. The embedded company owner must be
// an existing user with role company or admin.
func (s *Store) CreatePractice(ctx context.Context, data Practice) (Practice, error) {
	if strings.TrimSpace(data.Title) == "" {
		return Practice{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if data.Status == "" {
		data.Status = PracticeDraft
	}

	var created Practice
	err := s.mutate(ctx, func() ([]events.Name, error) {
		owner, ok := s.findUserLocked(data.Company.OwnerUserID)
		if !ok {
			return nil, fmt.Errorf("%w: owner user %s", ErrNotFound, data.Company.OwnerUserID)
		}
		if owner.Role != RoleCompany && owner.Role != RoleAdmin {
			return nil, fmt.Errorf("%w: owner must have role company or admin", ErrValidation)
		}
		id, err := s.idProvider.NewID()
		if err != nil {
			return nil, err
		}
		data.ID = id
		if data.Company.ID == "" {
			companyID, err := s.idProvider.NewID()
			if err != nil {
				return nil, err
			}
			data.Company.ID = companyID
		}
		created = clonePractice(data)
		s.data.Practices = append(s.data.Practices, data)
		return []events.Name{events.DataUpdated}, nil
	})
	if err != nil {
		return Practice{}, err
	}
	return created, nil
}

// PracticePatch carries the optional fields of a shallow practice update.
type PracticePatch struct {
	Title          *string
	City           *string
	Country        *string
	Modality       *Modality
	DurationMonths *int
	Skills         *[]string
	Description    *string
	Status         *PracticeStatus
	Vacancies      *int
	Benefits       *[]string
	CompanyName    *string
	CompanyLogoURL *string
}

// UpdatePractice performs a shallow merge of the patch over the stored
// practice.
func (s *Store) UpdatePractice(ctx context.Context, id string, patch PracticePatch) (Practice, error) {
	var updated Practice
	err := s.mutate(ctx, func() ([]events.Name, error) {
		index := s.practiceIndexLocked(id)
		if index < 0 {
			return nil, fmt.Errorf("%w: practice %s", ErrNotFound, id)
		}
		practice := &s.data.Practices[index]
		if patch.Title != nil {
			practice.Title = *patch.Title
		}
		if patch.City != nil {
			practice.City = *patch.City
		}
		if patch.Country != nil {
			practice.Country = *patch.Country
		}
		if patch.Modality != nil {
			practice.Modality = *patch.Modality
		}
		if patch.DurationMonths != nil {
			practice.DurationMonths = *patch.DurationMonths
		}
		if patch.Skills != nil {
			practice.Skills = append([]string(nil), (*patch.Skills)...)
		}
		if patch.Description != nil {
			practice.Description = *patch.Description
		}
		if patch.Status != nil {
			practice.Status = *patch.Status
		}
		if patch.Vacancies != nil {
			practice.Vacancies = *patch.Vacancies
		}
		if patch.Benefits != nil {
			practice.Benefits = append([]string(nil), (*patch.Benefits)...)
		}
		if patch.CompanyName != nil {
			practice.Company.Name = *patch.CompanyName
		}
		if patch.CompanyLogoURL != nil {
			practice.Company.LogoURL = *patch.CompanyLogoURL
		}
		updated = clonePractice(*practice)
		return []events.Name{events.DataUpdated}, nil
	})
	if err != nil {
		return Practice{}, err
	}
	return updated, nil
}

// ApplyToPractice creates a Submitted application for the pair. At most
// one application may exist per (practice, user).
func (s *Store) ApplyToPractice(ctx context.Context, practiceID, userID string) (Application, error) {
	var created Application
	err := s.mutate(ctx, func() ([]events.Name, error) {
		if s.practiceIndexLocked(practiceID) < 0 {
			return nil, fmt.Errorf("%w: practice %s", ErrNotFound, practiceID)
		}
		if _, ok := s.findUserLocked(userID); !ok {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		for _, application := range s.data.Applications {
			if application.PracticeID == practiceID && application.UserID == userID {
				return nil, fmt.Errorf("%w: practice %s user %s", ErrDuplicateApplication, practiceID, userID)
			}
		}
		id, err := s.idProvider.NewID()
		if err != nil {
			return nil, err
		}
		created = Application{
			ID:         id,
			PracticeID: practiceID,
			UserID:     userID,
			Status:     ApplicationSubmitted,
			CreatedAt:  s.clock().UTC(),
		}
		s.data.Applications = append(s.data.Applications, created)
		return []events.Name{events.ApplicationCreated}, nil
	})
	if err != nil {
		return Application{}, err
	}
	return created, nil
}

// UpdateApplicationStatus moves an application through the review
// workflow. Only the owner of the practice or an admin may review, and
// the transition table is authoritative.
func (s *Store) UpdateApplicationStatus(ctx context.Context, applicationID string, next ApplicationStatus, reviewerUserID string) (Application, error) {
	if !ValidApplicationStatus(next) {
		return Application{}, fmt.Errorf("%w: unknown status %q", ErrValidation, next)
	}

	var updated Application
	err := s.mutate(ctx, func() ([]events.Name, error) {
		index := -1
		for i := range s.data.Applications {
			if s.data.Applications[i].ID == applicationID {
				index = i
				break
			}
		}
		if index < 0 {
			return nil, fmt.Errorf("%w: application %s", ErrNotFound, applicationID)
		}
		application := &s.data.Applications[index]
		practiceIndex := s.practiceIndexLocked(application.PracticeID)
		if practiceIndex < 0 {
			return nil, fmt.Errorf("%w: practice %s", ErrNotFound, application.PracticeID)
		}
		practice := s.data.Practices[practiceIndex]

		reviewer, ok := s.findUserLocked(reviewerUserID)
		if !ok || (reviewer.Role != RoleAdmin && practice.Company.OwnerUserID != reviewerUserID) {
			return nil, fmt.Errorf("%w: reviewer %s", ErrForbidden, reviewerUserID)
		}
		if !CanTransition(application.Status, next) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidState, application.Status, next)
		}
		if application.Status == next {
			updated = *application
			return nil, nil
		}
		application.Status = next
		updated = *application
		return []events.Name{events.ApplicationStatusChanged}, nil
	})
	if err != nil {
		return Application{}, err
	}
	return updated, nil
}

// DeleteApplication removes an application unless it has been accepted.
func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	return s.mutate(ctx, func() ([]events.Name, error) {
		for i := range s.data.Applications {
			if s.data.Applications[i].ID != id {
				continue
			}
			if s.data.Applications[i].Status == ApplicationAccepted {
				return nil, fmt.Errorf("%w: accepted applications cannot be deleted", ErrInvalidState)
			}
			s.data.Applications = append(s.data.Applications[:i], s.data.Applications[i+1:]...)
			return []events.Name{events.DataUpdated}, nil
		}
		return nil, fmt.Errorf("%w: application %s", ErrNotFound, id)
	})
}

// DeletePractice removes a practice together with its applications,
// threads, and the messages of those threads.
func (s *Store) DeletePractice(ctx context.Context, id string) error {
	return s.mutate(ctx, func() ([]events.Name, error) {
		if !s.removePracticeLocked(id) {
			return nil, fmt.Errorf("%w: practice %s", ErrNotFound, id)
		}
		return []events.Name{events.PracticeDeleted}, nil
	})
}

// DeleteUser removes a user, their applications and threads, and every
// practice they own, cascading through each owned practice.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.mutate(ctx, func() ([]events.Name, error) {
		if !s.removeUserLocked(id) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return []events.Name{events.UserDeleted}, nil
	})
}

// UpdateUserRole overwrites a user's role. Authorization (admin-only) is
// the caller's responsibility.
func (s *Store) UpdateUserRole(ctx context.Context, userID string, newRole Role) (User, error) {
	if !ValidRole(newRole) {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrValidation, newRole)
	}

	var updated User
	err := s.mutate(ctx, func() ([]events.Name, error) {
		for i := range s.data.Users {
			if s.data.Users[i].ID == userID {
				s.data.Users[i].Role = newRole
				updated = s.data.Users[i]
				updated.PasswordHash = ""
				return []events.Name{events.UserRoleChanged}, nil
			}
		}
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	})
	if err != nil {
		return User{}, err
	}
	return updated, nil
}

// CreateThreadForApplication opens the conversation between an applicant
// and the practice owner. The call is idempotent: an existing thread for
// the pair is returned unchanged.
func (s *Store) CreateThreadForApplication(ctx context.Context, practiceID, userID string) (Thread, error) {
	s.mu.RLock()
	for _, thread := range s.data.Threads {
		if thread.PracticeID == practiceID && thread.UserID == userID {
			s.mu.RUnlock()
			return thread, nil
		}
	}
	s.mu.RUnlock()

	var created Thread
	err := s.mutate(ctx, func() ([]events.Name, error) {
		for _, thread := range s.data.Threads {
			if thread.PracticeID == practiceID && thread.UserID == userID {
				created = thread
				return nil, nil
			}
		}
		practiceIndex := s.practiceIndexLocked(practiceID)
		if practiceIndex < 0 {
			return nil, fmt.Errorf("%w: practice %s", ErrNotFound, practiceID)
		}
		practice := s.data.Practices[practiceIndex]
		if _, ok := s.findUserLocked(userID); !ok {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}

		threadID, err := s.idProvider.NewID()
		if err != nil {
			return nil, err
		}
		messageID, err := s.idProvider.NewID()
		if err != nil {
			return nil, err
		}

		welcome := fmt.Sprintf("Thanks for your interest in %s! We will review your application and get back to you.", practice.Title)
		created = Thread{
			ID:               threadID,
			PracticeID:       practiceID,
			UserID:           userID,
			PartnerID:        practice.Company.OwnerUserID,
			PartnerName:      practice.Company.Name,
			PartnerIsCompany: true,
			LastSnippet:      snippet(welcome),
			Unread:           true,
		}
		s.data.Threads = append(s.data.Threads, created)
		s.data.Messages = append(s.data.Messages, Message{
			ID:         messageID,
			ThreadID:   threadID,
			FromUserID: practice.Company.OwnerUserID,
			Text:       welcome,
			CreatedAt:  s.clock().UTC(),
		})
		return []events.Name{events.ThreadCreated}, nil
	})
	if err != nil {
		return Thread{}, err
	}
	return created, nil
}

// CreateDirectThread opens a conversation between two users outside any
// practice. At most one direct thread exists per unordered pair.
func (s *Store) CreateDirectThread(ctx context.Context, userID, partnerID string) (Thread, error) {
	if userID == partnerID {
		return Thread{}, fmt.Errorf("%w: thread partner must differ from user", ErrValidation)
	}

	var created Thread
	err := s.mutate(ctx, func() ([]events.Name, error) {
		for _, thread := range s.data.Threads {
			if thread.PracticeID != "" {
				continue
			}
			samePair := (thread.UserID == userID && thread.PartnerID == partnerID) ||
				(thread.UserID == partnerID && thread.PartnerID == userID)
			if samePair {
				created = thread
				return nil, nil
			}
		}
		if _, ok := s.findUserLocked(userID); !ok {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		partner, ok := s.findUserLocked(partnerID)
		if !ok {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, partnerID)
		}

		threadID, err := s.idProvider.NewID()
		if err != nil {
			return nil, err
		}
		created = Thread{
			ID:               threadID,
			UserID:           userID,
			PartnerID:        partnerID,
			PartnerName:      partner.Name,
			PartnerIsCompany: partner.Role == RoleCompany,
			Unread:           false,
		}
		s.data.Threads = append(s.data.Threads, created)
		return []events.Name{events.ThreadCreated}, nil
	})
	if err != nil {
		return Thread{}, err
	}
	return created, nil
}

// SendMessage appends a message to a thread and refreshes the thread's
// snippet.
func (s *Store) SendMessage(ctx context.Context, threadID, fromUserID, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, fmt.Errorf("%w: message text is required", ErrValidation)
	}

	var created Message
	err := s.mutate(ctx, func() ([]events.Name, error) {
		index := -1
		for i := range s.data.Threads {
			if s.data.Threads[i].ID == threadID {
				index = i
				break
			}
		}
		if index < 0 {
			return nil, fmt.Errorf("%w: thread %s", ErrNotFound, threadID)
		}
		if _, ok := s.findUserLocked(fromUserID); !ok {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, fromUserID)
		}
		id, err := s.idProvider.NewID()
		if err != nil {
			return nil, err
		}
		created = Message{
			ID:         id,
			ThreadID:   threadID,
			FromUserID: fromUserID,
			Text:       text,
			CreatedAt:  s.clock().UTC(),
		}
		s.data.Messages = append(s.data.Messages, created)
		s.data.Threads[index].LastSnippet = snippet(text)
		s.data.Threads[index].Unread = false
		return []events.Name{events.MessageSent}, nil
	})
	if err != nil {
		return Message{}, err
	}
	return created, nil
}

// ListApplicationsForUser returns the applications submitted by a user.
func (s *Store) ListApplicationsForUser(userID string) []Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]Application, 0)
	for _, application := range s.data.Applications {
		if application.UserID == userID {
			matched = append(matched, application)
		}
	}
	return matched
}

// ListApplicationsForPractice returns the applications for a practice.
func (s *Store) ListApplicationsForPractice(practiceID string) []Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]Application, 0)
	for _, application := range s.data.Applications {
		if application.PracticeID == practiceID {
			matched = append(matched, application)
		}
	}
	return matched
}

// ListThreadsForUser returns threads where the user participates on
// either side.
func (s *Store) ListThreadsForUser(userID string) []Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]Thread, 0)
	for _, thread := range s.data.Threads {
		if thread.UserID == userID || thread.PartnerID == userID {
			matched = append(matched, thread)
		}
	}
	return matched
}

// ListMessages returns the messages of a thread in append order.
func (s *Store) ListMessages(threadID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := false
	for _, thread := range s.data.Threads {
		if thread.ID == threadID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: thread %s", ErrNotFound, threadID)
	}
	matched := make([]Message, 0)
	for _, message := range s.data.Messages {
		if message.ThreadID == threadID {
			matched = append(matched, message)
		}
	}
	return matched, nil
}

// Snapshot returns a deep copy of the five collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// ReplaceSnapshot swaps in a full snapshot, persisting and broadcasting
// the migration.
func (s *Store) ReplaceSnapshot(ctx context.Context, snapshot Snapshot) error {
	return s.mutate(ctx, func() ([]events.Name, error) {
		s.data = snapshot.Clone()
		return []events.Name{events.PracticesMigrated, events.DataUpdated}, nil
	})
}

// ResetToSeed restores the fixed seed data set.
func (s *Store) ResetToSeed(ctx context.Context) error {
	seed, err := SeedSnapshot()
	if err != nil {
		return err
	}
	return s.mutate(ctx, func() ([]events.Name, error) {
		s.data = seed
		return []events.Name{events.DataUpdated}, nil
	})
}

// PurgeReport summarizes an admin demo-data cleanup run.
type PurgeReport struct {
	PracticesRemoved int      `json:"practicesRemoved"`
	UsersRemoved     int      `json:"usersRemoved"`
	Reasons          []string `json:"reasons,omitempty"`
}

// PurgeDemoData removes every practice and non-admin user the classifier
// judges to be a demo or seed artifact, cascading dependents.
func (s *Store) PurgeDemoData(ctx context.Context, classifier Classifier) (PurgeReport, error) {
	var report PurgeReport
	err := s.mutate(ctx, func() ([]events.Name, error) {
		practiceIDs := make([]string, 0)
		for _, practice := range s.data.Practices {
			verdict := classifier.ClassifyPractice(practice)
			if verdict.IsReal {
				continue
			}
			practiceIDs = append(practiceIDs, practice.ID)
			report.Reasons = append(report.Reasons, verdict.Reasons...)
		}
		userIDs := make([]string, 0)
		for _, user := range s.data.Users {
			if user.Role == RoleAdmin {
				continue
			}
			verdict := classifier.ClassifyUser(user)
			if verdict.IsReal {
				continue
			}
			userIDs = append(userIDs, user.ID)
			report.Reasons = append(report.Reasons, verdict.Reasons...)
		}
		for _, id := range practiceIDs {
			if s.removePracticeLocked(id) {
				report.PracticesRemoved++
			}
		}
		for _, id := range userIDs {
			if s.removeUserLocked(id) {
				report.UsersRemoved++
			}
		}
		if report.PracticesRemoved == 0 && report.UsersRemoved == 0 {
			return nil, nil
		}
		return []events.Name{events.DataUpdated}, nil
	})
	if err != nil {
		return PurgeReport{}, err
	}
	s.logger.Info("demo data purged",
		zap.Int("practices_removed", report.PracticesRemoved),
		zap.Int("users_removed", report.UsersRemoved))
	return report, nil
}

// mutate runs op under the write lock, then persists the resulting
// snapshot and broadcasts the returned events. When op reports no events
// the state is considered unchanged and nothing is persisted.
func (s *Store) mutate(ctx context.Context, op func() ([]events.Name, error)) error {
	s.mu.Lock()
	names, err := op()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if len(names) == 0 {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.data.Clone()
	s.mu.Unlock()

	s.persister.Persist(ctx, snapshot)
	for _, name := range names {
		s.notifier.Publish(name)
	}
	return nil
}

func (s *Store) practiceIndexLocked(id string) int {
	for i := range s.data.Practices {
		if s.data.Practices[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) findUserLocked(id string) (User, bool) {
	for _, user := range s.data.Users {
		if user.ID == id {
			return user, true
		}
	}
	return User{}, false
}

// removePracticeLocked deletes the practice and cascades to its
// applications, threads, and thread messages.
func (s *Store) removePracticeLocked(id string) bool {
	index := s.practiceIndexLocked(id)
	if index < 0 {
		return false
	}
	s.data.Practices = append(s.data.Practices[:index], s.data.Practices[index+1:]...)

	s.data.Applications = filterApplications(s.data.Applications, func(a Application) bool {
		return a.PracticeID != id
	})

	removedThreads := make(map[string]struct{})
	s.data.Threads = filterThreads(s.data.Threads, func(t Thread) bool {
		if t.PracticeID == id {
			removedThreads[t.ID] = struct{}{}
			return false
		}
		return true
	})
	s.removeMessagesLocked(removedThreads)
	return true
}

// removeUserLocked deletes the user, their applications and threads, and
// cascades through every practice they own.
func (s *Store) removeUserLocked(id string) bool {
	index := -1
	for i := range s.data.Users {
		if s.data.Users[i].ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return false
	}
	s.data.Users = append(s.data.Users[:index], s.data.Users[index+1:]...)

	ownedPractices := make([]string, 0)
	for _, practice := range s.data.Practices {
		if practice.Company.OwnerUserID == id {
			ownedPractices = append(ownedPractices, practice.ID)
		}
	}
	for _, practiceID := range ownedPractices {
		s.removePracticeLocked(practiceID)
	}

	s.data.Applications = filterApplications(s.data.Applications, func(a Application) bool {
		return a.UserID != id
	})

	removedThreads := make(map[string]struct{})
	s.data.Threads = filterThreads(s.data.Threads, func(t Thread) bool {
		if t.UserID == id {
			removedThreads[t.ID] = struct{}{}
			return false
		}
		return true
	})
	s.removeMessagesLocked(removedThreads)
	return true
}

func (s *Store) removeMessagesLocked(threadIDs map[string]struct{}) {
	if len(threadIDs) == 0 {
		return
	}
	kept := s.data.Messages[:0]
	for _, message := range s.data.Messages {
		if _, gone := threadIDs[message.ThreadID]; !gone {
			kept = append(kept, message)
		}
	}
	s.data.Messages = kept
}

func filterApplications(in []Application, keep func(Application) bool) []Application {
	out := in[:0]
	for _, application := range in {
		if keep(application) {
			out = append(out, application)
		}
	}
	return out
}

func filterThreads(in []Thread, keep func(Thread) bool) []Thread {
	out := in[:0]
	for _, thread := range in {
		if keep(thread) {
			out = append(out, thread)
		}
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// snippet truncates thread preview text to 50 runes plus an ellipsis.
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLimit {
		return text
	}
	return string(runes[:snippetLimit]) + "…"
}
