package store

import "time"

// Role classifies a user account.
type Role string

const (
	RoleStudent Role = "student"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

// ValidRole reports whether the value belongs to the closed role set.
func ValidRole(role Role) bool {
	switch role {
	case RoleStudent, RoleCompany, RoleAdmin:
		return true
	default:
		return false
	}
}

// Modality describes where a practice is performed.
type Modality string

const (
	ModalityRemote Modality = "Remote"
	ModalityHybrid Modality = "Hybrid"
	ModalityOnsite Modality = "Onsite"
)

// PracticeStatus gates listing visibility.
type PracticeStatus string

const (
	PracticeDraft     PracticeStatus = "Draft"
	PracticePublished PracticeStatus = "Published"
)

// ApplicationStatus tracks the review workflow of an application.
type ApplicationStatus string

const (
	ApplicationSubmitted ApplicationStatus = "Submitted"
	ApplicationReviewing ApplicationStatus = "Reviewing"
	ApplicationAccepted  ApplicationStatus = "Accepted"
	ApplicationRejected  ApplicationStatus = "Rejected"
)

// User is an account record. Email is unique across all users.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Phone        string `json:"phone,omitempty"`
	About        string `json:"about,omitempty"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
}

// Company identifies the posting organization embedded in a practice.
// OwnerUserID must reference an existing user with role company or admin.
type Company struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LogoURL     string `json:"logoUrl,omitempty"`
	OwnerUserID string `json:"ownerUserId"`
}

// Practice is a job or internship posting.
type Practice struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Company        Company        `json:"company"`
	City           string         `json:"city"`
	Country        string         `json:"country"`
	Modality       Modality       `json:"modality"`
	DurationMonths int            `json:"durationMonths"`
	Skills         []string       `json:"skills"`
	Description    string         `json:"description"`
	Status         PracticeStatus `json:"status"`
	Vacancies      int            `json:"vacancies,omitempty"`
	Benefits       []string       `json:"benefits,omitempty"`
}

// Application links a student to a practice. At most one application may
// exist for each (practiceId, userId) pair.
type Application struct {
	ID         string            `json:"id"`
	PracticeID string            `json:"practiceId"`
	UserID     string            `json:"userId"`
	Status     ApplicationStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Thread is a conversation, scoped either to a practice+applicant pair or
// directly to two users.
type Thread struct {
	ID               string `json:"id"`
	PracticeID       string `json:"practiceId,omitempty"`
	UserID           string `json:"userId"`
	PartnerID        string `json:"partnerId,omitempty"`
	PartnerName      string `json:"partnerName"`
	PartnerIsCompany bool   `json:"partnerIsCompany"`
	LastSnippet      string `json:"lastSnippet"`
	Unread           bool   `json:"unread"`
}

// Message is one entry in a thread.
type Message struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"threadId"`
	FromUserID string    `json:"fromUserId"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Snapshot is the full five-collection state that flows between the store
// and its mirrors as a single JSON document.
type Snapshot struct {
	Users        []User        `json:"users"`
	Practices    []Practice    `json:"practices"`
	Applications []Application `json:"applications"`
	Threads      []Thread      `json:"threads"`
	Messages     []Message     `json:"messages"`
}

// Empty reports whether the snapshot carries no records at all.
func (s Snapshot) Empty() bool {
	return len(s.Users) == 0 &&
		len(s.Practices) == 0 &&
		len(s.Applications) == 0 &&
		len(s.Threads) == 0 &&
		len(s.Messages) == 0
}

// Clone returns a deep copy of the snapshot. Mirrors and callers receive
// clones so they can never alias the store's canonical slices.
func (s Snapshot) Clone() Snapshot {
	clone := Snapshot{
		Users:        make([]User, len(s.Users)),
		Practices:    make([]Practice, len(s.Practices)),
		Applications: make([]Application, len(s.Applications)),
		Threads:      make([]Thread, len(s.Threads)),
		Messages:     make([]Message, len(s.Messages)),
	}
	copy(clone.Users, s.Users)
	copy(clone.Applications, s.Applications)
	copy(clone.Threads, s.Threads)
	copy(clone.Messages, s.Messages)
	for i, practice := range s.Practices {
		clone.Practices[i] = clonePractice(practice)
	}
	return clone
}

func clonePractice(practice Practice) Practice {
	cloned := practice
	if practice.Skills != nil {
		cloned.Skills = append([]string(nil), practice.Skills...)
	}
	if practice.Benefits != nil {
		cloned.Benefits = append([]string(nil), practice.Benefits...)
	}
	return cloned
}
