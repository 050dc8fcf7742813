package store

import "strings"

// Verdict is the output of the demo/seed classifier.
type Verdict struct {
	IsReal  bool     `json:"isReal"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Classifier decides whether a record is a real entry or a demo/seed
// artifact. It feeds the admin bulk-cleanup flow and nothing else.
type Classifier interface {
	ClassifyPractice(practice Practice) Verdict
	ClassifyUser(user User) Verdict
}

// demoThreshold is the score at or above which a record is judged demo.
const demoThreshold = 3

var demoTokens = []string{"demo", "test", "sample", "lorem", "acme", "example"}

// HeuristicClassifier scores records on id prefixes, throwaway email
// domains, and placeholder vocabulary.
type HeuristicClassifier struct{}

// NewHeuristicClassifier constructs the default classifier.
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

// ClassifyPractice scores a practice record.
func (c *HeuristicClassifier) ClassifyPractice(practice Practice) Verdict {
	var verdict Verdict
	if strings.HasPrefix(practice.ID, "seed-") {
		verdict.Score += 3
		verdict.Reasons = append(verdict.Reasons, "practice "+practice.ID+": seed id prefix")
	}
	text := strings.ToLower(practice.Title + " " + practice.Company.Name + " " + practice.Description)
	for _, token := range demoTokens {
		if strings.Contains(text, token) {
			verdict.Score += 2
			verdict.Reasons = append(verdict.Reasons, "practice "+practice.ID+": contains "+token)
		}
	}
	if strings.TrimSpace(practice.Description) == "" {
		verdict.Score++
		verdict.Reasons = append(verdict.Reasons, "practice "+practice.ID+": empty description")
	}
	verdict.IsReal = verdict.Score < demoThreshold
	return verdict
}

// ClassifyUser scores a user record.
func (c *HeuristicClassifier) ClassifyUser(user User) Verdict {
	var verdict Verdict
	if strings.HasPrefix(user.ID, "seed-") {
		verdict.Score += 3
		verdict.Reasons = append(verdict.Reasons, "user "+user.ID+": seed id prefix")
	}
	email := strings.ToLower(user.Email)
	if strings.HasSuffix(email, "@example.com") || strings.HasSuffix(email, "@test.com") {
		verdict.Score += 2
		verdict.Reasons = append(verdict.Reasons, "user "+user.ID+": throwaway email domain")
	}
	name := strings.ToLower(user.Name)
	for _, token := range demoTokens {
		if strings.Contains(name, token) {
			verdict.Score += 2
			verdict.Reasons = append(verdict.Reasons, "user "+user.ID+": name contains "+token)
		}
	}
	verdict.IsReal = verdict.Score < demoThreshold
	return verdict
}
