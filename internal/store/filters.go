package store

import "strings"

// PracticeFilter narrows the published-practice listing. Zero values mean
// "no constraint" for the corresponding field.
type PracticeFilter struct {
	Query          string
	City           string
	Country        string
	Modality       Modality
	DurationMonths int
	Skills         []string
}

func (f PracticeFilter) matches(practice Practice) bool {
	if practice.Status != PracticePublished {
		return false
	}
	if query := strings.ToLower(strings.TrimSpace(f.Query)); query != "" {
		if !matchesQuery(practice, query) {
			return false
		}
	}
	if city := strings.ToLower(strings.TrimSpace(f.City)); city != "" {
		if !strings.Contains(strings.ToLower(practice.City), city) {
			return false
		}
	}
	if country := strings.ToLower(strings.TrimSpace(f.Country)); country != "" {
		if !strings.Contains(strings.ToLower(practice.Country), country) {
			return false
		}
	}
	if f.Modality != "" && practice.Modality != f.Modality {
		return false
	}
	if f.DurationMonths != 0 && practice.DurationMonths != f.DurationMonths {
		return false
	}
	if len(f.Skills) > 0 && !anySkillMatch(practice.Skills, f.Skills) {
		return false
	}
	return true
}

// matchesQuery performs a case-insensitive substring match across title,
// company name, description, and skills.
func matchesQuery(practice Practice, loweredQuery string) bool {
	if strings.Contains(strings.ToLower(practice.Title), loweredQuery) {
		return true
	}
	if strings.Contains(strings.ToLower(practice.Company.Name), loweredQuery) {
		return true
	}
	if strings.Contains(strings.ToLower(practice.Description), loweredQuery) {
		return true
	}
	for _, skill := range practice.Skills {
		if strings.Contains(strings.ToLower(skill), loweredQuery) {
			return true
		}
	}
	return false
}

// anySkillMatch reports whether any requested skill is present on the
// practice, compared case-insensitively.
func anySkillMatch(practiceSkills, requested []string) bool {
	for _, want := range requested {
		wantLower := strings.ToLower(strings.TrimSpace(want))
		if wantLower == "" {
			continue
		}
		for _, have := range practiceSkills {
			if strings.ToLower(have) == wantLower {
				return true
			}
		}
	}
	return false
}
