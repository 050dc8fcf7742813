package store

import (
	"time"

	"github.com/JoaChP/talentbridge-backend/internal/auth"
)

// Seed account passwords, published so local development can log in.
const (
	SeedAdminEmail      = "admin@talentbridge.dev"
	SeedAdminPassword   = "admin123"
	SeedCompanyEmail    = "talent@novatech.dev"
	SeedCompanyPassword = "company123"
	SeedStudentEmail    = "maria@student.dev"
	SeedStudentPassword = "student123"
)

// SeedSnapshot builds the fixed default data set used when neither mirror
// yields a document.
func SeedSnapshot() (Snapshot, error) {
	adminHash, err := auth.HashPassword(SeedAdminPassword)
	if err != nil {
		return Snapshot{}, err
	}
	companyHash, err := auth.HashPassword(SeedCompanyPassword)
	if err != nil {
		return Snapshot{}, err
	}
	studentHash, err := auth.HashPassword(SeedStudentPassword)
	if err != nil {
		return Snapshot{}, err
	}

	novatech := Company{
		ID:          "seed-co-novatech",
		Name:        "NovaTech",
		OwnerUserID: "seed-user-novatech",
	}

	return Snapshot{
		Users: []User{
			{
				ID:           "seed-user-admin",
				Name:         "TalentBridge Admin",
				Email:        SeedAdminEmail,
				Role:         RoleAdmin,
				PasswordHash: adminHash,
			},
			{
				ID:           "seed-user-novatech",
				Name:         "NovaTech Talent",
				Email:        SeedCompanyEmail,
				Role:         RoleCompany,
				PasswordHash: companyHash,
				About:        "We build data tooling for mid-size companies.",
			},
			{
				ID:           "seed-user-maria",
				Name:         "Maria Lopez",
				Email:        SeedStudentEmail,
				Role:         RoleStudent,
				PasswordHash: studentHash,
				About:        "Final-year software engineering student.",
			},
		},
		Practices: []Practice{
			{
				ID:             "seed-practice-frontend",
				Title:          "Frontend Developer Intern",
				Company:        novatech,
				City:           "Valencia",
				Country:        "Spain",
				Modality:       ModalityHybrid,
				DurationMonths: 6,
				Skills:         []string{"TypeScript", "React", "CSS"},
				Description:    "Build and maintain customer-facing dashboards with the product team.",
				Status:         PracticePublished,
				Vacancies:      2,
				Benefits:       []string{"Mentorship", "Flexible hours"},
			},
			{
				ID:             "seed-practice-data",
				Title:          "Data Engineering Intern",
				Company:        novatech,
				City:           "Madrid",
				Country:        "Spain",
				Modality:       ModalityRemote,
				DurationMonths: 4,
				Skills:         []string{"Python", "SQL", "Airflow"},
				Description:    "Help the platform team ship reliable ingestion pipelines.",
				Status:         PracticePublished,
				Vacancies:      1,
			},
			{
				ID:             "seed-practice-qa",
				Title:          "QA Automation Intern",
				Company:        novatech,
				City:           "Valencia",
				Country:        "Spain",
				Modality:       ModalityOnsite,
				DurationMonths: 3,
				Skills:         []string{"Playwright", "TypeScript"},
				Description:    "Extend the end-to-end regression suite for the core product.",
				Status:         PracticeDraft,
			},
		},
		Applications: []Application{
			{
				ID:         "seed-application-maria-frontend",
				PracticeID: "seed-practice-frontend",
				UserID:     "seed-user-maria",
				Status:     ApplicationSubmitted,
				CreatedAt:  time.Date(2026, time.January, 12, 9, 30, 0, 0, time.UTC),
			},
		},
		Threads:  []Thread{},
		Messages: []Message{},
	}, nil
}
