package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rauth/examprep-backend/internal/assessment"
	"github.com/rauth/examprep-backend/internal/config"
	"github.com/rauth/examprep-backend/internal/database"
	"github.com/rauth/examprep-backend/internal/logger"
	"github.com/rauth/examprep-backend/internal/model"
	"github.com/rauth/examprep-backend/internal/repository"
	"github.com/rauth/examprep-backend/internal/service"
)

func idx(i int) *int { return &i }

func text(s string) *string { return &s }

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, db, err := database.NewMongoDatabase(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	repo := repository.NewContentRepository(db)

	lessons := []model.Lesson{
		{
			Title:       "The Angkor Empire",
			Module:      "history",
			Description: "Rise of the Khmer Empire and its temple cities.",
			Content:     "From the 9th to the 15th century the Khmer Empire ruled much of mainland Southeast Asia from Angkor.",
			Order:       1,
		},
		{
			Title:       "The Post-Angkor Period",
			Module:      "history",
			Description: "The move south and the new capitals.",
			Content:     "After 1431 the court moved south, eventually settling at Phnom Penh.",
			Order:       2,
		},
		{
			Title:       "Rivers and Lakes",
			Module:      "geography",
			Description: "The Mekong and the Tonle Sap.",
			Content:     "The Tonle Sap reverses its flow every wet season as the Mekong floods.",
			Order:       1,
		},
	}

	quizzes := []model.Quiz{
		{
			Title:        "Angkor Basics",
			Module:       "history",
			Description:  "Five quick questions on the Angkor era.",
			PassingScore: 60,
			Settings:     &model.QuizSettings{ShowCorrectAnswers: true, AllowMultipleAttempts: true},
			Questions: []assessment.RawQuestion{
				{Question: "Who commissioned Angkor Wat?", Options: []string{"Suryavarman II", "Jayavarman VII", "Yasovarman I", "Indravarman I"}, CorrectAnswerIndex: idx(0)},
				{Question: "Angkor Wat was first dedicated to which god?", Options: []string{"Shiva", "Vishnu", "Brahma"}, Answer: text("Vishnu")},
				{QuestionText: "Which king built the Bayon?", Options: []string{"Jayavarman VII", "Suryavarman I"}, CorrectAnswerIndex: idx(0)},
				{Question: "Angkor's reservoirs are called?", Options: []string{"Barays", "Prasats", "Gopuras"}, Answer: text("Barays"), Explanation: "Barays stored monsoon water for the city."},
				{Question: "Roughly when was Angkor abandoned as capital?", Options: []string{"1431", "1863", "802"}, Answer: text("1431")},
			},
		},
		{
			Title:     "Geography Sprint",
			Module:    "geography",
			TimeLimit: 5,
			Questions: []assessment.RawQuestion{
				{Question: "Which lake reverses its flow each year?", Options: []string{"Tonle Sap", "Boeung Kak"}, CorrectAnswerIndex: idx(0)},
				{Question: "Which river flows through Phnom Penh?", Options: []string{"Mekong", "Chao Phraya", "Red River"}, Answer: text("Mekong")},
			},
		},
	}

	exams := []model.MockExam{
		{
			Title:       "History Mock Exam",
			Module:      "history",
			Description: "Timed exam across the whole history module.",
			Premium:     true,
			Questions: []assessment.RawQuestion{
				{Question: "Who commissioned Angkor Wat?", Options: []string{"Suryavarman II", "Jayavarman VII"}, CorrectAnswerIndex: idx(0)},
				{Question: "The capital moved to Phnom Penh in?", Options: []string{"1434", "1863", "1953"}, Answer: text("1434")},
				{Question: "Cambodia became independent from France in?", Options: []string{"1945", "1953", "1970"}, Answer: text("1953")},
				{Question: "The Bayon is famous for its?", Options: []string{"Smiling faces", "Moats", "Bell tower"}, CorrectAnswerIndex: idx(0)},
			},
		},
	}

	// Refuse to seed anything the engine would reject at session start.
	policy := assessment.DefaultDurationPolicy()
	for i := range quizzes {
		if _, err := service.QuizAssessment(&quizzes[i], policy); err != nil {
			log.Fatal().Err(err).Str("quiz", quizzes[i].Title).Msg("Invalid seed quiz")
		}
	}
	for i := range exams {
		if _, err := service.MockExamAssessment(&exams[i], policy); err != nil {
			log.Fatal().Err(err).Str("exam", exams[i].Title).Msg("Invalid seed exam")
		}
	}

	fmt.Println("=== Seeding content ===")
	if err := repo.ReplaceAll(ctx, lessons, quizzes, exams); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed content")
	}
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure content indexes")
	}

	fmt.Printf("Seeded %d lessons, %d quizzes, %d mock exams\n", len(lessons), len(quizzes), len(exams))
}
