package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quizdeck/internal/model"
)

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	database := os.Getenv("MONGO_DATABASE")
	if database == "" {
		database = "quizdeck"
	}
	hostID := os.Getenv("SEED_HOST_ID")
	if hostID == "" {
		hostID = "host_demo0001"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	coll := client.Database(database).Collection("activities")

	now := time.Now()
	maxErr := 2.0
	activity := model.Activity{
		ID:          primitive.NewObjectID().Hex(),
		Type:        model.ActivityQuiz,
		HostID:      hostID,
		Title:       "General Knowledge Warm-up",
		Description: "A short demo quiz covering geography, science and history.",
		Questions: []model.Question{
			{
				ID:           "q1",
				Type:         model.QuestionSingleChoice,
				Prompt:       "What is the capital of Australia?",
				TimeLimitSec: 20,
				SingleChoice: &model.SingleChoicePayload{
					Answers:      []string{"Sydney", "Canberra", "Melbourne", "Perth"},
					CorrectIndex: 1,
				},
			},
			{
				ID:           "q2",
				Type:         model.QuestionMultipleChoice,
				Prompt:       "Which of these are noble gases?",
				TimeLimitSec: 25,
				MultipleChoice: &model.MultipleChoicePayload{
					Answers:        []string{"Helium", "Nitrogen", "Argon", "Oxygen"},
					CorrectIndices: []int{0, 2},
				},
			},
			{
				ID:           "q3",
				Type:         model.QuestionSlider,
				Prompt:       "In what year did the Berlin Wall fall?",
				TimeLimitSec: 20,
				Slider: &model.SliderPayload{
					Min:             1980,
					Max:             2000,
					CorrectValue:    1989,
					Step:            1,
					AcceptableError: &maxErr,
				},
			},
			{
				ID:           "q4",
				Type:         model.QuestionFreeResponse,
				Prompt:       "Which planet is known as the Red Planet?",
				TimeLimitSec: 15,
				FreeResponse: &model.FreeResponsePayload{
					CorrectAnswer: "Mars",
					FuzzyMatch:    true,
				},
			},
			{
				ID:     "q5",
				Type:   model.QuestionPollSingle,
				Prompt: "Which round did you enjoy the most?",
				Poll: &model.PollPayload{
					Answers: []string{"Geography", "Science", "History"},
				},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := coll.InsertOne(ctx, activity); err != nil {
		log.Fatalf("Failed to insert activity: %v", err)
	}

	fmt.Printf("Successfully created demo activity '%s' for host '%s'\n", activity.Title, hostID)
}
