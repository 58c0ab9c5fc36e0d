package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rauth/examprep-backend/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names in the content database.
const (
	LessonsCollection   = "lessons"
	QuizzesCollection   = "quizzes"
	MockExamsCollection = "mockexams"
)

// ErrInvalidContentID is returned for ids that are not valid ObjectIDs.
var ErrInvalidContentID = errors.New("invalid content id")

// ContentRepository reads study content from MongoDB.
type ContentRepository struct {
	lessons   *mongo.Collection
	quizzes   *mongo.Collection
	mockExams *mongo.Collection
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(db *mongo.Database) *ContentRepository {
	return &ContentRepository{
		lessons:   db.Collection(LessonsCollection),
		quizzes:   db.Collection(QuizzesCollection),
		mockExams: db.Collection(MockExamsCollection),
	}
}

func objectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, ErrInvalidContentID
	}
	return oid, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, id string) (*T, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s %s: %w", coll.Name(), id, err)
	}
	return &doc, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptionsBuilder) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return docs, nil
}

// ─── Lessons ────────────────────────────────────────────────────────────────

// ListLessons returns lessons ordered by module then order, optionally
// restricted to one module. Lesson bodies are omitted.
func (r *ContentRepository) ListLessons(ctx context.Context, module string) ([]model.Lesson, error) {
	filter := bson.M{}
	if module != "" {
		filter["module"] = module
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "module", Value: 1}, {Key: "order", Value: 1}}).
		SetProjection(bson.M{"content": 0})
	return findAll[model.Lesson](ctx, r.lessons, filter, opts)
}

// GetLesson returns a single lesson with its body.
func (r *ContentRepository) GetLesson(ctx context.Context, id string) (*model.Lesson, error) {
	return findOne[model.Lesson](ctx, r.lessons, id)
}

// ─── Quizzes ────────────────────────────────────────────────────────────────

// ListQuizzes returns all quizzes including questions, newest first. Callers
// summarize before exposing them.
func (r *ContentRepository) ListQuizzes(ctx context.Context) ([]model.Quiz, error) {
	opts := options.Find().SetSort(bson.D{{Key: "module", Value: 1}, {Key: "_id", Value: -1}})
	return findAll[model.Quiz](ctx, r.quizzes, bson.M{}, opts)
}

// GetQuiz returns a quiz with its questions.
func (r *ContentRepository) GetQuiz(ctx context.Context, id string) (*model.Quiz, error) {
	return findOne[model.Quiz](ctx, r.quizzes, id)
}

// ─── Mock exams ─────────────────────────────────────────────────────────────

// ListMockExams returns all mock exams including questions.
func (r *ContentRepository) ListMockExams(ctx context.Context) ([]model.MockExam, error) {
	opts := options.Find().SetSort(bson.D{{Key: "module", Value: 1}, {Key: "_id", Value: -1}})
	return findAll[model.MockExam](ctx, r.mockExams, bson.M{}, opts)
}

// GetMockExam returns a mock exam with its questions.
func (r *ContentRepository) GetMockExam(ctx context.Context, id string) (*model.MockExam, error) {
	return findOne[model.MockExam](ctx, r.mockExams, id)
}

// ─── Seeding ────────────────────────────────────────────────────────────────

// ReplaceAll swaps the contents of all three collections. Used by the seeder.
func (r *ContentRepository) ReplaceAll(ctx context.Context, lessons []model.Lesson, quizzes []model.Quiz, exams []model.MockExam) error {
	if err := replace(ctx, r.lessons, lessons); err != nil {
		return err
	}
	if err := replace(ctx, r.quizzes, quizzes); err != nil {
		return err
	}
	return replace(ctx, r.mockExams, exams)
}

func replace[T any](ctx context.Context, coll *mongo.Collection, docs []T) error {
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear %s: %w", coll.Name(), err)
	}
	if len(docs) == 0 {
		return nil
	}
	items := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		items = append(items, d)
	}
	if _, err := coll.InsertMany(ctx, items); err != nil {
		return fmt.Errorf("insert %s: %w", coll.Name(), err)
	}
	return nil
}

// EnsureIndexes creates the indexes listing queries rely on.
func (r *ContentRepository) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "module", Value: 1}, {Key: "order", Value: 1}}}
	if _, err := r.lessons.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("index lessons: %w", err)
	}
	for _, coll := range []*mongo.Collection{r.quizzes, r.mockExams} {
		if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "module", Value: 1}}}); err != nil {
			return fmt.Errorf("index %s: %w", coll.Name(), err)
		}
	}
	return nil
}
