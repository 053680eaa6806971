package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SlenderjuniorxD/UPDS-TIM/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const submissionsCollection = "submissions"

type SubmissionsRepository struct {
	mongoRepo *MongoRepository
}

func NewSubmissionsRepository(mongoRepo *MongoRepository) *SubmissionsRepository {
	return &SubmissionsRepository{
		mongoRepo: mongoRepo,
	}
}

// Insert stores a new submission and returns its generated id.
func (r *SubmissionsRepository) Insert(ctx context.Context, submission *models.Submission) (string, error) {
	if submission.ID == "" {
		submission.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now()
	submission.CreatedAt = now
	submission.UpdatedAt = now

	if err := r.mongoRepo.InsertOne(ctx, submissionsCollection, submission); err != nil {
		return "", fmt.Errorf("failed to insert submission: %w", err)
	}

	return submission.ID, nil
}

func (r *SubmissionsRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	filter := bson.M{"_id": id}

	var submission models.Submission
	err := r.mongoRepo.FindOne(ctx, submissionsCollection, filter).Decode(&submission)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find submission: %w", err)
	}

	return &submission, nil
}

// UpdateFields merges the given fields into the record. Unspecified fields are
// left untouched; updatedAt is always refreshed.
func (r *SubmissionsRepository) UpdateFields(ctx context.Context, id string, fields bson.M) error {
	set := bson.M{"updatedAt": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	res, err := r.mongoRepo.UpdateOne(ctx, submissionsCollection, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("submission not found: %s", id)
	}

	return nil
}

// AppendVersion appends one entry to the version history. Insertion order is
// preserved; history is never rewritten.
func (r *SubmissionsRepository) AppendVersion(ctx context.Context, id string, version models.FileVersion) error {
	update := bson.M{
		"$push": bson.M{"versions": version},
		"$set":  bson.M{"updatedAt": time.Now()},
	}

	res, err := r.mongoRepo.UpdateOne(ctx, submissionsCollection, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to append version: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("submission not found: %s", id)
	}

	return nil
}

func (r *SubmissionsRepository) Delete(ctx context.Context, id string) error {
	_, err := r.mongoRepo.DeleteOne(ctx, submissionsCollection, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return nil
}

// ListWithText returns the plagiarism corpus: every submission that has stored
// extracted text. Only the fields the checker needs are projected.
func (r *SubmissionsRepository) ListWithText(ctx context.Context) ([]*models.Submission, error) {
	filter := bson.M{"textContent": bson.M{"$exists": true, "$ne": ""}}
	opts := options.Find().SetProjection(bson.M{"title": 1, "textContent": 1})

	return r.list(ctx, filter, opts)
}

func (r *SubmissionsRepository) ListByStudent(ctx context.Context, studentID string) ([]*models.Submission, error) {
	return r.list(ctx, bson.M{"studentId": studentID}, sortedByCreatedDesc())
}

// ListByEvaluator returns the submissions assigned to an evaluator that have
// already passed the automated checks.
func (r *SubmissionsRepository) ListByEvaluator(ctx context.Context, evaluatorID string) ([]*models.Submission, error) {
	filter := bson.M{
		"evaluatorId": evaluatorID,
		"status": bson.M{"$in": []models.Status{
			models.StatusUnderReview,
			models.StatusApproved,
			models.StatusFlagged,
		}},
	}
	return r.list(ctx, filter, sortedByCreatedDesc())
}

func (r *SubmissionsRepository) ListByCategory(ctx context.Context, category string) ([]*models.Submission, error) {
	filter := bson.M{
		"category": category,
		"status": bson.M{"$in": []models.Status{
			models.StatusUnderReview,
			models.StatusApproved,
			models.StatusFlagged,
		}},
	}
	return r.list(ctx, filter, sortedByCreatedDesc())
}

// ListApproved returns fully approved submissions for the public search view.
func (r *SubmissionsRepository) ListApproved(ctx context.Context) ([]*models.Submission, error) {
	return r.list(ctx, bson.M{"status": models.StatusApproved}, sortedByCreatedDesc())
}

func (r *SubmissionsRepository) list(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*models.Submission, error) {
	cursor, err := r.mongoRepo.FindMany(ctx, submissionsCollection, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to find submissions: %w", err)
	}
	defer cursor.Close(ctx)

	var submissions []*models.Submission
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}

	return submissions, nil
}

func sortedByCreatedDesc() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}
