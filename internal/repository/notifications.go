package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SlenderjuniorxD/UPDS-TIM/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const notificationsCollection = "notifications"

type NotificationsRepository struct {
	mongoRepo *MongoRepository
}

func NewNotificationsRepository(mongoRepo *MongoRepository) *NotificationsRepository {
	return &NotificationsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *NotificationsRepository) Insert(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = primitive.NewObjectID().Hex()
	}
	notification.CreatedAt = time.Now()

	if err := r.mongoRepo.InsertOne(ctx, notificationsCollection, notification); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

func (r *NotificationsRepository) ListByUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	filter := bson.M{"userId": userID}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.mongoRepo.FindMany(ctx, notificationsCollection, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []*models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return notifications, nil
}
