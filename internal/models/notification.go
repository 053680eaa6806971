package models

import (
	"time"
)

// NotificationType mirrors the severity shown to the user.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// Notification is a message delivered to a portal user.
type Notification struct {
	ID        string           `bson:"_id,omitempty" json:"id"`
	UserID    string           `bson:"userId" json:"userId"`
	Title     string           `bson:"title" json:"title"`
	Message   string           `bson:"message" json:"message"`
	Type      NotificationType `bson:"type" json:"type"`
	IsRead    bool             `bson:"isRead" json:"isRead"`
	CreatedAt time.Time        `bson:"createdAt" json:"createdAt"`
}
