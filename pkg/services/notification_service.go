package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"pulse/pkg/apperr"
	"pulse/pkg/auth"
	"pulse/pkg/models"
	"pulse/pkg/notify"
	"pulse/pkg/repository"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

// Publisher pushes a payload onto a user's live topic.
type Publisher interface {
	Publish(ctx context.Context, userID int, payload []byte) error
}

type NotificationService struct {
	repo repository.NotificationRepository
	pub  Publisher
}

func NewNotificationService(repo repository.NotificationRepository, pub Publisher) *NotificationService {
	return &NotificationService{repo: repo, pub: pub}
}

// Notify persists the notification for ev and then publishes it. Failures are
// logged and dropped; the REST backlog remains the durable copy.
func (s *NotificationService) Notify(ctx context.Context, ev notify.Event) {
	n, ok := notify.Build(ev)
	if !ok {
		return
	}

	// The triggering request may finish before we do.
	ctx = context.WithoutCancel(ctx)

	saved, err := s.repo.Create(ctx, n)
	if err != nil {
		log.Printf("[NOTIFY] persist %s for user %d: %v", n.Type, n.UserID, err)
		return
	}

	if s.pub == nil {
		return
	}
	payload, err := json.Marshal(saved)
	if err != nil {
		log.Printf("[NOTIFY] encode notification %d: %v", saved.ID, err)
		return
	}
	if err := s.pub.Publish(ctx, saved.UserID, payload); err != nil {
		log.Printf("[NOTIFY] publish notification %d to user %d: %v", saved.ID, saved.UserID, err)
	}
}

// List returns the caller's notifications newest first. Admins see every
// recipient's.
func (s *NotificationService) List(ctx context.Context, caller auth.Identity, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}

	var (
		list []models.Notification
		err  error
	)
	if caller.IsAdmin() {
		list, err = s.repo.ListAll(ctx, limit, offset)
	} else {
		list, err = s.repo.ListForUser(ctx, caller.ID, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, caller auth.Identity, id int) error {
	ok, err := s.repo.MarkRead(ctx, id, caller.ID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if !ok {
		return apperr.NotFound("notification not found")
	}
	return nil
}
