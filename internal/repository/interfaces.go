package repository

import (
	"context"

	"github.com/khata-app/khata-backend/internal/models"
)

type Users interface {
	Create(ctx context.Context, username, email, passwordHash, role string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
	List(ctx context.Context, limit int) ([]models.AuditLog, error)
}
