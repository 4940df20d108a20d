package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/henriqueponts/labstore-sub002/pkg/db/models"
)

// SessionRepository persists checkout sessions. Rows are write-once.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository binds the repository to db.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.CheckoutSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByLinkID returns nil when no session was issued for the link.
func (r *SessionRepository) FindByLinkID(ctx context.Context, linkID string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.db.WithContext(ctx).Where("link_id = ?", linkID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
