package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/webscoutlabs/webscout/internal/model"
)

// SessionRepository defines DB ops around recording sessions.
type SessionRepository interface {
	SaveSession(s *model.RecordingSession) error
	FindBySessionID(sessionID string) (*model.SessionRecord, error)
	ListRecent(limit int) ([]model.SessionRecord, error)
	Delete(sessionID string) error
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) SaveSession(s *model.RecordingSession) error {
	rec, err := model.SessionRecordFromSession(s)
	if err != nil {
		return err
	}
	return r.db.Create(rec).Error
}

func (r *sessionRepo) FindBySessionID(sessionID string) (*model.SessionRecord, error) {
	var rec model.SessionRecord
	if err := r.db.Where("session_id = ?", sessionID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sessionRepo) ListRecent(limit int) ([]model.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []model.SessionRecord
	if err := r.db.Order("started_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *sessionRepo) Delete(sessionID string) error {
	res := r.db.Where("session_id = ?", sessionID).Delete(&model.SessionRecord{})
	if res.RowsAffected == 0 {
		return errors.New("session not found")
	}
	return res.Error
}
