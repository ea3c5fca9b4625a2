package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jalaleddinemaoukil/interventions-m1/internal/api/auth"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/model"

	"gorm.io/gorm"
)

// ErrInterventionNotFound is returned when no intervention with the given
// id is owned by the requesting user. Handlers map it to 404.
var ErrInterventionNotFound = errors.New("intervention not found")

// TaskStore is the intervention store the handlers run against. Every
// method is scoped to the owning user; callers never see another user's
// records.
type TaskStore interface {
	Create(ctx context.Context, task *model.Intervention) error
	Get(ctx context.Context, userID, taskID uint) (*model.Intervention, error)
	// Update applies the given column updates as a single conditional write
	// (id + owner) and returns the updated record, or
	// ErrInterventionNotFound.
	Update(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error)
	List(ctx context.Context, userID uint) ([]model.Intervention, error)
	Delete(ctx context.Context, userID, taskID uint) error
	Search(ctx context.Context, userID uint, query string) ([]model.Intervention, error)
}

type dbTaskStore struct {
	db *gorm.DB
}

func (s dbTaskStore) Create(ctx context.Context, task *model.Intervention) error {
	return s.db.WithContext(ctx).Create(task).Error
}

func (s dbTaskStore) Get(ctx context.Context, userID, taskID uint) (*model.Intervention, error) {
	var task model.Intervention
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, userID).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInterventionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s dbTaskStore) Update(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error) {
	// Column-map updates bypass gorm serializers, so tags are marshaled here.
	if tags, ok := updates["tags"].([]string); ok {
		encoded, err := json.Marshal(tags)
		if err != nil {
			return nil, err
		}
		updates["tags"] = string(encoded)
	}

	res := s.db.WithContext(ctx).
		Model(&model.Intervention{}).
		Where("id = ? AND user_id = ?", taskID, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	// MySQL reports zero affected rows both for a miss and for a no-op
	// update; the follow-up Get tells them apart and returns the record.
	return s.Get(ctx, userID, taskID)
}

func (s dbTaskStore) List(ctx context.Context, userID uint) ([]model.Intervention, error) {
	tasks := []model.Intervention{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_pinned DESC, created_on DESC, id DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s dbTaskStore) Delete(ctx context.Context, userID, taskID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, userID).
		Delete(&model.Intervention{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInterventionNotFound
	}
	return nil
}

func (s dbTaskStore) Search(ctx context.Context, userID uint, query string) ([]model.Intervention, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	tasks := []model.Intervention{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("(LOWER(title) LIKE ? OR LOWER(content) LIKE ?)", pattern, pattern).
		Order("is_pinned DESC, created_on DESC, id DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// escapeLike neutralizes LIKE metacharacters so the query is matched as a
// literal substring.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

type dbUserStore struct {
	db *gorm.DB
}

func (s dbUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s dbUserStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s dbUserStore) Create(ctx context.Context, user *model.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return auth.ErrDuplicateEmail
	}
	return err
}
