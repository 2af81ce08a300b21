package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"portfolio-api/internal/model"
)

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, message *model.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", classify(err))
	}
	return nil
}

func (r *GormMessageRepository) ListRecent(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	messages := make([]model.ChatMessage, 0, limit)
	if err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", classify(err))
	}
	for i := range messages {
		messages[i].ID = 0
		if messages[i].RecommendQuestions == nil {
			messages[i].RecommendQuestions = []string{}
		}
	}
	return messages, nil
}

// NewGormStore wires the gorm repositories around db.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:    NewGormUserRepository(db),
		Messages: NewGormMessageRepository(db),
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		Close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
		Migrate: func(ctx context.Context) error {
			if err := db.WithContext(ctx).AutoMigrate(&model.User{}, &model.ChatMessage{}); err != nil {
				return fmt.Errorf("auto migrate tables failed: %w", err)
			}
			if ddl := emailCollationDDL(db.Dialector.Name()); ddl != "" {
				if err := db.WithContext(ctx).Exec(ddl).Error; err != nil {
					return fmt.Errorf("set email collation failed: %w", err)
				}
			}
			return nil
		},
	}
}

// emailCollationDDL returns the statement that makes users.email compare
// byte for byte. MySQL's default _ci collations would otherwise let the
// unique index reject addresses differing only in case.
func emailCollationDDL(dialect string) string {
	if dialect != "mysql" {
		return ""
	}
	return "ALTER TABLE users MODIFY email VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL"
}
