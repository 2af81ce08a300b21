package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"

	"portfolio-api/internal/model"
)

var (
	ErrDuplicateEmail     = errors.New("email already stored")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// UserRepository lookups return (nil, nil) when no record matches.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type MessageRepository interface {
	Create(ctx context.Context, message *model.ChatMessage) error
	// ListRecent returns at most limit exchanges, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.ChatMessage, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Users    UserRepository
	Messages MessageRepository
	Ping     func(ctx context.Context) error
	Close    func(ctx context.Context) error
	Migrate  func(ctx context.Context) error
}

// classify tags connectivity failures with ErrStorageUnavailable so callers
// can tell an unreachable store from a bad query.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	if isConnectivityError(err) {
		return errors.Join(ErrStorageUnavailable, err)
	}
	return err
}

func isConnectivityError(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "server selection") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no reachable servers")
}

func isDuplicateKey(err error) bool {
	if mongo.IsDuplicateKeyError(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
