package repository

import (
	"database/sql"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store groups the collections the service reads and writes. Both backends
// provide the same conditional-update guarantees for post claims.
type Store struct {
	Posts    PostRepository
	Accounts SocialAccountRepository
	Logs     LogRepository
}

func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Posts:    NewPostRepository(db),
		Accounts: NewSocialAccountRepository(db),
		Logs:     NewLogRepository(db),
	}
}

func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Posts:    NewMongoPostRepository(db),
		Accounts: NewMongoSocialAccountRepository(db),
		Logs:     NewMongoLogRepository(db),
	}
}
