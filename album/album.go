// Package album holds the Album entity, the repository contract every
// backing store implements, and the one-shot catalog populator.
package album

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound indicates a lookup that matched no album.
var ErrNotFound = errors.New("album: not found")

// Album is one catalog entry.
type Album struct {
	ID          string `json:"id" bson:"_id"`
	Title       string `json:"title" bson:"title"`
	Artist      string `json:"artist" bson:"artist"`
	ReleaseYear string `json:"releaseYear" bson:"releaseYear"`
	Genre       string `json:"genre" bson:"genre"`
	TrackCount  int    `json:"trackCount" bson:"trackCount"`
	AlbumID     string `json:"albumId" bson:"albumId"`
}

// Repository is the persistence contract shared by every store.
type Repository interface {
	Count(ctx context.Context) (int64, error)
	// Save inserts or replaces a by ID, assigning an ID when empty.
	Save(ctx context.Context, a *Album) error
	FindAll(ctx context.Context) ([]Album, error)
}

// EnsureID assigns a random ID to a when it has none.
func EnsureID(a *Album) {
	if a != nil && a.ID == "" {
		a.ID = uuid.NewString()
	}
}
