/**
 * @description
 * This file implements the data access layer for published posts. The
 * backing file is an append-only JSON array; posts are never updated or
 * removed once published.
 */
package store

import (
	"sync"

	"github.com/rabbithole/newsletter-service/internal/domain"
)

// PostRepository owns the posts file.
type PostRepository struct {
	mu   sync.Mutex
	path string
}

// NewPostRepository creates a repository backed by the given file path.
func NewPostRepository(path string) *PostRepository {
	return &PostRepository{path: path}
}

// Init seeds the backing file with an empty collection if it is absent.
func (r *PostRepository) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ensureFile(r.path, []domain.Post{})
}

// Insert appends a post to the registry.
func (r *PostRepository) Insert(post domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts := []domain.Post{}
	if err := readSnapshot(r.path, &posts); err != nil {
		return err
	}
	posts = append(posts, post)
	return writeSnapshot(r.path, posts)
}

// All returns every post in publication order, oldest first.
func (r *PostRepository) All() ([]domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts := []domain.Post{}
	if err := readSnapshot(r.path, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// FindByID resolves a post by its id.
func (r *PostRepository) FindByID(id string) (domain.Post, bool, error) {
	posts, err := r.All()
	if err != nil {
		return domain.Post{}, false, err
	}
	for _, post := range posts {
		if post.ID == id {
			return post, true, nil
		}
	}
	return domain.Post{}, false, nil
}
