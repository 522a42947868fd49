// Package community holds typed calls against the community backend. Every
// call goes through an httpclient.API, so session renewal and outage handling
// stay out of here.
package community

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/starnight-hq/starnight-client/pkg/httpclient"
)

const (
	hotPostsPath     = "/public/posts/hot"
	memberPath       = "/member/me"
	profileImagePath = "/member/me/profile-image"
	profileImageForm = "image"

	defaultHotSize = 10
	maxHotSize     = 50
)

// Post is a feed entry as listed by the backend.
type Post struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Member is the signed-in user's profile.
type Member struct {
	ID              int64  `json:"id"`
	Email           string `json:"email"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

func (e *envelope[T]) check(op string) error {
	if e.Success {
		return nil
	}
	if e.Message != "" {
		return fmt.Errorf("%s: backend reported failure: %s", op, e.Message)
	}
	return fmt.Errorf("%s: backend reported failure", op)
}

// Service wraps the calls the CLI and other consumers need.
type Service struct {
	api httpclient.API
}

// NewService returns a Service sending through api.
func NewService(api httpclient.API) *Service {
	return &Service{api: api}
}

// HotPosts lists the currently popular posts. size is clamped to 1..50.
func (s *Service) HotPosts(ctx context.Context, size int) ([]Post, error) {
	if size <= 0 {
		size = defaultHotSize
	}
	if size > maxHotSize {
		size = maxHotSize
	}

	var out envelope[[]Post]
	if _, err := s.api.Get(ctx, hotPostsPath,
		httpclient.WithQuery("size", strconv.Itoa(size)),
		httpclient.WithResult(&out),
	); err != nil {
		return nil, fmt.Errorf("hot posts: %w", err)
	}
	if err := out.check("hot posts"); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Me returns the profile bound to the current session.
func (s *Service) Me(ctx context.Context) (Member, error) {
	var out envelope[Member]
	if _, err := s.api.Get(ctx, memberPath, httpclient.WithResult(&out)); err != nil {
		return Member{}, fmt.Errorf("member profile: %w", err)
	}
	if err := out.check("member profile"); err != nil {
		return Member{}, err
	}
	return out.Data, nil
}

// UploadAvatar replaces the profile image with the content of r.
func (s *Service) UploadAvatar(ctx context.Context, fileName string, r io.Reader) (Member, error) {
	if r == nil {
		return Member{}, fmt.Errorf("upload avatar: reader must not be nil")
	}

	var out envelope[Member]
	if _, err := s.api.Put(ctx, profileImagePath, nil,
		httpclient.WithFile(profileImageForm, fileName, r),
		httpclient.WithResult(&out),
	); err != nil {
		return Member{}, fmt.Errorf("upload avatar: %w", err)
	}
	if err := out.check("upload avatar"); err != nil {
		return Member{}, err
	}
	return out.Data, nil
}
