package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/cppla/madickblog/models"
)

// Welcome post created for an empty store.
const (
	WelcomeTitle   = "Welcome to MadickBlog"
	WelcomeContent = "# Welcome\n\nThis is your first blog post. Edit or delete it to get started."
)

// SeedOptions configures Seed.
type SeedOptions struct {
	DefaultUserEmail string
	DefaultUserName  string
	Categories       []string
	// FakePosts is the number of generated posts added on top of the fixtures.
	FakePosts int
	// MaxComments caps generated comments per fake post.
	MaxComments int
	// RandSeed makes generated content reproducible; zero uses the clock.
	RandSeed int64
}

// SeedResult reports what Seed created.
type SeedResult struct {
	DefaultUser *models.User
	Posts       int
	Comments    int
}

// Seed ensures the default user exists, adds the welcome post when the store has no
// posts, then generates opts.FakePosts posts with comments from fake authors.
func Seed(ctx context.Context, s Store, opts SeedOptions) (SeedResult, error) {
	var res SeedResult
	user, err := s.EnsureDefaultUser(ctx, opts.DefaultUserEmail, opts.DefaultUserName)
	if err != nil {
		return res, fmt.Errorf("ensure default user: %w", err)
	}
	res.DefaultUser = user

	category := ""
	if len(opts.Categories) > 0 {
		category = opts.Categories[0]
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		return res, fmt.Errorf("read stats: %w", err)
	}
	if stats.Posts == 0 {
		welcome := &models.Post{UserID: user.ID, Title: WelcomeTitle, Content: WelcomeContent, Category: category}
		if err := s.CreatePost(ctx, welcome); err != nil {
			return res, fmt.Errorf("create welcome post: %w", err)
		}
		res.Posts++
	}

	if opts.FakePosts <= 0 {
		return res, nil
	}

	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(seed)
	maxComments := opts.MaxComments
	if maxComments <= 0 {
		maxComments = 5
	}

	authors := []*models.User{user}
	for i := 0; i < 3; i++ {
		name := faker.Name()
		author := &models.User{Email: faker.Email(), Name: &name}
		err := s.CreateUser(ctx, author)
		if errors.Is(err, ErrDuplicate) {
			author, err = s.GetUserByEmail(ctx, author.Email)
		}
		if err != nil {
			return res, fmt.Errorf("create fake user: %w", err)
		}
		authors = append(authors, author)
	}

	now := time.Now().UTC()
	for i := 0; i < opts.FakePosts; i++ {
		post := &models.Post{
			UserID:    authors[faker.Number(0, len(authors)-1)].ID,
			Title:     faker.Sentence(5),
			Content:   faker.Paragraph(1, 3, 8, "\n\n"),
			Category:  category,
			CreatedAt: now.Add(-time.Duration(faker.Number(1, 90*24)) * time.Hour),
		}
		if len(opts.Categories) > 0 {
			post.Category = faker.RandomString(opts.Categories)
		}
		if err := s.CreatePost(ctx, post); err != nil {
			return res, fmt.Errorf("create fake post: %w", err)
		}
		res.Posts++

		for j := faker.Number(0, maxComments); j > 0; j-- {
			comment := &models.Comment{
				PostID:    post.ID,
				UserID:    authors[faker.Number(0, len(authors)-1)].ID,
				Content:   faker.Sentence(12),
				CreatedAt: post.CreatedAt.Add(time.Duration(faker.Number(1, 48*60)) * time.Minute),
			}
			if err := s.CreateComment(ctx, comment); err != nil {
				return res, fmt.Errorf("create fake comment: %w", err)
			}
			res.Comments++
		}
	}
	return res, nil
}
