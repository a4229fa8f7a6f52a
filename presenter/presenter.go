// Package presenter maps stored entities to their external JSON shapes.
package presenter

import (
	"sort"
	"time"

	"github.com/cppla/madickblog/models"
)

// TimeLayout renders timestamps as ISO-8601 UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// AuthorView is the public projection of a user.
type AuthorView struct {
	Name  *string `json:"name"`
	Image *string `json:"image"`
}

// CommentView is the external comment representation.
type CommentView struct {
	ID        uint       `json:"id"`
	PostID    uint       `json:"postId"`
	Content   string     `json:"content"`
	CreatedAt string     `json:"createdAt"`
	Author    AuthorView `json:"author"`
}

// PostSummary is a list entry. CommentCount is derived from the loaded comments.
type PostSummary struct {
	ID           uint       `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Category     string     `json:"category"`
	Likes        int64      `json:"likes"`
	CommentCount int        `json:"commentCount"`
	CreatedAt    string     `json:"createdAt"`
	Author       AuthorView `json:"author"`
}

// PostDetail is a single post with its comments, newest first.
type PostDetail struct {
	PostSummary
	UpdatedAt string        `json:"updatedAt"`
	Comments  []CommentView `json:"comments"`
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Author projects a user to name and image only.
func Author(u models.User) AuthorView {
	return AuthorView{Name: u.Name, Image: u.Image}
}

// Comment renders a single comment.
func Comment(c models.Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		Content:   c.Content,
		CreatedAt: FormatTime(c.CreatedAt),
		Author:    Author(c.User),
	}
}

// Comments renders comments newest first; ties are broken by id, highest first.
func Comments(comments []models.Comment) []CommentView {
	sorted := make([]models.Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	views := make([]CommentView, 0, len(sorted))
	for _, c := range sorted {
		views = append(views, Comment(c))
	}
	return views
}

// Summary renders a post for listings.
func Summary(p models.Post) PostSummary {
	return PostSummary{
		ID:           p.ID,
		Title:        p.Title,
		Content:      p.Content,
		Category:     p.Category,
		Likes:        p.Likes,
		CommentCount: len(p.Comments),
		CreatedAt:    FormatTime(p.CreatedAt),
		Author:       Author(p.User),
	}
}

// Summaries renders a listing; the result is never nil.
func Summaries(posts []models.Post) []PostSummary {
	views := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		views = append(views, Summary(p))
	}
	return views
}

// Detail renders a post with its comments.
func Detail(p models.Post) PostDetail {
	return PostDetail{
		PostSummary: Summary(p),
		UpdatedAt:   FormatTime(p.UpdatedAt),
		Comments:    Comments(p.Comments),
	}
}
