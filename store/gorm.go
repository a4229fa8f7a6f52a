package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/madickblog/models"
)

// GormStore is the durable store backed by a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an opened and migrated database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Name() string { return "database" }

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

// likePattern escapes LIKE wildcards with '!' which every supported dialect accepts.
func likePattern(search string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(search)) + "%"
}

func (s *GormStore) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	q := s.db.WithContext(ctx).Model(&models.Post{}).Preload("User").Preload("Comments")
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := likePattern(search)
		q = q.Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!'", like, like)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	posts := []models.Post{}
	if err := newestFirst(q).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *GormStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Comments", newestFirst).
		Preload("Comments.User").
		First(&post, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (s *GormStore) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := postExists(tx, postID); err != nil {
			return err
		}
		return newestFirst(tx.Preload("User").Where("post_id = ?", postID)).Find(&comments).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return comments, nil
}

func (s *GormStore) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (s *GormStore) EnsureDefaultUser(ctx context.Context, email, name string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where(models.User{Email: email}).
		Attrs(models.User{Name: &name}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		return tx.Omit(clause.Associations).Create(user).Error
	}))
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FirstUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Order("id ASC").First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	post.Likes = 0
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (s *GormStore) UpdatePostContent(ctx context.Context, id uint, title, content string) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := postExists(tx, id); err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", id).UpdateColumns(map[string]any{
			"title":      title,
			"content":    content,
			"updated_at": time.Now(),
		}).Error
	}))
}

// IncrementLikes runs the increment as a single UPDATE and reads the value back in the
// same transaction, so concurrent callers never lose an update.
func (s *GormStore) IncrementLikes(ctx context.Context, id uint, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, ErrInvalidDelta
	}
	var likes []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).Where("id = ?", id).
			UpdateColumn("likes", gorm.Expr("likes + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Post{}).Where("id = ?", id).Pluck("likes", &likes).Error
	})
	if err != nil {
		return 0, translate(err)
	}
	if len(likes) == 0 {
		return 0, ErrNotFound
	}
	return likes[0], nil
}

func (s *GormStore) DeleteComments(ctx context.Context, postID uint) (int64, error) {
	res := s.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Comment{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) DeletePost(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePostCascade removes the comments and the post in one transaction.
func (s *GormStore) DeletePostCascade(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := postExists(tx, id); err != nil {
			return err
		}
		res := tx.Where("post_id = ?", id).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		res = tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	return removed, nil
}

func (s *GormStore) CreateComment(ctx context.Context, c *models.Comment) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := postExists(tx, c.PostID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(c).Error
	}))
}

func (s *GormStore) CountByCategory(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Category string
		Count    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.Count
	}
	return counts, nil
}

func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Post{}).Count(&st.Posts).Error; err != nil {
		return st, fmt.Errorf("count posts: %w", err)
	}
	if err := db.Model(&models.Comment{}).Count(&st.Comments).Error; err != nil {
		return st, fmt.Errorf("count comments: %w", err)
	}
	if err := db.Model(&models.User{}).Count(&st.Users).Error; err != nil {
		return st, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&models.Post{}).Select("COALESCE(SUM(likes), 0)").Scan(&st.Likes).Error; err != nil {
		return st, fmt.Errorf("sum likes: %w", err)
	}
	return st, nil
}

func postExists(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
