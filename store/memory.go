package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/cppla/madickblog/models"
	"github.com/cppla/madickblog/utils"
)

const (
	userKeyPrefix        = "user:"
	userEmailKeyPrefix   = "user_email:"
	postKeyPrefix        = "post:"
	commentKeyPrefix     = "comment:"
	postCommentKeyPrefix = "post_comment:"
	postRevKeyPrefix     = "post_rev:"

	userSeqKey    = "seq:user"
	postSeqKey    = "seq:post"
	commentSeqKey = "seq:comment"

	// maxTxnAttempts bounds optimistic retries of a single write.
	maxTxnAttempts = 1000
)

// MemoryStore keeps entities in an in-memory badger instance. It is volatile: the data
// lives as long as the process and is never shared between processes.
type MemoryStore struct {
	db *badger.DB
}

type userRecord struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name"`
	Image        *string   `json:"image"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type postRecord struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Likes     int64     `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type commentRecord struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	UserID    uint      `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMemoryStore opens an empty in-memory store.
func NewMemoryStore() (*MemoryStore, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithMemTableSize(8 << 20).
		WithBlockCacheSize(8 << 20).
		WithNumGoroutines(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &MemoryStore{db: db}, nil
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("memory store is closed")
	}
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return s.db.Close()
}

func idKey(prefix string, id uint) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, id))
}

func postCommentKey(postID, commentID uint) []byte {
	return []byte(fmt.Sprintf("%s%020d:%020d", postCommentKeyPrefix, postID, commentID))
}

func emailKey(email string) []byte {
	return []byte(userEmailKeyPrefix + strings.ToLower(email))
}

// update runs fn in a read-write transaction, retrying when badger reports a conflict
// with a concurrent transaction.
func (s *MemoryStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *MemoryStore) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// nextID increments a sequence key inside txn; conflicting writers are retried by update.
func nextID(txn *badger.Txn, seqKey string) (uint, error) {
	var id uint64
	item, err := txn.Get([]byte(seqKey))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			id = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	}
	id++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	if err := txn.Set([]byte(seqKey), buf); err != nil {
		return 0, err
	}
	return uint(id), nil
}

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	return txn.Set(key, data)
}

// scan decodes every value under prefix in key order.
func scan[T any](txn *badger.Txn, prefix string, fn func(T) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		var rec T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// commentIDs lists the ids of a post's comments from the post_comment index.
func commentIDs(txn *badger.Txn, postID uint) ([]uint, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(fmt.Sprintf("%s%020d:", postCommentKeyPrefix, postID))
	var ids []uint
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		id, err := strconv.ParseUint(string(it.Item().Key()[len(prefix):]), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func (r userRecord) model() models.User {
	return models.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Image:        r.Image,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (r postRecord) model() models.Post {
	return models.Post{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Content:   r.Content,
		Category:  r.Category,
		Likes:     r.Likes,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r commentRecord) model() models.Comment {
	return models.Comment{
		ID:        r.ID,
		PostID:    r.PostID,
		UserID:    r.UserID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// loadUsers fetches each distinct user once; unknown ids map to the zero user.
func loadUsers(txn *badger.Txn, ids []uint) (map[uint]models.User, error) {
	users := make(map[uint]models.User, len(ids))
	for _, id := range utils.UniqueUint(ids) {
		var rec userRecord
		err := getJSON(txn, idKey(userKeyPrefix, id), &rec)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users[id] = rec.model()
	}
	return users, nil
}

// loadComments returns a post's comments newest first with authors attached.
func loadComments(txn *badger.Txn, postID uint) ([]models.Comment, error) {
	ids, err := commentIDs(txn, postID)
	if err != nil {
		return nil, err
	}
	comments := make([]models.Comment, 0, len(ids))
	authorIDs := make([]uint, 0, len(ids))
	for _, id := range ids {
		var rec commentRecord
		if err := getJSON(txn, idKey(commentKeyPrefix, id), &rec); err != nil {
			return nil, err
		}
		comments = append(comments, rec.model())
		authorIDs = append(authorIDs, rec.UserID)
	}
	users, err := loadUsers(txn, authorIDs)
	if err != nil {
		return nil, err
	}
	for i := range comments {
		comments[i].User = users[comments[i].UserID]
	}
	sortNewestFirst(comments, func(c models.Comment) (time.Time, uint) { return c.CreatedAt, c.ID })
	return comments, nil
}

func sortNewestFirst[T any](items []T, key func(T) (time.Time, uint)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})
}

func (s *MemoryStore) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	posts := []models.Post{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		var authorIDs []uint
		err := scan(txn, postKeyPrefix, func(rec postRecord) error {
			if filter.Category != "" && rec.Category != filter.Category {
				return nil
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(rec.Title), search) &&
				!strings.Contains(strings.ToLower(rec.Content), search) {
				return nil
			}
			post := rec.model()
			comments, err := loadComments(txn, rec.ID)
			if err != nil {
				return err
			}
			post.Comments = comments
			posts = append(posts, post)
			authorIDs = append(authorIDs, rec.UserID)
			return nil
		})
		if err != nil {
			return err
		}
		users, err := loadUsers(txn, authorIDs)
		if err != nil {
			return err
		}
		for i := range posts {
			posts[i].User = users[posts[i].UserID]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(posts, func(p models.Post) (time.Time, uint) { return p.CreatedAt, p.ID })
	return posts, nil
}

func (s *MemoryStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.view(ctx, func(txn *badger.Txn) error {
		var rec postRecord
		if err := getJSON(txn, idKey(postKeyPrefix, id), &rec); err != nil {
			return err
		}
		post = rec.model()
		users, err := loadUsers(txn, []uint{rec.UserID})
		if err != nil {
			return err
		}
		post.User = users[rec.UserID]
		post.Comments, err = loadComments(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *MemoryStore) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.view(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(idKey(postKeyPrefix, postID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		var err error
		comments, err = loadComments(txn, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *MemoryStore) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := s.view(ctx, func(txn *badger.Txn) error {
		var rec commentRecord
		if err := getJSON(txn, idKey(commentKeyPrefix, id), &rec); err != nil {
			return err
		}
		comment = rec.model()
		users, err := loadUsers(txn, []uint{rec.UserID})
		if err != nil {
			return err
		}
		comment.User = users[rec.UserID]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *MemoryStore) EnsureDefaultUser(ctx context.Context, email, name string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	user = &models.User{Email: email, Name: &name}
	err = s.CreateUser(ctx, user)
	if errors.Is(err, ErrDuplicate) {
		return s.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	return s.update(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(emailKey(user.Email))
		if err == nil {
			return ErrDuplicate
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		id, err := nextID(txn, userSeqKey)
		if err != nil {
			return err
		}
		rec := userRecord{
			ID:           id,
			Email:        user.Email,
			Name:         user.Name,
			Image:        user.Image,
			PasswordHash: user.PasswordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := setJSON(txn, idKey(userKeyPrefix, id), rec); err != nil {
			return err
		}
		if err := txn.Set(emailKey(user.Email), []byte(strconv.FormatUint(uint64(id), 10))); err != nil {
			return err
		}
		user.ID, user.CreatedAt, user.UpdatedAt = id, now, now
		return nil
	})
}

func (s *MemoryStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var rec userRecord
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, idKey(userKeyPrefix, id), &rec)
	})
	if err != nil {
		return nil, err
	}
	user := rec.model()
	return &user, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var rec userRecord
	err := s.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var id uint64
		if err := item.Value(func(val []byte) error {
			id, err = strconv.ParseUint(string(val), 10, 64)
			return err
		}); err != nil {
			return err
		}
		return getJSON(txn, idKey(userKeyPrefix, uint(id)), &rec)
	})
	if err != nil {
		return nil, err
	}
	user := rec.model()
	return &user, nil
}

func (s *MemoryStore) FirstUser(ctx context.Context) (*models.User, error) {
	var found *models.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scan(txn, userKeyPrefix, func(rec userRecord) error {
			if found == nil {
				u := rec.model()
				found = &u
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *MemoryStore) FindPost(ctx context.Context, id uint) (*models.Post, error) {
	var rec postRecord
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, idKey(postKeyPrefix, id), &rec)
	})
	if err != nil {
		return nil, err
	}
	post := rec.model()
	return &post, nil
}

func (s *MemoryStore) CreatePost(ctx context.Context, post *models.Post) error {
	now := time.Now().UTC()
	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		id, err := nextID(txn, postSeqKey)
		if err != nil {
			return err
		}
		rec := postRecord{
			ID:        id,
			UserID:    post.UserID,
			Title:     post.Title,
			Content:   post.Content,
			Category:  post.Category,
			CreatedAt: createdAt,
			UpdatedAt: now,
		}
		if err := setJSON(txn, idKey(postKeyPrefix, id), rec); err != nil {
			return err
		}
		post.ID, post.Likes, post.CreatedAt, post.UpdatedAt = id, 0, createdAt, now
		return nil
	})
}

// modifyPost applies fn to the stored post record inside a retried transaction.
func (s *MemoryStore) modifyPost(ctx context.Context, id uint, fn func(rec *postRecord)) (postRecord, error) {
	var out postRecord
	err := s.update(ctx, func(txn *badger.Txn) error {
		var rec postRecord
		if err := getJSON(txn, idKey(postKeyPrefix, id), &rec); err != nil {
			return err
		}
		fn(&rec)
		out = rec
		return setJSON(txn, idKey(postKeyPrefix, id), rec)
	})
	return out, err
}

func (s *MemoryStore) UpdatePostContent(ctx context.Context, id uint, title, content string) error {
	_, err := s.modifyPost(ctx, id, func(rec *postRecord) {
		rec.Title = title
		rec.Content = content
		rec.UpdatedAt = time.Now().UTC()
	})
	return err
}

// IncrementLikes reads and writes the counter in one optimistic transaction; badger
// aborts a commit whose read was overwritten, and update retries it.
func (s *MemoryStore) IncrementLikes(ctx context.Context, id uint, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, ErrInvalidDelta
	}
	rec, err := s.modifyPost(ctx, id, func(rec *postRecord) {
		rec.Likes += delta
	})
	if err != nil {
		return 0, err
	}
	return rec.Likes, nil
}

// touchPostRev rewrites the post's comment revision key. Every comment insert writes
// it and every comment removal reads it, so badger aborts whichever of the two
// commits second; a prefix scan alone tracks no key a new comment would write.
func touchPostRev(txn *badger.Txn, postID, commentID uint) error {
	return txn.Set(idKey(postRevKeyPrefix, postID), []byte(strconv.FormatUint(uint64(commentID), 10)))
}

func deleteComments(txn *badger.Txn, postID uint) (int64, error) {
	if _, err := txn.Get(idKey(postRevKeyPrefix, postID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return 0, err
	}
	ids, err := commentIDs(txn, postID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := txn.Delete(idKey(commentKeyPrefix, id)); err != nil {
			return 0, err
		}
		if err := txn.Delete(postCommentKey(postID, id)); err != nil {
			return 0, err
		}
	}
	return int64(len(ids)), nil
}

// deletePost removes the post record together with whatever comments it still has,
// the way the relational schema cascades on the foreign key.
func deletePost(txn *badger.Txn, id uint) (int64, error) {
	if _, err := txn.Get(idKey(postKeyPrefix, id)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	removed, err := deleteComments(txn, id)
	if err != nil {
		return 0, err
	}
	if err := txn.Delete(idKey(postRevKeyPrefix, id)); err != nil {
		return 0, err
	}
	return removed, txn.Delete(idKey(postKeyPrefix, id))
}

func (s *MemoryStore) DeleteComments(ctx context.Context, postID uint) (int64, error) {
	var removed int64
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		removed, err = deleteComments(txn, postID)
		return err
	})
	return removed, err
}

// DeletePost also drops comments created after an earlier DeleteComments, so the
// stepwise path never leaves a comment behind its post.
func (s *MemoryStore) DeletePost(ctx context.Context, id uint) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		_, err := deletePost(txn, id)
		return err
	})
}

// DeletePostCascade removes the post and its comments in one transaction.
func (s *MemoryStore) DeletePostCascade(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		removed, err = deletePost(txn, id)
		return err
	})
	return removed, err
}

// CreateComment reads the post key and writes the post's revision key in one
// transaction: a delete committed first aborts the insert through the post key, and
// an insert committed first aborts the delete through the revision key.
func (s *MemoryStore) CreateComment(ctx context.Context, c *models.Comment) error {
	now := time.Now().UTC()
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(idKey(postKeyPrefix, c.PostID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		id, err := nextID(txn, commentSeqKey)
		if err != nil {
			return err
		}
		rec := commentRecord{
			ID:        id,
			PostID:    c.PostID,
			UserID:    c.UserID,
			Content:   c.Content,
			CreatedAt: createdAt,
			UpdatedAt: now,
		}
		if err := setJSON(txn, idKey(commentKeyPrefix, id), rec); err != nil {
			return err
		}
		if err := txn.Set(postCommentKey(c.PostID, id), []byte{}); err != nil {
			return err
		}
		if err := touchPostRev(txn, c.PostID, id); err != nil {
			return err
		}
		c.ID, c.CreatedAt, c.UpdatedAt = id, createdAt, now
		return nil
	})
}

func (s *MemoryStore) CountByCategory(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scan(txn, postKeyPrefix, func(rec postRecord) error {
			counts[rec.Category]++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.view(ctx, func(txn *badger.Txn) error {
		if err := scan(txn, postKeyPrefix, func(rec postRecord) error {
			st.Posts++
			st.Likes += rec.Likes
			return nil
		}); err != nil {
			return err
		}
		if err := scan(txn, commentKeyPrefix, func(commentRecord) error {
			st.Comments++
			return nil
		}); err != nil {
			return err
		}
		return scan(txn, userKeyPrefix, func(userRecord) error {
			st.Users++
			return nil
		})
	})
	return st, err
}
