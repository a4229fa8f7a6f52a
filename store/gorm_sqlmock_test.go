package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/madickblog/models"
)

// setupMockDB creates a GormStore backed by sqlmock for SQL-level failure injection.
func setupMockDB(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewGormStore(gormDB), mock
}

func TestGormIncrementLikesSQL(t *testing.T) {
	s, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "posts" SET "likes"=likes \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT "likes" FROM "posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"likes"}).AddRow(8))
	mock.ExpectCommit()

	likes, err := s.IncrementLikes(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(8), likes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormIncrementLikesMissingPost(t *testing.T) {
	s, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "posts" SET "likes"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.IncrementLikes(context.Background(), 7, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormIncrementLikesStoreFailure(t *testing.T) {
	s, mock := setupMockDB(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "posts" SET "likes"`).WillReturnError(boom)
	mock.ExpectRollback()

	_, err := s.IncrementLikes(context.Background(), 7, 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCascadeRollsBackOnFailure(t *testing.T) {
	s, mock := setupMockDB(t)
	boom := errors.New("lock wait timeout")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM "comments"`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM "posts"`).WillReturnError(boom)
	mock.ExpectRollback()

	_, err := s.DeletePostCascade(context.Background(), 7)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateCommentChecksPostFirst(t *testing.T) {
	s, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := s.CreateComment(context.Background(), &models.Comment{PostID: 7, UserID: 1, Content: "hello"})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormListPostsFailure(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "posts"`).WillReturnError(errors.New("dial tcp: connection refused"))

	posts, err := s.ListPosts(context.Background(), PostFilter{})
	assert.Error(t, err)
	assert.Nil(t, posts)
	require.NoError(t, mock.ExpectationsWereMet())
}
