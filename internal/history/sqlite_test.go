package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/relay-garden-go/pkg/util/merr"
)

type SQLiteSuite struct {
	suite.Suite

	path  string
	store *SQLiteStore
}

func (s *SQLiteSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "history.sqlite")

	store, err := OpenSQLite(s.path)
	s.Require().NoError(err)
	s.store = store
}

func (s *SQLiteSuite) TearDownTest() {
	if s.store != nil {
		s.NoError(s.store.Close())
	}
}

func (s *SQLiteSuite) TestOpenEmptyPath() {
	_, err := OpenSQLite("  ")
	s.ErrorIs(err, merr.ErrParameterInvalid)
}

func (s *SQLiteSuite) TestAppendAndRecentOrdering() {
	ctx := context.Background()

	s.NoError(s.store.Append(ctx, "alice", "one"))
	s.NoError(s.store.Append(ctx, "alice", "two"))
	s.NoError(s.store.Append(ctx, "bob", "three"))

	records, err := s.store.Recent(ctx, 2)
	s.NoError(err)
	s.Require().Len(records, 2)

	// 存储层按新到旧返回。
	s.Equal("three", records[0].Message)
	s.Equal("two", records[1].Message)
	s.Greater(records[0].ID, records[1].ID)
}

func (s *SQLiteSuite) TestRecentOnEmptyStore() {
	records, err := s.store.Recent(context.Background(), 500)
	s.NoError(err)
	s.Empty(records)
	s.Equal("", Render(records))
}

func (s *SQLiteSuite) TestRecentZeroLimit() {
	records, err := s.store.Recent(context.Background(), 0)
	s.NoError(err)
	s.Nil(records)
}

func (s *SQLiteSuite) TestRenderChronological() {
	ctx := context.Background()

	s.NoError(s.store.Append(ctx, "alice", "first"))
	s.NoError(s.store.Append(ctx, "bob", "second"))

	records, err := s.store.Recent(ctx, 500)
	s.NoError(err)

	s.Equal("alice: first\nbob: second", Render(records))
}

func (s *SQLiteSuite) TestRoundTripLastLine() {
	ctx := context.Background()

	s.NoError(s.store.Append(ctx, "alice", "old"))
	s.NoError(s.store.Append(ctx, "alice", "latest"))

	records, err := s.store.Recent(ctx, 500)
	s.NoError(err)

	rendered := Render(records)
	s.Contains(rendered, "alice: latest")
	s.Equal("alice: old\nalice: latest", rendered)
}

func (s *SQLiteSuite) TestTruncatedAtOpen() {
	ctx := context.Background()

	s.NoError(s.store.Append(ctx, "alice", "survives?"))
	s.NoError(s.store.Close())

	// 重新打开后历史被清空：历史仅在单次运行内有效。
	store, err := OpenSQLite(s.path)
	s.Require().NoError(err)
	s.store = store

	records, err := store.Recent(ctx, 500)
	s.NoError(err)
	s.Empty(records)
}

func (s *SQLiteSuite) TestClosedStoreErrors() {
	ctx := context.Background()
	s.NoError(s.store.Close())

	err := s.store.Append(ctx, "alice", "late")
	s.ErrorIs(err, merr.ErrHistoryWrite)

	_, err = s.store.Recent(ctx, 500)
	s.ErrorIs(err, merr.ErrHistoryRead)

	// 重复关闭是安全的。
	s.NoError(s.store.Close())
	s.store = nil
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}
