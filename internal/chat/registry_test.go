package chat

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"

	"github.com/lk2023060901/relay-garden-go/pkg/util/merr"
)

type RegistrySuite struct {
	suite.Suite

	registry *Registry
}

func (s *RegistrySuite) SetupTest() {
	s.registry = NewRegistry()
}

func (s *RegistrySuite) TestRegisterDefaults() {
	sess := newFakeSession(1)
	s.registry.Register(sess)

	username, role, ok := s.registry.Lookup(sess.ID())
	s.True(ok)
	s.Equal(DefaultUsername, username)
	s.Equal(RoleNone, role)
	s.Equal(1, s.registry.Len())

	// 重复注册是安全的 no-op。
	s.registry.Register(sess)
	s.Equal(1, s.registry.Len())
}

func (s *RegistrySuite) TestLookupMissing() {
	_, _, ok := s.registry.Lookup(42)
	s.False(ok)
}

func (s *RegistrySuite) TestSetUsernameTruncation() {
	sess := newFakeSession(1)
	s.registry.Register(sess)

	longName := strings.Repeat("x", 200)
	s.registry.SetUsername(sess.ID(), longName)

	username, _, ok := s.registry.Lookup(sess.ID())
	s.True(ok)
	s.Len(username, MaxUsernameLen)
	s.Equal(longName[:MaxUsernameLen], username)
}

func (s *RegistrySuite) TestUnregisterReturnsPreRemovalState() {
	sess := newFakeSession(1)
	s.registry.Register(sess)
	s.registry.SetUsername(sess.ID(), "alice")
	s.NoError(s.registry.TryAdmit(sess.ID(), RoleWriter))

	username, role, ok := s.registry.Unregister(sess.ID())
	s.True(ok)
	s.Equal("alice", username)
	s.Equal(RoleWriter, role)

	_, _, ok = s.registry.Lookup(sess.ID())
	s.False(ok)

	// 再次移除是 no-op。
	_, _, ok = s.registry.Unregister(sess.ID())
	s.False(ok)
}

func (s *RegistrySuite) TestWriterExcludesEveryone() {
	a := newFakeSession(1)
	b := newFakeSession(2)
	s.registry.Register(a)
	s.registry.Register(b)

	s.NoError(s.registry.TryAdmit(a.ID(), RoleWriter))

	err := s.registry.TryAdmit(b.ID(), RoleWriter)
	s.ErrorIs(err, merr.ErrAdmissionWriterBlocked)

	err = s.registry.TryAdmit(b.ID(), RoleReader)
	s.ErrorIs(err, merr.ErrAdmissionReaderBlocked)

	readers, writers := s.registry.CountRoles()
	s.Equal(0, readers)
	s.Equal(1, writers)
}

func (s *RegistrySuite) TestReadersCoexistAndBlockWriter() {
	a := newFakeSession(1)
	b := newFakeSession(2)
	c := newFakeSession(3)
	s.registry.Register(a)
	s.registry.Register(b)
	s.registry.Register(c)

	s.NoError(s.registry.TryAdmit(a.ID(), RoleReader))
	s.NoError(s.registry.TryAdmit(b.ID(), RoleReader))

	err := s.registry.TryAdmit(c.ID(), RoleWriter)
	s.ErrorIs(err, merr.ErrAdmissionWriterBlocked)

	readers, writers := s.registry.CountRoles()
	s.Equal(2, readers)
	s.Equal(0, writers)
}

func (s *RegistrySuite) TestTryAdmitUnknownSession() {
	err := s.registry.TryAdmit(99, RoleReader)
	s.ErrorIs(err, merr.ErrSessionNotFound)
}

func (s *RegistrySuite) TestConcurrentWriterSingleWinner() {
	const n = 32

	sessions := make([]*fakeSession, n)
	for i := range sessions {
		sessions[i] = newFakeSession(uint64(i + 1))
		s.registry.Register(sessions[i])
	}

	granted := atomic.NewInt32(0)
	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			if err := s.registry.TryAdmit(id, RoleWriter); err == nil {
				granted.Inc()
			}
		}(sess.ID())
	}
	wg.Wait()

	s.Equal(int32(1), granted.Load())

	readers, writers := s.registry.CountRoles()
	s.Equal(0, readers)
	s.Equal(1, writers)
}

func (s *RegistrySuite) TestSnapshotIsPointInTimeCopy() {
	a := newFakeSession(1)
	s.registry.Register(a)

	snapshot := s.registry.Snapshot()
	s.Len(snapshot, 1)

	s.registry.Register(newFakeSession(2))
	s.Len(snapshot, 1)
	s.Len(s.registry.Snapshot(), 2)
}

func (s *RegistrySuite) TestParseRole() {
	s.Equal(RoleWriter, ParseRole("writer"))
	s.Equal(RoleWriter, ParseRole("WRITER"))
	s.Equal(RoleWriter, ParseRole("Writer"))
	s.Equal(RoleReader, ParseRole("reader"))
	s.Equal(RoleReader, ParseRole("anything"))
	s.Equal(RoleReader, ParseRole(""))
	// 尾随空白不参与匹配，带尾随空白的 writer 只能拿到 Reader。
	s.Equal(RoleReader, ParseRole("writer "))
	s.Equal(RoleReader, ParseRole("writer\t"))
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}
