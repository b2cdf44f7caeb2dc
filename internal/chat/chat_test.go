package chat

import (
	"context"
	"net"
	"sync"

	"github.com/lk2023060901/relay-garden-go/internal/history"
	"github.com/lk2023060901/relay-garden-go/pkg/util/merr"
)

// fakeSession 为测试用的内存会话，按顺序记录收到的全部消息。
type fakeSession struct {
	id  uint64
	ctx context.Context

	mu       sync.Mutex
	msgs     []string
	failSend bool
}

func newFakeSession(id uint64) *fakeSession {
	return &fakeSession{
		id:  id,
		ctx: context.Background(),
	}
}

func (f *fakeSession) ID() uint64 {
	return f.id
}

func (f *fakeSession) Context() context.Context {
	return f.ctx
}

func (f *fakeSession) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(f.id)}
}

func (f *fakeSession) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSend {
		return merr.WrapErrSendQueueFull(f.id)
	}
	f.msgs = append(f.msgs, text)
	return nil
}

func (f *fakeSession) Close() error {
	return nil
}

func (f *fakeSession) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.msgs))
	copy(out, f.msgs)
	return out
}

// memStore 为测试用的内存历史存储。
type memStore struct {
	mu         sync.RWMutex
	records    []history.Record
	nextID     int64
	failAppend bool
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) Append(_ context.Context, username, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAppend {
		return merr.WrapErrHistoryWrite(username, "append disabled")
	}
	m.nextID++
	m.records = append(m.records, history.Record{
		ID:       m.nextID,
		Username: username,
		Message:  message,
	})
	return nil
}

func (m *memStore) Recent(_ context.Context, limit int) ([]history.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}

	n := len(m.records)
	if limit > n {
		limit = n
	}
	out := make([]history.Record, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *memStore) Close() error {
	return nil
}
