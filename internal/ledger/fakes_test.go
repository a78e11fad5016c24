package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/qbank-api/internal/domain"
	"github.com/phrazzld/qbank-api/internal/store"
)

// memBlobs is an in-memory store.BlobStore.
type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: map[string][]byte{}}
}

func (m *memBlobs) Get(_ context.Context, ns, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[ns+"/"+key]
	if !ok {
		return nil, store.ErrBlobNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memBlobs) Set(_ context.Context, ns, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[ns+"/"+key] = append([]byte(nil), value...)
	return nil
}

func (m *memBlobs) DeleteNamespace(_ context.Context, ns string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if len(k) > len(ns) && k[:len(ns)+1] == ns+"/" {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memBlobs) PurgeOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// memRepo is an in-memory Repository that records calls and can fail on demand.
type memRepo struct {
	mu    sync.Mutex
	items map[string]*domain.QuestionResponse
	ops   []string

	putErr   error
	listErr  error
	batchErr error
	// when set, Put waits for it to be closed
	putGate chan struct{}

	batchCalls int
	batchSizes []int
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[string]*domain.QuestionResponse{}}
}

func (r *memRepo) record(op string) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func (r *memRepo) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

func (r *memRepo) List(context.Context) ([]*domain.QuestionResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*domain.QuestionResponse, 0, len(r.items))
	for _, v := range r.items {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (r *memRepo) Get(_ context.Context, id string) (*domain.QuestionResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[id]
	if !ok {
		return nil, store.ErrResponseNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *memRepo) Put(_ context.Context, resp *domain.QuestionResponse) error {
	r.mu.Lock()
	gate := r.putGate
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "put:"+resp.QuestionID)
	if r.putErr != nil {
		return r.putErr
	}
	if cur, ok := r.items[resp.QuestionID]; !ok || cur.Timestamp <= resp.Timestamp {
		cp := *resp
		r.items[resp.QuestionID] = &cp
	}
	return nil
}

func (r *memRepo) PutBatch(_ context.Context, rs []*domain.QuestionResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchCalls++
	r.batchSizes = append(r.batchSizes, len(rs))
	r.ops = append(r.ops, "batch")
	if r.batchErr != nil {
		return r.batchErr
	}
	for _, resp := range rs {
		cp := *resp
		r.items[resp.QuestionID] = &cp
	}
	return nil
}

func (r *memRepo) DeleteSubsection(_ context.Context, section, sub string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "delete:"+section+"/"+sub)
	for id, v := range r.items {
		if v.InScope(section, sub) {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *memRepo) DeleteAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "delete_all")
	r.items = map[string]*domain.QuestionResponse{}
	return nil
}

func (r *memRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
