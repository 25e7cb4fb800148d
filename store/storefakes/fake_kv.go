package storefakes

import (
	"sync"

	"github.com/motohub/go-motohub-client/store"
)

var _ store.KV = (*FakeKV)(nil)

// FakeKV is an in-memory KV for tests. Seed writes values directly so tests
// can plant partial or corrupted persisted state.
type FakeKV struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewFakeKV() *FakeKV {
	return &FakeKV{values: make(map[string]string)}
}

func (kv *FakeKV) Get(key string) string {
	kv.lock.RLock()
	defer kv.lock.RUnlock()
	return kv.values[key]
}

func (kv *FakeKV) Set(key, value string) error {
	kv.lock.Lock()
	defer kv.lock.Unlock()
	kv.values[key] = value
	return nil
}

func (kv *FakeKV) Delete(key string) error {
	kv.lock.Lock()
	defer kv.lock.Unlock()
	delete(kv.values, key)
	return nil
}

// Seed plants a raw value, bypassing any interface contract checks.
func (kv *FakeKV) Seed(key, value string) {
	kv.lock.Lock()
	defer kv.lock.Unlock()
	kv.values[key] = value
}

// Len reports the number of stored keys.
func (kv *FakeKV) Len() int {
	kv.lock.RLock()
	defer kv.lock.RUnlock()
	return len(kv.values)
}
