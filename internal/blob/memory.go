package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store used in tests and ephemeral deployments.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	info    Info
	payload []byte
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}
	sum := sha256.Sum256(payload)
	info := Info{
		Key:          key,
		Size:         int64(len(payload)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	m.mu.Lock()
	m.objects[key] = memoryObject{info: info, payload: payload}
	m.mu.Unlock()
	return info, nil
}

func (m *Memory) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return Info{}, nil, ErrNotFound
	}
	payload := make([]byte, len(obj.payload))
	copy(payload, obj.payload)
	return obj.info, io.NopCloser(bytes.NewReader(payload)), nil
}

func (m *Memory) Head(ctx context.Context, key string) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return Info{}, ErrNotFound
	}
	return obj.info, nil
}

func (m *Memory) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.objects[key]
	delete(m.objects, key)
	return existed, nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var infos []Info
	for key, obj := range m.objects {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			infos = append(infos, obj.info)
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
