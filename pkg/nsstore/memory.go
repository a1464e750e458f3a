package nsstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore is an in-memory Store, grounded on the teacher's map-backed
// reference metadata store: plain maps guarded by a single mutex, no
// business logic beyond the CRUD operations themselves.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[uint64]*Entry
	children map[uint64]map[string]uint64 // parentInode -> name -> inode
	nextID   atomic.Uint64
	usage    map[usageKey]QuotaUsage
}

type usageKey struct {
	uid, gid uint32
	node     uint64
}

// NewMemoryStore constructs an empty MemoryStore. The root directory
// (inode 1) is pre-created so callers can immediately resolve paths under
// it.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries:  make(map[uint64]*Entry),
		children: make(map[uint64]map[string]uint64),
		usage:    make(map[usageKey]QuotaUsage),
	}
	s.nextID.Store(1)
	root := &Entry{
		Inode:       1,
		ParentInode: 1,
		Name:        "/",
		Type:        TypeDirectory,
		Mode:        0o755,
		Nlink:       2,
		Mtime:       time.Unix(0, 0),
		Xattrs:      map[string]string{},
	}
	s.entries[1] = root
	s.children[1] = map[string]uint64{}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, inode uint64) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[inode]
	if !ok {
		return nil, errNotFound("get", inode)
	}
	return e.Clone(), nil
}

func (s *MemoryStore) GetChild(ctx context.Context, parentInode uint64, name string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	siblings, ok := s.children[parentInode]
	if !ok {
		return nil, errNotFound("getchild", parentInode)
	}
	inode, ok := siblings[name]
	if !ok {
		return nil, errNotFound("getchild", parentInode)
	}
	return s.entries[inode].Clone(), nil
}

func (s *MemoryStore) ListChildren(ctx context.Context, parentInode uint64, cookie uint64, limit int) ([]*Entry, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	siblings, ok := s.children[parentInode]
	if !ok {
		return nil, 0, errNotFound("listchildren", parentInode)
	}
	inodes := make([]uint64, 0, len(siblings))
	for _, inode := range siblings {
		inodes = append(inodes, inode)
	}
	sortUint64s(inodes)

	start := 0
	if cookie != 0 {
		for i, inode := range inodes {
			if inode > cookie {
				start = i
				break
			}
			start = i + 1
		}
	}
	if start >= len(inodes) {
		return nil, 0, nil
	}
	end := start + limit
	if limit <= 0 || end > len(inodes) {
		end = len(inodes)
	}
	out := make([]*Entry, 0, end-start)
	var next uint64
	for _, inode := range inodes[start:end] {
		out = append(out, s.entries[inode].Clone())
		next = inode
	}
	return out, next, nil
}

func sortUint64s(s []uint64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func (s *MemoryStore) ChildCount(ctx context.Context, parentInode uint64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	siblings, ok := s.children[parentInode]
	if !ok {
		return 0, errNotFound("childcount", parentInode)
	}
	return len(siblings), nil
}

func (s *MemoryStore) Create(ctx context.Context, entry *Entry, exclusive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	siblings, ok := s.children[entry.ParentInode]
	if !ok {
		siblings = map[string]uint64{}
		s.children[entry.ParentInode] = siblings
	}
	if existing, ok := siblings[entry.Name]; ok {
		if exclusive {
			return errExists("create", entry.Name)
		}
		entry.Inode = existing
	}
	if entry.Xattrs == nil {
		entry.Xattrs = map[string]string{}
	}
	if entry.Nlink == 0 {
		if entry.Type == TypeDirectory {
			entry.Nlink = 2
		} else {
			entry.Nlink = 1
		}
	}
	cp := entry.Clone()
	s.entries[cp.Inode] = cp
	siblings[cp.Name] = cp.Inode
	if cp.Type == TypeDirectory {
		if _, ok := s.children[cp.Inode]; !ok {
			s.children[cp.Inode] = map[string]uint64{}
		}
	}
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.Inode]; !ok {
		return errNotFound("update", entry.Inode)
	}
	s.entries[entry.Inode] = entry.Clone()
	return nil
}

func (s *MemoryStore) Move(ctx context.Context, inode, newParent uint64, newName string, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[inode]
	if !ok {
		return errNotFound("move", inode)
	}
	destSiblings, ok := s.children[newParent]
	if !ok {
		destSiblings = map[string]uint64{}
		s.children[newParent] = destSiblings
	}
	if existing, ok := destSiblings[newName]; ok && existing != inode {
		if !overwrite {
			return errExists("move", newName)
		}
		delete(s.entries, existing)
	}
	if oldSiblings, ok := s.children[e.ParentInode]; ok {
		delete(oldSiblings, e.Name)
	}
	e.ParentInode = newParent
	e.Name = newName
	destSiblings[newName] = inode
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, parentInode uint64, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	siblings, ok := s.children[parentInode]
	if !ok {
		return errNotFound("delete", parentInode)
	}
	inode, ok := siblings[name]
	if !ok {
		return errNotFound("delete", parentInode)
	}
	if kids, ok := s.children[inode]; ok && len(kids) > 0 {
		return errNotEmpty("delete")
	}
	delete(siblings, name)
	delete(s.entries, inode)
	delete(s.children, inode)
	return nil
}

func (s *MemoryStore) IncNlink(ctx context.Context, inode uint64) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[inode]
	if !ok {
		return 0, errNotFound("incnlink", inode)
	}
	e.Nlink++
	return e.Nlink, nil
}

func (s *MemoryStore) DecNlink(ctx context.Context, inode uint64) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[inode]
	if !ok {
		return 0, errNotFound("decnlink", inode)
	}
	if e.Nlink > 0 {
		e.Nlink--
	}
	return e.Nlink, nil
}

func (s *MemoryStore) NextInode(ctx context.Context) (uint64, error) {
	return s.nextID.Add(1), nil
}

func (s *MemoryStore) Quota(ctx context.Context, uid, gid uint32, quotaNodeInode uint64) (QuotaUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[usageKey{uid, gid, quotaNodeInode}], nil
}

// SetUsage lets tests seed quota accounting directly.
func (s *MemoryStore) SetUsage(uid, gid uint32, quotaNodeInode uint64, usage QuotaUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[usageKey{uid, gid, quotaNodeInode}] = usage
}

var _ Store = (*MemoryStore)(nil)
