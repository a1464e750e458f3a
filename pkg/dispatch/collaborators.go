package dispatch

import (
	"context"

	"github.com/fusexd/metacore/pkg/wire"
)

// LockService is the byte-range lock service collaborator GETLK/SETLK/
// SETLKW forward to (spec.md §4.4, spec.md §6's "byte-range lock
// service"). It is out of scope for this core; this is only the contract
// the dispatcher requires of it.
type LockService interface {
	// GetLock reports the first conflicting lock for the given range,
	// or a record with Type set to the caller's F_UNLCK equivalent if
	// none conflicts.
	GetLock(ctx context.Context, inode uint64, clientUUID string, lock *wire.FlockRecord) (*wire.FlockRecord, error)

	// SetLock acquires or releases a lock. wait distinguishes SETLKW
	// ("sleep=1" hint) from SETLK.
	SetLock(ctx context.Context, inode uint64, clientUUID string, lock *wire.FlockRecord, wait bool) error
}

// FlushService is the write-flush coordination collaborator BEGINFLUSH/
// ENDFLUSH forward to, keyed by (inode, clientuuid) (spec.md §4.4).
type FlushService interface {
	BeginFlush(ctx context.Context, inode uint64, clientUUID string) error
	EndFlush(ctx context.Context, inode uint64, clientUUID string) error
}

// RecycleBin is the recycle-path collaborator file DELETE/MOVE route
// through when the recycle attribute applies (spec.md §4.4). Out of
// scope for this core, same as the namespace store itself.
type RecycleBin interface {
	Recycle(ctx context.Context, inode, parentInode uint64, name string) error
}
