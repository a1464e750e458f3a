// Package broadcast implements the broadcast engine: given a reference cap
// and a metadata descriptor, it enumerates the peer caps that must be
// notified, applies audience-suppression rules, and dispatches once per
// distinct client UUID (spec.md §4.3).
package broadcast

import (
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/fusexd/metacore/internal/logger"
	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/concurrency"
)

// Kind distinguishes the four notification shapes the dispatcher emits.
type Kind int

const (
	KindRelease Kind = iota
	KindDelete
	KindRefresh
	KindMetadata
)

// Descriptor describes one change to broadcast.
type Descriptor struct {
	// Inode is the entry that changed.
	Inode uint64
	// ParentInode is its parent; used as the audience source for
	// KindRefresh and KindDelete broadcasts, per spec.md §4.3.
	ParentInode uint64
	// OriginClientUUID is the UUID of the client whose request caused
	// this change; it is never re-notified.
	OriginClientUUID string
	Kind             Kind
	// Name is the child name, for KindDelete.
	Name string
	// Body is the serialized metadata update, for KindMetadata.
	Body        []byte
	Clock       int64
	ParentMtime int64
}

// Transport is the subset of the wire-layer collaborator the broadcast
// engine needs to emit a notification.
type Transport interface {
	ReleaseCAP(clientUUID string, inode uint64) error
	DeleteEntry(clientUUID string, parentInode uint64, name string) error
	RefreshEntry(clientUUID string, inode uint64) error
	SendMD(clientID string, clientUUID string, inode, parentInode uint64, clock, parentMtime int64, body []byte) error
}

// Config holds the suppression knobs spec.md §6 lists.
type Config struct {
	// AudienceThreshold is the candidate count above which suppression
	// matching activates.
	AudienceThreshold int
	// SuppressPattern is compiled once at construction (and again on any
	// later SetSuppressPattern call), never per broadcast; an empty
	// pattern disables suppression. Cached behind an RCU-protected
	// versioned slot per spec.md §9's design note, since it is read on
	// every broadcast that crosses the audience threshold and updated
	// only on configuration change.
	SuppressPattern string
}

// suppressionSlot is the versioned configuration object published behind
// Engine.suppressor.
type suppressionSlot struct {
	pattern string
	matcher *regexp.Regexp
}

func compileSuppressionSlot(pattern string) *suppressionSlot {
	if pattern == "" {
		return &suppressionSlot{pattern: pattern}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logger.Warn("broadcast: suppression pattern failed to compile, disabling suppression", "pattern", pattern, "err", err)
		return &suppressionSlot{pattern: pattern}
	}
	return &suppressionSlot{pattern: pattern, matcher: re}
}

// Metrics is the nil-safe counter sink for broadcast events.
type Metrics interface {
	IncSuppressed(n int)
	IncBroadcast()
}

func incSuppressed(m Metrics, n int) {
	if m != nil && n > 0 {
		m.IncSuppressed(n)
	}
}

func incBroadcast(m Metrics) {
	if m != nil {
		m.IncBroadcast()
	}
}

// Engine is the broadcast engine, closing over the CAP store it draws its
// audience from.
type Engine struct {
	store      *cap.Store
	transport  Transport
	cfg        Config
	metrics    Metrics
	suppressor *concurrency.RCUDomain[suppressionSlot]
}

// New constructs a broadcast Engine. transport and metrics may be nil.
func New(store *cap.Store, transport Transport, cfg Config, metrics Metrics) *Engine {
	return &Engine{
		store:      store,
		transport:  transport,
		cfg:        cfg,
		metrics:    metrics,
		suppressor: concurrency.NewRCUDomain(compileSuppressionSlot(cfg.SuppressPattern)),
	}
}

// SetSuppressPattern recompiles the audience-suppression regex and
// publishes it for subsequent broadcasts, without blocking any broadcast
// already reading the prior pattern.
func (e *Engine) SetSuppressPattern(pattern string) {
	e.cfg.SuppressPattern = pattern
	e.suppressor.Update(compileSuppressionSlot(pattern))
}

type audienceMember struct {
	clientID   string
	clientUUID string
}

// Broadcast enumerates the audience for desc relative to ref (the caller's
// own cap, which is always excluded) and dispatches best-effort to each
// distinct client UUID. Errors from individual sends are logged and
// masked, never propagated, per spec.md §4.3 "emission is best-effort".
func (e *Engine) Broadcast(ref *cap.Cap, desc Descriptor) {
	if e.store == nil {
		return
	}

	candidateInode := desc.Inode
	if desc.Kind == KindRefresh || desc.Kind == KindDelete {
		candidateInode = desc.ParentInode
	}
	candidates := e.store.CapsForInode(candidateInode)
	if len(candidates) == 0 {
		return
	}

	audience, suppressed := e.selectAudience(ref, desc, candidates)
	incSuppressed(e.metrics, suppressed)
	if len(audience) == 0 {
		return
	}

	g := &errgroup.Group{}
	for _, member := range audience {
		member := member
		g.Go(func() error {
			e.dispatchOne(member, desc)
			return nil
		})
	}
	_ = g.Wait()
	incBroadcast(e.metrics)
}

func (e *Engine) selectAudience(ref *cap.Cap, desc Descriptor, candidates []*cap.Cap) ([]audienceMember, int) {
	var matcher *regexp.Regexp
	suppressionActive := false
	if len(candidates) > e.cfg.AudienceThreshold {
		slot, epoch := e.suppressor.ReadLock()
		matcher = slot.matcher
		e.suppressor.ReadUnlock(epoch)
		suppressionActive = matcher != nil
	}

	seenUUID := make(map[string]bool)
	suppressedCount := 0
	var audience []audienceMember
	for _, c := range candidates {
		if ref != nil && c.AuthID == ref.AuthID {
			continue
		}
		if ref != nil && c.ClientUUID == ref.ClientUUID {
			continue
		}
		if desc.OriginClientUUID != "" && c.ClientUUID == desc.OriginClientUUID {
			continue
		}
		if suppressionActive && matcher.MatchString(c.ClientID) {
			suppressedCount++
			continue
		}
		if desc.Kind == KindMetadata {
			if seenUUID[c.ClientUUID] {
				continue
			}
			seenUUID[c.ClientUUID] = true
		}
		audience = append(audience, audienceMember{clientID: c.ClientID, clientUUID: c.ClientUUID})
	}
	return audience, suppressedCount
}

func (e *Engine) dispatchOne(member audienceMember, desc Descriptor) {
	if e.transport == nil {
		return
	}
	var err error
	switch desc.Kind {
	case KindRelease:
		err = e.transport.ReleaseCAP(member.clientUUID, desc.Inode)
	case KindDelete:
		err = e.transport.DeleteEntry(member.clientUUID, desc.ParentInode, desc.Name)
	case KindRefresh:
		err = e.transport.RefreshEntry(member.clientUUID, desc.Inode)
	case KindMetadata:
		err = e.transport.SendMD(member.clientID, member.clientUUID, desc.Inode, desc.ParentInode, desc.Clock, desc.ParentMtime, desc.Body)
	}
	if err != nil {
		// Per-broadcast errno clobbering from the transport is masked
		// here: a failed best-effort send is logged, not surfaced.
		logger.Debug("broadcast: send failed", "kind", desc.Kind, "clientuuid", member.clientUUID, "err", err)
	}
}
