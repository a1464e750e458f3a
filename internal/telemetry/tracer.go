package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for protocol operations.
// These follow OpenTelemetry semantic conventions where applicable.
// Protocol-agnostic keys use "fs." prefix, protocol-specific use their own prefix.
const (
	// ========================================================================
	// Client attributes (protocol-agnostic)
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"
	AttrClientPort = "client.port"
	AttrClientHost = "client.host"

	// ========================================================================
	// Protocol attributes (protocol-agnostic)
	// ========================================================================
	AttrProtocol   = "protocol.name"    // nfs, smb, webdav, etc.
	AttrOperation  = "fs.operation"     // Generic operation name
	AttrHandle     = "fs.handle"        // File handle (protocol-specific opaque ID)
	AttrShare      = "fs.share"         // Share/export name
	AttrPath       = "fs.path"          // File path
	AttrFilename   = "fs.filename"      // File name (basename)
	AttrOffset     = "fs.offset"        // I/O offset
	AttrCount      = "fs.count"         // Byte count requested
	AttrSize       = "fs.size"          // File size
	AttrType       = "fs.type"          // File type
	AttrMode       = "fs.mode"          // File mode/permissions
	AttrStatus     = "fs.status"        // Operation status code
	AttrStatusMsg  = "fs.status_msg"    // Human-readable status
	AttrEOF        = "fs.eof"           // End of file indicator
	AttrBytesRead  = "fs.bytes_read"    // Actual bytes read
	AttrBytesWrite = "fs.bytes_written" // Actual bytes written

	// ========================================================================
	// RPC attributes (NFS, RPC-based protocols)
	// ========================================================================
	AttrRPCXID      = "rpc.xid"
	AttrRPCProgram  = "rpc.program"
	AttrRPCVersion  = "rpc.version"
	AttrRPCAuthType = "rpc.auth_type"

	// ========================================================================
	// SMB-specific attributes (future)
	// ========================================================================
	AttrSMBCommand   = "smb.command"
	AttrSMBMessageID = "smb.message_id"
	AttrSMBSessionID = "smb.session_id"
	AttrSMBTreeID    = "smb.tree_id"
	AttrSMBFileID    = "smb.file_id"

	// ========================================================================
	// User/Auth attributes (protocol-agnostic)
	// ========================================================================
	AttrUID      = "user.uid"
	AttrGID      = "user.gid"
	AttrUsername = "user.name"
	AttrDomain   = "user.domain"
	AttrAuth     = "auth.method"

	// ========================================================================
	// Cache attributes
	// ========================================================================
	AttrCacheHit    = "cache.hit"
	AttrCacheSource = "cache.source"
	AttrCacheState  = "cache.state"
	AttrCacheSize   = "cache.size"

	// ========================================================================
	// Storage backend attributes
	// ========================================================================
	AttrContentID = "content.id"
	AttrStoreName = "store.name"
	AttrStoreType = "store.type"
	AttrBucket    = "storage.bucket"
	AttrContainer = "storage.container" // Azure Blob
	AttrKey       = "storage.key"
	AttrRegion    = "storage.region"

	// ========================================================================
	// Metadata dispatcher attributes
	// ========================================================================
	AttrDispatchOp     = "dispatch.op"     // wire.Op string (GET, SET, LS, ...)
	AttrDispatchInode  = "dispatch.inode"  // target inode
	AttrDispatchReqID  = "dispatch.req_id" // wire request ID
	AttrDispatchAuthID = "dispatch.authid" // CAP authorization ID
)

// Span names for operations.
// Format: <protocol>.<operation> for protocol-specific spans
// Format: <component>.<operation> for internal operations
const (
	// ========================================================================
	// SMB protocol spans (future)
	// ========================================================================
	SpanSMBRequest    = "smb.request"
	SpanSMBNegotiate  = "smb.NEGOTIATE"
	SpanSMBSessionSet = "smb.SESSION_SETUP"
	SpanSMBTreeConn   = "smb.TREE_CONNECT"
	SpanSMBCreate     = "smb.CREATE"
	SpanSMBClose      = "smb.CLOSE"
	SpanSMBRead       = "smb.READ"
	SpanSMBWrite      = "smb.WRITE"
	SpanSMBQueryDir   = "smb.QUERY_DIRECTORY"
	SpanSMBQueryInfo  = "smb.QUERY_INFO"
	SpanSMBSetInfo    = "smb.SET_INFO"

	// ========================================================================
	// Internal storage operations (protocol-agnostic)
	// ========================================================================
	SpanCacheLookup  = "cache.lookup"
	SpanCacheWrite   = "cache.write"
	SpanCacheFlush   = "cache.flush"
	SpanCacheEvict   = "cache.evict"
	SpanContentRead  = "content.read"
	SpanContentWrite = "content.write"
	SpanContentStat  = "content.stat"
	SpanMetaLookup   = "metadata.lookup"
	SpanMetaUpdate   = "metadata.update"
	SpanMetaCreate   = "metadata.create"
	SpanMetaDelete   = "metadata.delete"

	// Root span for a dispatcher operation (spec.md §4.4)
	SpanDispatchRequest = "dispatch.request"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// RPCXID returns an attribute for RPC transaction ID
func RPCXID(xid uint32) attribute.KeyValue {
	return attribute.Int64(AttrRPCXID, int64(xid))
}

// UID returns an attribute for user ID
func UID(uid uint32) attribute.KeyValue {
	return attribute.Int64(AttrUID, int64(uid))
}

// GID returns an attribute for group ID
func GID(gid uint32) attribute.KeyValue {
	return attribute.Int64(AttrGID, int64(gid))
}

// CacheHit returns an attribute for cache hit indicator
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// CacheSource returns an attribute for cache source
func CacheSource(source string) attribute.KeyValue {
	return attribute.String(AttrCacheSource, source)
}

// ContentID returns an attribute for content ID
func ContentID(id string) attribute.KeyValue {
	return attribute.String(AttrContentID, id)
}

// Bucket returns an attribute for S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for S3 object key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// StartCacheSpan starts a span for a cache operation.
func StartCacheSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "cache."+operation, trace.WithAttributes(attrs...))
}

// StartMetadataSpan starts a span for a metadata store operation.
func StartMetadataSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "metadata."+operation, trace.WithAttributes(attrs...))
}

// ============================================================================
// Protocol-agnostic attribute helpers
// These can be used by any protocol adapter (NFS, SMB, WebDAV, etc.)
// ============================================================================

// Protocol returns an attribute for protocol name
func Protocol(name string) attribute.KeyValue {
	return attribute.String(AttrProtocol, name)
}

// FSOperation returns an attribute for filesystem operation name
func FSOperation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// FSHandle returns an attribute for file handle (generic)
func FSHandle(handle []byte) attribute.KeyValue {
	return attribute.String(AttrHandle, fmt.Sprintf("%x", handle))
}

// FSHandleHex returns an attribute for file handle already in hex format
func FSHandleHex(handle string) attribute.KeyValue {
	return attribute.String(AttrHandle, handle)
}

// FSShare returns an attribute for share/export name (generic)
func FSShare(share string) attribute.KeyValue {
	return attribute.String(AttrShare, share)
}

// FSPath returns an attribute for file path (generic)
func FSPath(path string) attribute.KeyValue {
	return attribute.String(AttrPath, path)
}

// FSFilename returns an attribute for filename (generic)
func FSFilename(name string) attribute.KeyValue {
	return attribute.String(AttrFilename, name)
}

// FSOffset returns an attribute for file offset (generic)
func FSOffset(offset uint64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, int64(offset))
}

// FSCount returns an attribute for byte count (generic)
func FSCount(count uint32) attribute.KeyValue {
	return attribute.Int64(AttrCount, int64(count))
}

// FSSize returns an attribute for file size (generic)
func FSSize(size uint64) attribute.KeyValue {
	return attribute.Int64(AttrSize, int64(size))
}

// FSStatus returns an attribute for operation status (generic)
func FSStatus(status int) attribute.KeyValue {
	return attribute.Int(AttrStatus, status)
}

// FSStatusMsg returns an attribute for status message (generic)
func FSStatusMsg(msg string) attribute.KeyValue {
	return attribute.String(AttrStatusMsg, msg)
}

// FSEOF returns an attribute for end-of-file indicator (generic)
func FSEOF(eof bool) attribute.KeyValue {
	return attribute.Bool(AttrEOF, eof)
}

// Username returns an attribute for username
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// Domain returns an attribute for domain name
func Domain(name string) attribute.KeyValue {
	return attribute.String(AttrDomain, name)
}

// AuthMethod returns an attribute for authentication method
func AuthMethod(method string) attribute.KeyValue {
	return attribute.String(AttrAuth, method)
}

// CacheState returns an attribute for cache state
func CacheState(state string) attribute.KeyValue {
	return attribute.String(AttrCacheState, state)
}

// StoreName returns an attribute for store name
func StoreName(name string) attribute.KeyValue {
	return attribute.String(AttrStoreName, name)
}

// StoreType returns an attribute for store type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// Container returns an attribute for Azure container name
func Container(name string) attribute.KeyValue {
	return attribute.String(AttrContainer, name)
}

// Region returns an attribute for cloud region
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// DispatchOp returns an attribute for the dispatched wire operation name.
func DispatchOp(op string) attribute.KeyValue {
	return attribute.String(AttrDispatchOp, op)
}

// DispatchInode returns an attribute for the target inode of a dispatched operation.
func DispatchInode(inode uint64) attribute.KeyValue {
	return attribute.Int64(AttrDispatchInode, int64(inode))
}

// DispatchReqID returns an attribute for the wire request ID.
func DispatchReqID(reqID uint64) attribute.KeyValue {
	return attribute.Int64(AttrDispatchReqID, int64(reqID))
}

// StartDispatchSpan starts a span for a dispatcher operation entry point.
func StartDispatchSpan(ctx context.Context, op string, inode uint64, reqID uint64) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanDispatchRequest,
		trace.WithAttributes(DispatchOp(op), DispatchInode(inode), DispatchReqID(reqID)),
	)
}

// StartProtocolSpan starts a span for a generic protocol operation.
// Use this for new protocol adapters, passing the protocol name and operation.
func StartProtocolSpan(ctx context.Context, protocol, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Protocol(protocol),
		FSOperation(operation),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, protocol+"."+operation, trace.WithAttributes(allAttrs...))
}
