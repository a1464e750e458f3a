// Package wire defines the request/response message shapes the metadata
// request dispatcher exchanges with the wire layer (spec.md §6), and the
// length-prefix framer used when responses are concatenated in-line. Per
// spec.md §9's "deep inheritance" design note, request types are a flat
// tagged variant (one Op field, a fixed set of optional payload fields)
// rather than a class hierarchy.
package wire

import (
	"time"

	"github.com/fusexd/metacore/pkg/fusexerr"
)

// Op identifies the operation a Request carries out.
type Op uint8

const (
	OpGet Op = iota
	OpLs
	OpSet
	OpDelete
	OpGetCap
	OpGetLk
	OpSetLk
	OpSetLkw
	OpBeginFlush
	OpEndFlush
)

func (o Op) String() string {
	switch o {
	case OpGet:
		return "GET"
	case OpLs:
		return "LS"
	case OpSet:
		return "SET"
	case OpDelete:
		return "DELETE"
	case OpGetCap:
		return "GETCAP"
	case OpGetLk:
		return "GETLK"
	case OpSetLk:
		return "SETLK"
	case OpSetLkw:
		return "SETLKW"
	case OpBeginFlush:
		return "BEGINFLUSH"
	case OpEndFlush:
		return "ENDFLUSH"
	default:
		return "UNKNOWN"
	}
}

// FlockRecord is the byte-range lock payload carried by GETLK/SETLK/SETLKW
// requests and LOCK responses (spec.md §6).
type FlockRecord struct {
	Type  int32 // F_RDLCK / F_WRLCK / F_UNLCK, caller-defined
	Start int64
	Len   int64 // 0 is re-encoded as -1 (infinite range) by the dispatcher
	PID   int32
	ErrNo fusexerr.Errno
}

// Request is a single wire request. Every op populates Op, Inode, ClientID,
// ClientUUID, AuthID, and ReqID; the remaining fields are populated as each
// op's contract requires (spec.md §4.4).
type Request struct {
	Op          Op
	Inode       uint64
	ParentInode uint64
	Name        string
	Mode        uint32
	UID         uint32
	GID         uint32
	ClientID    string
	ClientUUID  string
	AuthID      string
	ReqID       string
	Ctime       time.Time
	Mtime       time.Time
	Btime       time.Time
	Attrs       map[string]string
	Size        uint64
	Target      string // symlink target, or the hard-link sentinel payload
	Lock        *FlockRecord
	// ClientClock is the client's cached clock value for the entry being
	// requested; a match against the server's current clock short-circuits
	// GET/LS to a "not modified" reply.
	ClientClock int64
	// AppTag identifies the calling application; a recognized exempt tag
	// bypasses the MAX_CHILDREN hard cap on LS.
	AppTag string
}

// AckCode is the outcome of a request that did not produce a metadata or
// lock reply.
type AckCode uint8

const (
	AckOK AckCode = iota
	AckPermanentFailure
)

// Ack is the simplest response shape: success or a translated failure.
type Ack struct {
	Code          AckCode
	ErrNo         fusexerr.Errno
	ErrMsg        string
	TransactionID string
	// MDIno is populated on success for ops that create or resolve an
	// inode (e.g. hard-link CREATE).
	MDIno uint64
}

// CapBody is the wire projection of a cap.Cap.
type CapBody struct {
	AuthID      string
	Inode       uint64
	ClientID    string
	ClientUUID  string
	UID         uint32
	GID         uint32
	Mode        uint32
	Vtime       int64 // unix seconds
	MaxFileSize uint64
}

// MD is the wire projection of one namespace entry, optionally carrying an
// attached child cap (spec.md §4.4 GET/LS: "for up to 16 dot-prefixed
// children, a child CAP").
type MD struct {
	Inode       uint64
	ParentInode uint64
	Name        string
	Mode        uint32
	UID         uint32
	GID         uint32
	Size        uint64
	Nlink       uint32
	Mtime       time.Time
	Ctime       time.Time
	Btime       time.Time
	Target      string
	Clock       int64
	Cap         *CapBody
}

// RespType distinguishes the reply shapes spec.md §6 lists.
type RespType uint8

const (
	RespAck RespType = iota
	RespMD
	RespMDLS
	RespMDMap
	RespLock
	RespNone
)

// Response is the tagged-variant reply to a Request. Exactly one of the
// payload fields matching Type is populated.
type Response struct {
	Type   RespType
	Ack    *Ack
	MD     *MD
	MDList []MD
	// MDMap maps a single requested name to its entry, used by GET's
	// MDMAP reply shape (spec.md §8 scenario 2).
	MDMap map[string]MD
	Lock   *FlockRecord
}

// NotModified builds the RespAck-shaped "not modified" short-circuit reply
// GET/LS return when the client's cached clock already matches.
func NotModified(transactionID string) *Response {
	return &Response{Type: RespAck, Ack: &Ack{Code: AckOK, TransactionID: transactionID}}
}

// ErrorResponse builds the ACK{code=PERMANENT_FAILURE} reply shape every
// failed operation returns (spec.md §4.4 "Failure semantics").
func ErrorResponse(err error, transactionID string) *Response {
	fe, ok := err.(*fusexerr.Error)
	msg := err.Error()
	errno := fusexerr.ErrnoOf(err)
	if ok {
		msg = fe.Detail
	}
	return &Response{Type: RespAck, Ack: &Ack{
		Code:          AckPermanentFailure,
		ErrNo:         errno,
		ErrMsg:        msg,
		TransactionID: transactionID,
	}}
}
