package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/fusexd/metacore/internal/protocol/xdr"
	"github.com/fusexd/metacore/pkg/fusexerr"
)

// EncodeRequest serializes req using the same length-prefixed,
// big-endian primitive encoding the teacher's hand-rolled XDR helpers use
// for the NFS/SMB wire, tagged by field order rather than RFC 4506's
// positional union discriminants (spec.md §9's "tagged variant, not a
// class hierarchy").
func EncodeRequest(req *Request) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := xdr.WriteUint32(buf, uint32(req.Op)); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint64(buf, req.Inode); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint64(buf, req.ParentInode); err != nil {
		return nil, err
	}
	if err := xdr.WriteXDRString(buf, req.Name); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, req.Mode); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, req.UID); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, req.GID); err != nil {
		return nil, err
	}
	for _, s := range []string{req.ClientID, req.ClientUUID, req.AuthID, req.ReqID} {
		if err := xdr.WriteXDRString(buf, s); err != nil {
			return nil, err
		}
	}
	for _, t := range []time.Time{req.Ctime, req.Mtime, req.Btime} {
		if err := xdr.WriteInt64(buf, t.Unix()); err != nil {
			return nil, err
		}
	}
	if err := xdr.WriteUint32(buf, uint32(len(req.Attrs))); err != nil {
		return nil, err
	}
	for k, v := range req.Attrs {
		if err := xdr.WriteXDRString(buf, k); err != nil {
			return nil, err
		}
		if err := xdr.WriteXDRString(buf, v); err != nil {
			return nil, err
		}
	}
	if err := xdr.WriteUint64(buf, req.Size); err != nil {
		return nil, err
	}
	if err := xdr.WriteXDRString(buf, req.Target); err != nil {
		return nil, err
	}
	if err := xdr.WriteBool(buf, req.Lock != nil); err != nil {
		return nil, err
	}
	if req.Lock != nil {
		if err := xdr.WriteInt32(buf, req.Lock.Type); err != nil {
			return nil, err
		}
		if err := xdr.WriteInt64(buf, req.Lock.Start); err != nil {
			return nil, err
		}
		if err := xdr.WriteInt64(buf, req.Lock.Len); err != nil {
			return nil, err
		}
		if err := xdr.WriteInt32(buf, req.Lock.PID); err != nil {
			return nil, err
		}
		if err := xdr.WriteUint32(buf, uint32(req.Lock.ErrNo)); err != nil {
			return nil, err
		}
	}
	if err := xdr.WriteInt64(buf, req.ClientClock); err != nil {
		return nil, err
	}
	if err := xdr.WriteXDRString(buf, req.AppTag); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRequest deserializes a Request from the format EncodeRequest
// produces.
func DecodeRequest(data []byte) (*Request, error) {
	r := bytes.NewReader(data)
	req := &Request{}

	op, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("decode op: %w", err)
	}
	req.Op = Op(op)

	if req.Inode, err = xdr.DecodeUint64(r); err != nil {
		return nil, err
	}
	if req.ParentInode, err = xdr.DecodeUint64(r); err != nil {
		return nil, err
	}
	if req.Name, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	if req.Mode, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if req.UID, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if req.GID, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if req.ClientID, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	if req.ClientUUID, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	if req.AuthID, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	if req.ReqID, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	ctime, err := decodeInt64(r)
	if err != nil {
		return nil, err
	}
	mtime, err := decodeInt64(r)
	if err != nil {
		return nil, err
	}
	btime, err := decodeInt64(r)
	if err != nil {
		return nil, err
	}
	req.Ctime = time.Unix(ctime, 0).UTC()
	req.Mtime = time.Unix(mtime, 0).UTC()
	req.Btime = time.Unix(btime, 0).UTC()

	nattrs, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	if nattrs > 0 {
		req.Attrs = make(map[string]string, nattrs)
		for i := uint32(0); i < nattrs; i++ {
			k, err := xdr.DecodeString(r)
			if err != nil {
				return nil, err
			}
			v, err := xdr.DecodeString(r)
			if err != nil {
				return nil, err
			}
			req.Attrs[k] = v
		}
	}

	if req.Size, err = xdr.DecodeUint64(r); err != nil {
		return nil, err
	}
	if req.Target, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	hasLock, err := xdr.DecodeBool(r)
	if err != nil {
		return nil, err
	}
	if hasLock {
		lk := &FlockRecord{}
		lockType, err := xdr.DecodeInt32(r)
		if err != nil {
			return nil, err
		}
		lk.Type = lockType
		if lk.Start, err = decodeInt64(r); err != nil {
			return nil, err
		}
		if lk.Len, err = decodeInt64(r); err != nil {
			return nil, err
		}
		pid, err := xdr.DecodeInt32(r)
		if err != nil {
			return nil, err
		}
		lk.PID = pid
		errno, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, err
		}
		lk.ErrNo = fusexerr.Errno(errno)
		req.Lock = lk
	}

	if req.ClientClock, err = decodeInt64(r); err != nil {
		return nil, err
	}
	if req.AppTag, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	return req, nil
}

// decodeInt64 reads a big-endian signed 64-bit integer; the shared xdr
// package only exposes a 32-bit signed decoder, so the 64-bit case is
// implemented locally with the same convention.
func decodeInt64(r io.Reader) (int64, error) {
	var v int64
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read int64: %w", err)
	}
	return v, nil
}
