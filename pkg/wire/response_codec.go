package wire

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fusexd/metacore/internal/protocol/xdr"
	"github.com/fusexd/metacore/pkg/fusexerr"
)

// EncodeResponse serializes resp, tagged by its Type field.
func EncodeResponse(resp *Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := xdr.WriteUint32(buf, uint32(resp.Type)); err != nil {
		return nil, err
	}
	switch resp.Type {
	case RespAck:
		if err := encodeAck(buf, resp.Ack); err != nil {
			return nil, err
		}
	case RespMD:
		if err := encodeMD(buf, resp.MD); err != nil {
			return nil, err
		}
	case RespMDLS:
		if err := xdr.WriteUint32(buf, uint32(len(resp.MDList))); err != nil {
			return nil, err
		}
		for i := range resp.MDList {
			if err := encodeMD(buf, &resp.MDList[i]); err != nil {
				return nil, err
			}
		}
	case RespMDMap:
		if err := xdr.WriteUint32(buf, uint32(len(resp.MDMap))); err != nil {
			return nil, err
		}
		for name, md := range resp.MDMap {
			if err := xdr.WriteXDRString(buf, name); err != nil {
				return nil, err
			}
			md := md
			if err := encodeMD(buf, &md); err != nil {
				return nil, err
			}
		}
	case RespLock:
		if err := encodeLock(buf, resp.Lock); err != nil {
			return nil, err
		}
	case RespNone:
	default:
		return nil, fmt.Errorf("unknown response type %d", resp.Type)
	}
	return buf.Bytes(), nil
}

// DecodeResponse deserializes a Response from the format EncodeResponse
// produces.
func DecodeResponse(data []byte) (*Response, error) {
	r := bytes.NewReader(data)
	rawType, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	resp := &Response{Type: RespType(rawType)}
	switch resp.Type {
	case RespAck:
		resp.Ack, err = decodeAck(r)
	case RespMD:
		resp.MD, err = decodeMD(r)
	case RespMDLS:
		var n uint32
		n, err = xdr.DecodeUint32(r)
		if err != nil {
			return nil, err
		}
		resp.MDList = make([]MD, n)
		for i := uint32(0); i < n; i++ {
			md, derr := decodeMD(r)
			if derr != nil {
				return nil, derr
			}
			resp.MDList[i] = *md
		}
	case RespMDMap:
		var n uint32
		n, err = xdr.DecodeUint32(r)
		if err != nil {
			return nil, err
		}
		resp.MDMap = make(map[string]MD, n)
		for i := uint32(0); i < n; i++ {
			name, nerr := xdr.DecodeString(r)
			if nerr != nil {
				return nil, nerr
			}
			md, derr := decodeMD(r)
			if derr != nil {
				return nil, derr
			}
			resp.MDMap[name] = *md
		}
	case RespLock:
		resp.Lock, err = decodeLock(r)
	case RespNone:
	default:
		return nil, fmt.Errorf("unknown response type %d", resp.Type)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func encodeAck(buf *bytes.Buffer, a *Ack) error {
	if err := xdr.WriteUint32(buf, uint32(a.Code)); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, uint32(a.ErrNo)); err != nil {
		return err
	}
	if err := xdr.WriteXDRString(buf, a.ErrMsg); err != nil {
		return err
	}
	if err := xdr.WriteXDRString(buf, a.TransactionID); err != nil {
		return err
	}
	return xdr.WriteUint64(buf, a.MDIno)
}

func decodeAckLike(r *bytes.Reader) (AckCode, fusexerr.Errno, string, string, uint64, error) {
	code, err := xdr.DecodeUint32(r)
	if err != nil {
		return 0, 0, "", "", 0, err
	}
	errno, err := xdr.DecodeUint32(r)
	if err != nil {
		return 0, 0, "", "", 0, err
	}
	msg, err := xdr.DecodeString(r)
	if err != nil {
		return 0, 0, "", "", 0, err
	}
	txn, err := xdr.DecodeString(r)
	if err != nil {
		return 0, 0, "", "", 0, err
	}
	mdino, err := xdr.DecodeUint64(r)
	if err != nil {
		return 0, 0, "", "", 0, err
	}
	return AckCode(code), fusexerr.Errno(errno), msg, txn, mdino, nil
}

func decodeAck(r *bytes.Reader) (*Ack, error) {
	code, errno, msg, txn, mdino, err := decodeAckLike(r)
	if err != nil {
		return nil, err
	}
	return &Ack{Code: code, ErrNo: errno, ErrMsg: msg, TransactionID: txn, MDIno: mdino}, nil
}

func encodeMD(buf *bytes.Buffer, md *MD) error {
	if err := xdr.WriteUint64(buf, md.Inode); err != nil {
		return err
	}
	if err := xdr.WriteUint64(buf, md.ParentInode); err != nil {
		return err
	}
	if err := xdr.WriteXDRString(buf, md.Name); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, md.Mode); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, md.UID); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, md.GID); err != nil {
		return err
	}
	if err := xdr.WriteUint64(buf, md.Size); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, md.Nlink); err != nil {
		return err
	}
	for _, t := range []time.Time{md.Mtime, md.Ctime, md.Btime} {
		if err := xdr.WriteInt64(buf, t.Unix()); err != nil {
			return err
		}
	}
	if err := xdr.WriteXDRString(buf, md.Target); err != nil {
		return err
	}
	if err := xdr.WriteInt64(buf, md.Clock); err != nil {
		return err
	}
	if err := xdr.WriteBool(buf, md.Cap != nil); err != nil {
		return err
	}
	if md.Cap != nil {
		return encodeCapBody(buf, md.Cap)
	}
	return nil
}

func decodeMD(r *bytes.Reader) (*MD, error) {
	md := &MD{}
	var err error
	if md.Inode, err = xdr.DecodeUint64(r); err != nil {
		return nil, err
	}
	if md.ParentInode, err = xdr.DecodeUint64(r); err != nil {
		return nil, err
	}
	if md.Name, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	if md.Mode, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if md.UID, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if md.GID, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if md.Size, err = xdr.DecodeUint64(r); err != nil {
		return nil, err
	}
	if md.Nlink, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	mtime, err := decodeInt64(r)
	if err != nil {
		return nil, err
	}
	ctime, err := decodeInt64(r)
	if err != nil {
		return nil, err
	}
	btime, err := decodeInt64(r)
	if err != nil {
		return nil, err
	}
	md.Mtime = time.Unix(mtime, 0).UTC()
	md.Ctime = time.Unix(ctime, 0).UTC()
	md.Btime = time.Unix(btime, 0).UTC()
	if md.Target, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	if md.Clock, err = decodeInt64(r); err != nil {
		return nil, err
	}
	hasCap, err := xdr.DecodeBool(r)
	if err != nil {
		return nil, err
	}
	if hasCap {
		cb, err := decodeCapBody(r)
		if err != nil {
			return nil, err
		}
		md.Cap = cb
	}
	return md, nil
}

func encodeCapBody(buf *bytes.Buffer, c *CapBody) error {
	if err := xdr.WriteXDRString(buf, c.AuthID); err != nil {
		return err
	}
	if err := xdr.WriteUint64(buf, c.Inode); err != nil {
		return err
	}
	if err := xdr.WriteXDRString(buf, c.ClientID); err != nil {
		return err
	}
	if err := xdr.WriteXDRString(buf, c.ClientUUID); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, c.UID); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, c.GID); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, c.Mode); err != nil {
		return err
	}
	if err := xdr.WriteInt64(buf, c.Vtime); err != nil {
		return err
	}
	return xdr.WriteUint64(buf, c.MaxFileSize)
}

func decodeCapBody(r *bytes.Reader) (*CapBody, error) {
	c := &CapBody{}
	var err error
	if c.AuthID, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	if c.Inode, err = xdr.DecodeUint64(r); err != nil {
		return nil, err
	}
	if c.ClientID, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	if c.ClientUUID, err = xdr.DecodeString(r); err != nil {
		return nil, err
	}
	if c.UID, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if c.GID, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if c.Mode, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if c.Vtime, err = decodeInt64(r); err != nil {
		return nil, err
	}
	if c.MaxFileSize, err = xdr.DecodeUint64(r); err != nil {
		return nil, err
	}
	return c, nil
}

func encodeLock(buf *bytes.Buffer, lk *FlockRecord) error {
	if err := xdr.WriteInt32(buf, lk.Type); err != nil {
		return err
	}
	if err := xdr.WriteInt64(buf, lk.Start); err != nil {
		return err
	}
	if err := xdr.WriteInt64(buf, lk.Len); err != nil {
		return err
	}
	if err := xdr.WriteInt32(buf, lk.PID); err != nil {
		return err
	}
	return xdr.WriteUint32(buf, uint32(lk.ErrNo))
}

func decodeLock(r *bytes.Reader) (*FlockRecord, error) {
	lk := &FlockRecord{}
	var err error
	if lk.Type, err = xdr.DecodeInt32(r); err != nil {
		return nil, err
	}
	if lk.Start, err = decodeInt64(r); err != nil {
		return nil, err
	}
	if lk.Len, err = decodeInt64(r); err != nil {
		return nil, err
	}
	if lk.PID, err = xdr.DecodeInt32(r); err != nil {
		return nil, err
	}
	errno, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	lk.ErrNo = fusexerr.Errno(errno)
	return lk, nil
}
