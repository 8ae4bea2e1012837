package state_store

import (
	"github.com/tinylib/msgp/msgp"
	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
)

const (
	VALUE_PUT    byte = 0
	VALUE_DELETE byte = 1 << 0
)

// EncodeValue prefixes the entry value with a one byte put/delete flag.
func EncodeValue(e BatchEntry) []byte {
	if e.IsDelete() {
		return []byte{VALUE_DELETE}
	}
	out := make([]byte, 0, 1+len(e.Value))
	out = append(out, VALUE_PUT)
	return append(out, e.Value...)
}

func DecodeValue(b []byte) (value []byte, isDelete bool, err error) {
	if len(b) == 0 {
		return nil, false, xerrors.Errorf("empty value: %w", common_errors.ErrDecode)
	}
	switch b[0] {
	case VALUE_PUT:
		return b[1:], false, nil
	case VALUE_DELETE:
		return nil, true, nil
	default:
		return nil, false, xerrors.Errorf("unknown value flag %#x: %w", b[0], common_errors.ErrDecode)
	}
}

// MarshalMsg encodes the batch as an array of [key, flagged value] pairs.
func (b *WriteBatch) MarshalMsg(o []byte) ([]byte, error) {
	o = msgp.AppendArrayHeader(o, uint32(len(b.entries)))
	for _, e := range b.entries {
		o = msgp.AppendArrayHeader(o, 2)
		o = msgp.AppendBytes(o, e.Key)
		o = msgp.AppendBytes(o, EncodeValue(e))
	}
	return o, nil
}

func (b *WriteBatch) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return bts, xerrors.Errorf("read batch header: %w", err)
	}
	b.entries = make([]BatchEntry, 0, sz)
	for i := uint32(0); i < sz; i++ {
		var pairSz uint32
		pairSz, bts, err = msgp.ReadArrayHeaderBytes(bts)
		if err != nil {
			return bts, xerrors.Errorf("read entry %d: %w", i, err)
		}
		if pairSz != 2 {
			return bts, xerrors.Errorf("entry %d has %d fields: %w", i, pairSz, common_errors.ErrDecode)
		}
		var key, flagged []byte
		key, bts, err = msgp.ReadBytesBytes(bts, nil)
		if err != nil {
			return bts, xerrors.Errorf("read key %d: %w", i, err)
		}
		flagged, bts, err = msgp.ReadBytesBytes(bts, nil)
		if err != nil {
			return bts, xerrors.Errorf("read value %d: %w", i, err)
		}
		val, isDel, err := DecodeValue(flagged)
		if err != nil {
			return bts, err
		}
		if isDel {
			b.Delete(key)
		} else {
			b.Put(key, val)
		}
	}
	return bts, nil
}
