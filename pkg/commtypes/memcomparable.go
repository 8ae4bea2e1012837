package commtypes

import (
	"encoding/binary"
	"math"
)

const (
	nullTag    = byte(0)
	notNullTag = byte(1)
	// strings are written in groups of 8 bytes followed by a marker byte
	groupSize = 8
)

// AppendMemcomparable appends an encoding of d whose byte order matches
// CompareDatum order. With desc the order is reversed.
func AppendMemcomparable(b []byte, d Datum, desc bool) []byte {
	start := len(b)
	if d == nil {
		b = append(b, nullTag)
	} else {
		b = append(b, notNullTag)
		switch v := d.(type) {
		case int64:
			b = binary.BigEndian.AppendUint64(b, uint64(v)^(1<<63))
		case float64:
			bits := math.Float64bits(v)
			if v >= 0 {
				bits |= 1 << 63
			} else {
				bits = ^bits
			}
			b = binary.BigEndian.AppendUint64(b, bits)
		case bool:
			if v {
				b = append(b, 1)
			} else {
				b = append(b, 0)
			}
		case string:
			b = appendMemcomparableBytes(b, []byte(v))
		default:
			panic("unsupported datum for memcomparable encoding")
		}
	}
	if desc {
		for i := start; i < len(b); i++ {
			b[i] = ^b[i]
		}
	}
	return b
}

func appendMemcomparableBytes(b []byte, data []byte) []byte {
	for {
		if len(data) >= groupSize {
			b = append(b, data[:groupSize]...)
			data = data[groupSize:]
			if len(data) == 0 {
				return append(b, groupSize)
			}
			b = append(b, groupSize+1)
			continue
		}
		b = append(b, data...)
		for i := len(data); i < groupSize; i++ {
			b = append(b, 0)
		}
		return append(b, byte(len(data)))
	}
}

// SerializeRow encodes a row so that concatenated keys sort like rows.
func SerializeRow(row Row) []byte {
	var b []byte
	for _, d := range row {
		b = AppendMemcomparable(b, d, false)
	}
	return b
}
