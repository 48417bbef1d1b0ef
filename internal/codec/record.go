// Package codec encodes model snapshots in the protobuf wire format of
// netmodel.v1.TrafficModel (api/proto/v1/traffic_model.proto).
package codec

import (
	"errors"
	"fmt"
	"math"

	"Go2NetModel/internal/model"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldID     protowire.Number = 1
	fieldA      protowire.Number = 2
	fieldB      protowire.Number = 3
	fieldSigmaT protowire.Number = 4
	fieldS      protowire.Number = 5
	fieldSigmaS protowire.Number = 6
)

// ErrMalformed is returned for records that cannot be decoded.
var ErrMalformed = errors.New("malformed traffic model record")

// Marshal encodes s. Zero-valued fields are omitted, as proto3 does.
func Marshal(s model.Snapshot) []byte {
	b := make([]byte, 0, len(s.ID)+2+5*9)
	if s.ID != "" {
		b = protowire.AppendTag(b, fieldID, protowire.BytesType)
		b = protowire.AppendString(b, s.ID)
	}
	b = appendDouble(b, fieldA, s.A)
	b = appendDouble(b, fieldB, s.B)
	b = appendDouble(b, fieldSigmaT, s.SigmaT)
	b = appendDouble(b, fieldS, s.S)
	b = appendDouble(b, fieldSigmaS, s.SigmaS)
	return b
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 && !math.Signbit(v) {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// Unmarshal decodes a record. Unknown fields are skipped.
func Unmarshal(data []byte) (model.Snapshot, error) {
	var s model.Snapshot
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return model.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldID && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(data)
			if m < 0 {
				return model.Snapshot{}, fmt.Errorf("%w: id: %v", ErrMalformed, protowire.ParseError(m))
			}
			s.ID = v
			n = m
		case num >= fieldA && num <= fieldSigmaS && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(data)
			if m < 0 {
				return model.Snapshot{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(m))
			}
			*doubleField(&s, num) = math.Float64frombits(v)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return model.Snapshot{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
		}
		data = data[n:]
	}
	return s, nil
}

func doubleField(s *model.Snapshot, num protowire.Number) *float64 {
	switch num {
	case fieldA:
		return &s.A
	case fieldB:
		return &s.B
	case fieldSigmaT:
		return &s.SigmaT
	case fieldS:
		return &s.S
	default:
		return &s.SigmaS
	}
}
