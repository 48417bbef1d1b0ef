package codec

import (
	"testing"

	"Go2NetModel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestMarshal_RoundTrip(t *testing.T) {
	in := model.Snapshot{ID: "/sensor/imu", A: 0.01, B: 3.2, SigmaT: 0.0004, S: 512, SigmaS: 12.5}

	out, err := Unmarshal(Marshal(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMarshal_OmitsZeroFields(t *testing.T) {
	b := Marshal(model.Snapshot{ID: "x", S: 64})

	// id (tag + len + 1 byte) and s (tag + 8 bytes)
	assert.Len(t, b, 3+9)
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	b := Marshal(model.Snapshot{ID: "x", A: 1})
	b = protowire.AppendTag(b, 42, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	b = protowire.AppendTag(b, 43, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	s, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, model.Snapshot{ID: "x", A: 1}, s)
}

func TestUnmarshal_Malformed(t *testing.T) {
	b := Marshal(model.Snapshot{ID: "x", A: 1})

	_, err := Unmarshal(b[:len(b)-3])
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Unmarshal([]byte{0xff})
	assert.ErrorIs(t, err, ErrMalformed)
}
