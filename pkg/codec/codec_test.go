package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiral/roundtable/pkg/codec"
	"github.com/spiral/roundtable/pkg/rerr"
)

type payload struct {
	Name  string `json:"name" msgpack:"name"`
	Count int    `json:"count" msgpack:"count"`
}

func TestRoundTripJSON(t *testing.T) {
	roundTrip(t, codec.JSON)
}

func TestRoundTripMsgpack(t *testing.T) {
	roundTrip(t, codec.Msgpack)
}

func TestRoundTripGob(t *testing.T) {
	roundTrip(t, codec.Gob)
}

func roundTrip(t *testing.T, kind codec.Kind) {
	t.Helper()
	in := payload{Name: "widget", Count: 3}

	b, err := codec.EncodeBytes(kind, in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, codec.DecodeBytes(kind, b, &out))
	assert.Equal(t, in, out)
}

func TestRawPassesBytesThrough(t *testing.T) {
	in := []byte("hello raw")
	b, err := codec.EncodeBytes(codec.Raw, in)
	require.NoError(t, err)
	assert.Equal(t, in, b)

	var out []byte
	require.NoError(t, codec.DecodeBytes(codec.Raw, b, &out))
	assert.Equal(t, in, out)
}

func TestUnknownKindIsCodecError(t *testing.T) {
	_, err := codec.EncodeBytes(codec.Kind(0), payload{})
	require.Error(t, err)
	assert.True(t, rerr.Is(rerr.KindCodec, err))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", codec.JSON.ContentType())
	assert.Equal(t, "application/octet-stream", codec.Msgpack.ContentType())
}
