package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeShape(t *testing.T) {
	raw, err := Encode(Button{Handle: 3, State: 1, Flags: 272, X: 1.5, Y: 2})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"button","data":{"handle":3,"state":1,"flags":272,"x":1.5,"y":2}}`,
		string(raw))
}

func TestDecodeRestoresConcreteType(t *testing.T) {
	raw, err := Encode(WindowResized{Handle: 9, Width: 1024, Height: 768})
	require.NoError(t, err)
	m, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, KindWindowResized, m.Kind())
	assert.Equal(t, WindowResized{Handle: 9, Width: 1024, Height: 768}, m)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`{"type":"warp","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"key","data":{"state":"down"}}`))
	assert.Error(t, err)

	_, err = Encode(nil)
	assert.Error(t, err)
}
