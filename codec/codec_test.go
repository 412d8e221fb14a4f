package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type nopCodec struct{}

func (nopCodec) Encode(xml []byte, _ Version) ([]byte, error) { return xml, nil }
func (nopCodec) Decode(frame []byte) ([]byte, bool)           { return frame, true }

func TestRegistry(t *testing.T) {
	t.Cleanup(func() { Register(nil) })

	Register(nil)
	assert.Nil(t, Registered())

	c := nopCodec{}
	Register(c)
	assert.Equal(t, c, Registered())

	Register(nil)
	assert.Nil(t, Registered())
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "mesh", Mesh.String())
	assert.Equal(t, "stream", Stream.String())
	assert.Equal(t, "unknown", Version(0).String())
}
