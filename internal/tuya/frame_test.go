package tuya

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte(`{"dps":{"1":true}}`)
	frame := encodeFrame(7, cmdDPQuery, payload)

	got, err := decodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDecodeFrameRejectsCorruption(t *testing.T) {
	frame := encodeFrame(1, cmdDPQuery, []byte("payload"))

	tests := []struct {
		name   string
		mangle func([]byte) []byte
	}{
		{"truncated", func(f []byte) []byte { return f[:10] }},
		{"bad prefix", func(f []byte) []byte { f[0] = 0xff; return f }},
		{"bad crc", func(f []byte) []byte { f[17] ^= 0xff; return f }},
		{"bad suffix", func(f []byte) []byte { f[len(f)-1] = 0x00; return f }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mangled := tt.mangle(append([]byte(nil), frame...))
			_, err := decodeFrame(mangled)
			assert.Error(t, err)
		})
	}
}

func TestEncryptDecryptPayload(t *testing.T) {
	key := []byte("0123456789abcdef")
	plain := []byte(`{"gwId":"bf1","devId":"bf1"}`)

	enc, err := encryptPayload(key, plain)
	require.NoError(t, err)
	require.NotEqual(t, plain, enc)
	require.Zero(t, len(enc)%16)

	dec, err := decryptPayload(key, enc)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plain, dec))
}

func TestDecryptRejectsBadInput(t *testing.T) {
	key := []byte("0123456789abcdef")

	_, err := decryptPayload(key, []byte("short"))
	assert.Error(t, err)

	_, err = encryptPayload([]byte("tooshort"), []byte("x"))
	assert.Error(t, err)
}

func TestReadFrame(t *testing.T) {
	frame := encodeFrame(3, cmdDPQuery, []byte("hello"))

	got, err := readFrame(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}
