package tuya

import (
	"bytes"
	"crypto/aes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Local protocol framing: every message is wrapped in a 55aa envelope.
//
//	prefix(4) seq(4) cmd(4) length(4) payload crc32(4) suffix(4)
//
// length counts payload + crc + suffix. For protocol 3.3 and later the
// payload is AES-128-ECB encrypted with the device local key.
const (
	framePrefix = 0x000055aa
	frameSuffix = 0x0000aa55

	cmdDPQuery = 0x0a

	frameOverhead = 8 // crc + suffix
)

func encodeFrame(seq, cmd uint32, payload []byte) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, uint32(framePrefix))
	binary.Write(buf, binary.BigEndian, seq)
	binary.Write(buf, binary.BigEndian, cmd)
	binary.Write(buf, binary.BigEndian, uint32(len(payload)+frameOverhead))
	buf.Write(payload)
	binary.Write(buf, binary.BigEndian, crc32.ChecksumIEEE(buf.Bytes()))
	binary.Write(buf, binary.BigEndian, uint32(frameSuffix))
	return buf.Bytes()
}

// decodeFrame validates the envelope and returns the raw payload. The
// leading 4-byte return code of response payloads is stripped by the caller.
func decodeFrame(data []byte) ([]byte, error) {
	if len(data) < 16+frameOverhead {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	if binary.BigEndian.Uint32(data[0:4]) != framePrefix {
		return nil, fmt.Errorf("bad frame prefix")
	}
	length := binary.BigEndian.Uint32(data[12:16])
	if int(length) != len(data)-16 {
		return nil, fmt.Errorf("frame length mismatch: header %d, actual %d", length, len(data)-16)
	}
	if binary.BigEndian.Uint32(data[len(data)-4:]) != frameSuffix {
		return nil, fmt.Errorf("bad frame suffix")
	}
	crcOffset := len(data) - frameOverhead
	want := binary.BigEndian.Uint32(data[crcOffset : crcOffset+4])
	if got := crc32.ChecksumIEEE(data[:crcOffset]); got != want {
		return nil, fmt.Errorf("frame crc mismatch")
	}
	return data[16:crcOffset], nil
}

func encryptPayload(key, plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("bad local key: %v", err)
	}
	padded := pkcs7Pad(plain, block.BlockSize())
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += block.BlockSize() {
		block.Encrypt(out[i:], padded[i:])
	}
	return out, nil
}

func decryptPayload(key, enc []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("bad local key: %v", err)
	}
	if len(enc) == 0 || len(enc)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("encrypted payload not block aligned: %d bytes", len(enc))
	}
	out := make([]byte, len(enc))
	for i := 0; i < len(enc); i += block.BlockSize() {
		block.Decrypt(out[i:], enc[i:])
	}
	return pkcs7Unpad(out, block.BlockSize())
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	return data[:len(data)-n], nil
}
