package drm

import (
	"crypto/sha256"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/mogiioin/hls-manifest/hlserrors"
	"github.com/mogiioin/hls-manifest/m3u8"
	"github.com/mogiioin/hls-manifest/segment"
)

// BuildAESKey consumes an AES-128/256/256-CTR EXT-X-KEY tag into the
// segment factory's AESKey descriptor. fetchKey is deferred: it is only
// invoked the first time the factory actually needs key bytes (spec
// Design Notes, "AES key fetch callbacks... become a small key-descriptor
// with a deferred-fetch closure").
func BuildAESKey(tag *m3u8.Tag, mediaSequenceNumber uint64, fetchKey func() ([]byte, error)) (*segment.AESKey, error) {
	method := Method(tag.Attrs.String("METHOD"))
	var bits int
	var mode string
	switch method {
	case MethodAES128:
		bits, mode = 128, "CBC"
	case MethodAES256:
		bits, mode = 256, "CBC"
	case MethodAES256CTR:
		bits, mode = 256, "CTR"
	default:
		return nil, hlserrors.New(hlserrors.KeyformatsNotSupported, "BuildAESKey called with non-AES method %q", method)
	}

	iv := defaultIV(mediaSequenceNumber)
	if rawIV, ok := tag.Attrs.Hex("IV"); ok {
		if len(rawIV) != 16 {
			return nil, hlserrors.New(hlserrors.AES128InvalidIVLength, "EXT-X-KEY IV must be 16 bytes, got %d", len(rawIV))
		}
		iv = rawIV
	}

	wantLen := bits / 8
	var mu sync.Mutex
	var cached []byte
	wrapped := func() ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		if cached != nil {
			return cached, nil
		}
		key, err := fetchKey()
		if err != nil {
			return nil, err
		}
		if len(key) == wantLen {
			cached = key
			return key, nil
		}
		// A key server that returns material of an unexpected length
		// (e.g. a 20-byte HMAC secret behind AES-128) is normalized via
		// HKDF-Expand rather than rejected outright.
		normalized := make([]byte, wantLen)
		kdf := hkdf.New(sha256.New, key, nil, []byte("hls-aes-key"))
		if _, err := io.ReadFull(kdf, normalized); err != nil {
			return nil, hlserrors.New(hlserrors.AES128InvalidKeyLength, "failed to normalize key material: %v", err)
		}
		cached = normalized
		return normalized, nil
	}

	return &segment.AESKey{
		BitsKey:               bits,
		BlockCipherMode:       mode,
		IV:                    iv,
		FirstMediaSequenceNum: mediaSequenceNumber,
		FetchKey:              wrapped,
	}, nil
}
