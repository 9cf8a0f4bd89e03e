package segment

import (
	"github.com/mogiioin/hls-manifest/m3u8"
)

// buildInitRef resolves an EXT-X-MAP tag into a cached InitSegmentReference
// (component D). The byte range comes only from the MAP tag's own
// BYTERANGE attribute; an EXT-X-BYTERANGE tag preceding the MAP tag is
// not consulted.
func buildInitRef(mapTag *m3u8.Tag, ctx *BuildContext, cache *Cache) (*InitSegmentReference, error) {
	uri := mapTag.Attrs.String("URI")
	if ctx.ResolveURI != nil {
		uri = ctx.ResolveURI(uri)
	}

	var startByte int64
	var endByte *int64
	if br, ok := mapTag.Attrs.Raw("BYTERANGE"); ok {
		start, end, err := parsePartByterange(deQuoted(br))
		if err != nil {
			return nil, err
		}
		startByte, endByte = start, end
	}

	return cache.GetOrCreate(uri, startByte, endByte, func() *InitSegmentReference {
		ref := &InitSegmentReference{
			URI:       uri,
			StartByte: startByte,
			EndByte:   endByte,
		}
		if ctx.AESKey != nil {
			ref.AESKey = ctx.AESKey
			ref.Encrypted = true
			if endByte != nil {
				// AES-encrypted init segments fetched via HTTP Range: the
				// range gives the unencrypted size, so round the byte
				// length up to a 16-byte multiple (spec §4.D).
				length := *endByte - startByte + 1
				if rem := length % 16; rem != 0 {
					length += 16 - rem
				}
				rounded := startByte + length - 1
				ref.EndByte = &rounded
			}
		}
		return ref
	}), nil
}

func deQuoted(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
