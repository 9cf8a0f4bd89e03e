package m3u8

/* Package m3u8 implements the lexer and variable-substitution stage of an
HLS (HTTP Live Streaming) manifest pipeline.

HLS is an evolving protocol with multiple versions. Versions 1-7 are
described in [IETF RFC8216][rfc8216]; the protocol continues to evolve
through a series of Internet Drafts [rfc8216bis].

## Structure and design of the code

Lex reads raw M3U8 text and produces a Playlist: an ordered list of Tags
plus a list of Segments, where each Segment carries the sub-sequence of
Tags that preceded its URI line (or, for a trailing preload-hint-only
entry, no URI at all). Tag IDs are assigned in source order by a single
monotonic counter per Lex call, so downstream packages can resolve
"this KEY precedes this MAP"-style ordering without keeping source
pointers around.

Attribute lists (the part of a tag after the first `=`) are parsed into
an AttrList that keeps key order and exposes typed getters (String, Int,
Float, Hex, Resolution, YesNo) instead of handing callers a bare
map[string]string, so a caller can't typo past a missing value silently.

Lex defers EXT-X-DEFINE substitution: attribute values and URIs are kept
as the literal playlist text until ResolvePlaylist walks the Tags/
Segments and expands {$NAME} references using a VariableScope built from
every EXT-X-DEFINE tag seen, in source order, including QUERYPARAM
definitions read from the playlist's own request URI and IMPORT
definitions pulled from an enclosing master-scope VariableScope.

Playlist re-serialization (Encode) and EXT-X-VERSION inference
(CalcMinVersion) are kept from this package's origins as a read/write
M3U8 library, so a caller that merges or rewrites a playlist (e.g. a
content-steering proxy) can still produce valid M3U8 output.

Library coded against the IETF draft
https://datatracker.ietf.org/doc/html/draft-pantos-hls-rfc8216bis

[rfc8216]: https://tools.ietf.org/html/rfc8216
[rfc8216bis]: https://tools.ietf.org/html/draft-pantos-rfc8216bis
*/
