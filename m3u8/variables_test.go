package m3u8

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestBuildVariableScopeValueAndQueryParam(t *testing.T) {
	is := is.New(t)
	src := `#EXTM3U
#EXT-X-DEFINE:NAME="host",VALUE="cdn.example.com"
#EXT-X-DEFINE:QUERYPARAM="token"
#EXTINF:4.0,
https://{$host}/seg0.ts?auth={$token}
`
	p, err := Lex(strings.NewReader(src))
	is.NoErr(err)

	scope := BuildVariableScope(p.Tags, "https://origin.example.com/index.m3u8?token=abc123", nil)
	resolved := ResolvePlaylist(p, scope)

	is.Equal(resolved.Segments[0].URI, "https://cdn.example.com/seg0.ts?auth=abc123")
	is.Equal(scope.Resolve(p.Segments[0].URI), "https://cdn.example.com/seg0.ts?auth=abc123")
}

func TestVariableScopeImportFromParent(t *testing.T) {
	is := is.New(t)
	parent := NewVariableScope()
	parent.values["host"] = "cdn.example.com"

	src := `#EXTM3U
#EXT-X-DEFINE:IMPORT="host"
#EXTINF:4.0,
seg0.ts
`
	p, err := Lex(strings.NewReader(src))
	is.NoErr(err)
	scope := BuildVariableScope(p.Tags, "media.m3u8", parent)
	is.Equal(scope.values["host"], "cdn.example.com")
}

func TestResolveTagOnlySubstitutesURIAttribute(t *testing.T) {
	is := is.New(t)
	scope := NewVariableScope()
	scope.values["host"] = "cdn.example.com"

	src := `#EXTM3U
#EXT-X-MAP:URI="{$host}/init.mp4",BYTERANGE="500@0"
`
	p, err := Lex(strings.NewReader(src))
	is.NoErr(err)
	tag := p.Tag("EXT-X-MAP")
	resolved := scope.ResolveTag(tag)
	is.Equal(resolved.Attrs.String("URI"), "cdn.example.com/init.mp4")
	is.Equal(resolved.Attrs.String("BYTERANGE"), "500@0") // non-URI attrs pass through untouched
}

func TestResolveUnknownVariableExpandsEmpty(t *testing.T) {
	is := is.New(t)
	scope := NewVariableScope()
	is.Equal(scope.Resolve("{$missing}/seg.ts"), "/seg.ts")
}
