package m3u8

/*
 This file resolves EXT-X-DEFINE variables: it parses the VALUE,
 QUERYPARAM, and IMPORT forms into a scope, then substitutes
 {$name} references across the rest of the lexed playlist.
*/

import (
	"net/url"
	"strings"
)

// DefineKind distinguishes the three EXT-X-DEFINE forms (spec §4.B).
type DefineKind int

const (
	DefineValue DefineKind = iota
	DefineQueryParam
	DefineImport
)

// Define is a parsed EXT-X-DEFINE tag.
type Define struct {
	Name  string
	Kind  DefineKind
	Value string // only meaningful for DefineValue; for QUERYPARAM/IMPORT it is filled in by Resolve*
}

// VariableScope is the set of name→value bindings in effect for a
// playlist, built in source order from its EXT-X-DEFINE tags.
type VariableScope struct {
	values map[string]string
}

// NewVariableScope creates an empty scope.
func NewVariableScope() *VariableScope {
	return &VariableScope{values: make(map[string]string)}
}

// ParseDefine extracts NAME/VALUE/QUERYPARAM/IMPORT out of a raw
// EXT-X-DEFINE tag.
func ParseDefine(tag *Tag) Define {
	if tag.Attrs == nil {
		return Define{}
	}
	if v, ok := tag.Attrs.Raw("NAME"); ok {
		return Define{Name: deQuote(v), Kind: DefineValue, Value: tag.Attrs.String("VALUE")}
	}
	if v, ok := tag.Attrs.Raw("QUERYPARAM"); ok {
		return Define{Name: deQuote(v), Kind: DefineQueryParam}
	}
	if v, ok := tag.Attrs.Raw("IMPORT"); ok {
		return Define{Name: deQuote(v), Kind: DefineImport}
	}
	return Define{}
}

// BuildVariableScope walks a playlist's EXT-X-DEFINE tags in source
// order and produces the VariableScope in effect for the rest of that
// playlist. playlistURI is used to resolve QUERYPARAM definitions;
// parent (nil for a master playlist, or the master's scope when building
// a media-scope playlist) resolves IMPORT definitions. Unknown variable
// references later expand to the empty string (spec §4.B: "a strict
// implementation may instead report a warning and proceed" — this
// implementation takes the lenient path; nothing reports the unknown
// names).
func BuildVariableScope(tags []*Tag, playlistURI string, parent *VariableScope) *VariableScope {
	scope := NewVariableScope()
	var query url.Values
	for _, tag := range tags {
		if tag.Name != "EXT-X-DEFINE" {
			continue
		}
		d := ParseDefine(tag)
		if d.Name == "" {
			continue
		}
		switch d.Kind {
		case DefineValue:
			scope.values[d.Name] = d.Value
		case DefineQueryParam:
			if query == nil {
				if u, err := url.Parse(playlistURI); err == nil {
					query = u.Query()
				} else {
					query = url.Values{}
				}
			}
			scope.values[d.Name] = query.Get(d.Name)
		case DefineImport:
			if parent != nil {
				if v, ok := parent.values[d.Name]; ok {
					scope.values[d.Name] = v
				}
			}
		}
	}
	return scope
}

// Resolve expands every {$NAME} reference in s. Unknown names expand to
// the empty string.
func (v *VariableScope) Resolve(s string) string {
	if v == nil || !strings.Contains(s, "{$") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for {
		start := strings.Index(s, "{$")
		if start == -1 {
			b.WriteString(s)
			break
		}
		end := strings.IndexByte(s[start:], '}')
		if end == -1 {
			b.WriteString(s)
			break
		}
		end += start
		b.WriteString(s[:start])
		name := s[start+2 : end]
		b.WriteString(v.values[name])
		s = s[end+1:]
	}
	return b.String()
}

// ResolveTag expands variable references in a tag's resolvable
// attributes and bare value, returning a new Tag (the source
// Tag is left untouched so the raw lexed playlist remains inspectable).
// Only URI-shaped attributes and the tag's bare value are substituted —
// per spec §4.B, substitution applies to "URIs and select attributes",
// not every attribute.
var substitutableAttrs = map[string]bool{
	"URI": true,
}

func (v *VariableScope) ResolveTag(tag *Tag) *Tag {
	out := &Tag{ID: tag.ID, Name: tag.Name, Value: v.Resolve(tag.Value)}
	if tag.Attrs == nil {
		return out
	}
	resolved := &AttrList{keys: append([]string(nil), tag.Attrs.keys...), vals: make(map[string]string, len(tag.Attrs.vals))}
	for k, val := range tag.Attrs.vals {
		if substitutableAttrs[k] {
			quoted := len(val) >= 2 && val[0] == '"'
			expanded := v.Resolve(deQuote(val))
			if quoted {
				resolved.vals[k] = `"` + expanded + `"`
			} else {
				resolved.vals[k] = expanded
			}
		} else {
			resolved.vals[k] = val
		}
	}
	out.Attrs = resolved
	return out
}

// ResolvePlaylist returns a copy of p with every Tag's URI/value
// variable references expanded against scope.
func ResolvePlaylist(p *Playlist, scope *VariableScope) *Playlist {
	resolvedByID := make(map[uint64]*Tag, len(p.Tags))
	out := &Playlist{Type: p.Type}
	out.Tags = make([]*Tag, len(p.Tags))
	for i, t := range p.Tags {
		rt := scope.ResolveTag(t)
		out.Tags[i] = rt
		resolvedByID[t.ID] = rt
	}
	out.Segments = make([]*Segment, len(p.Segments))
	for i, seg := range p.Segments {
		rs := &Segment{URI: scope.Resolve(seg.URI)}
		rs.Tags = make([]*Tag, len(seg.Tags))
		for j, t := range seg.Tags {
			rs.Tags[j] = resolvedByID[t.ID]
		}
		out.Segments[i] = rs
	}
	return out
}
