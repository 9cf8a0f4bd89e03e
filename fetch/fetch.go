// Package fetch defines the request/player abstraction the parser is
// driven through (spec §6, External Interfaces). It has no transport of
// its own: the embedder supplies a Requester, and the parser calls back
// through a PlayerCallbacks implementation.
package fetch

import "context"

// Kind is what is being requested.
type Kind int

const (
	Manifest Kind = iota
	Segment
	Key
)

// AdvancedRequestType refines Kind with the playlist-level role of the
// resource being fetched.
type AdvancedRequestType int

const (
	MasterPlaylist AdvancedRequestType = iota
	MediaPlaylist
	MediaSegment
	InitSegment
)

// Method is the HTTP method the parser requests; the embedder owns retry
// policy and may use a different method if its transport requires it.
type Method string

const (
	MethodGET  Method = "GET"
	MethodHEAD Method = "HEAD"
)

// RetryParameters mirrors the embedder-configurable retry policy the
// parser threads through on every request, without implementing retries
// itself (spec §6: "The embedder owns retry policy").
type RetryParameters struct {
	MaxAttempts  int
	BaseDelay    float64 // seconds
	Backoff      float64 // multiplier
	Fuzz         float64
}

// Range is an optional HTTP byte range.
type Range struct {
	Start int64
	End   *int64 // nil means "to end of resource"
}

// Request is what the parser hands to the Requester.
type Request struct {
	URIs            []string
	Method          Method
	Range           *Range
	Type            AdvancedRequestType
	IsPreload       bool
	RetryParameters RetryParameters
}

// Response is what the Requester returns on success.
type Response struct {
	URI         string // the final URI, after any redirects
	Data        []byte
	Headers     map[string]string
	RedirectURI string // non-empty if a redirect occurred
}

// Requester is implemented by the embedder. It must respect ctx
// cancellation so Parser.Stop can abort in-flight requests promptly.
type Requester interface {
	Request(ctx context.Context, kind Kind, req *Request) (*Response, error)
}

// PlayerCallbacks is the set of callbacks the parser invokes (spec §6).
type PlayerCallbacks interface {
	OnEvent(event string)
	OnError(err error)
	OnManifestUpdated()
	UpdateDuration()
	DisableStream(streamID string)
	NewDrmInfo(streamID string)
	OnMetadata(kind string, startTime, endTime float64, frames [][]byte)
	IsLowLatencyMode() bool
}
