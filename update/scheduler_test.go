package update

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/mogiioin/hls-manifest/loader"
)

func TestEWMAConvergesTowardConstantSamples(t *testing.T) {
	is := is.New(t)
	e := NewEWMA(5)
	for i := 0; i < 20; i++ {
		e.Sample(100 * time.Millisecond)
	}
	diff := e.Estimate() - 100*time.Millisecond
	if diff < 0 {
		diff = -diff
	}
	is.True(diff < time.Millisecond)
}

func TestEWMAFirstSampleIsTheEstimate(t *testing.T) {
	is := is.New(t)
	e := NewEWMA(5)
	e.Sample(250 * time.Millisecond)
	is.Equal(e.Estimate(), 250*time.Millisecond)
}

func TestDynamicScheduleUsesRetimedDelay(t *testing.T) {
	is := is.New(t)
	sched := newDynamicSchedule(time.Second)
	base := time.Unix(0, 0)
	is.Equal(sched.Next(base), base.Add(time.Second))

	sched.retime(250 * time.Millisecond)
	is.Equal(sched.Next(base), base.Add(250*time.Millisecond))
}

func TestBuildReloadURIAppendsBlockingReloadParams(t *testing.T) {
	is := is.New(t)
	uri, err := buildReloadURI("https://example.com/media.m3u8", &loader.StreamInfo{
		CanBlockReload:    true,
		NextMediaSequence: 42,
		NextPart:          3,
		CanSkipSegments:   true,
	})
	is.NoErr(err)
	is.True(contains(uri, "_HLS_msn=42"))
	is.True(contains(uri, "_HLS_part=3"))
	is.True(contains(uri, "_HLS_skip=YES"))
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
