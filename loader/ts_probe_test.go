package loader

import (
	"testing"

	"github.com/Comcast/gots/v2/packet"
	"github.com/matryer/is"
)

func syncedPacket(pid uint16) []byte {
	p := make([]byte, packet.PacketSize)
	p[0] = 0x47 // sync byte
	p[1] = byte(pid >> 8 & 0x1f)
	p[2] = byte(pid & 0xff)
	return p
}

func TestProbeTSCollectsDistinctPIDs(t *testing.T) {
	is := is.New(t)
	var buf []byte
	buf = append(buf, syncedPacket(0)...)    // PAT, excluded
	buf = append(buf, syncedPacket(256)...)  // video PID
	buf = append(buf, syncedPacket(257)...)  // audio PID
	buf = append(buf, syncedPacket(256)...)  // repeated, not counted twice

	pids, err := ProbeTS(buf)
	is.NoErr(err)
	is.Equal(len(pids), 2)
}

func TestProbeTSRejectsPartialPacket(t *testing.T) {
	is := is.New(t)
	_, err := ProbeTS(make([]byte, packet.PacketSize+1))
	is.True(err != nil)
}
