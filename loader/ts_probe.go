package loader

import (
	"github.com/Comcast/gots/v2/packet"

	"github.com/mogiioin/hls-manifest/hlserrors"
)

// ProbeTS scans an MPEG-TS buffer (a probed first/middle segment, per
// spec §4.F step 7) and returns the set of elementary-stream PIDs seen,
// excluding PID 0 (PAT). This is the "probe the first available segment
// to infer missing... properties" step for video/mp2t renditions that
// carry no container-level codec metadata; full PES/PMT demuxing is out
// of scope for this dispatcher (see DESIGN.md).
func ProbeTS(data []byte) ([]uint16, error) {
	if len(data)%packet.PacketSize != 0 || len(data) == 0 {
		return nil, hlserrors.New(hlserrors.CouldNotGuessCodecs, "probed segment is not a whole number of MPEG-TS packets")
	}

	seen := make(map[uint16]bool)
	var order []uint16
	for i := 0; i+packet.PacketSize <= len(data); i += packet.PacketSize {
		var pkt packet.Packet
		copy(pkt[:], data[i:i+packet.PacketSize])
		pid := pkt.PID()
		if pid == 0 || seen[pid] {
			continue
		}
		seen[pid] = true
		order = append(order, pid)
	}
	if len(order) == 0 {
		return nil, hlserrors.New(hlserrors.CouldNotGuessCodecs, "no elementary-stream PIDs found in probed segment")
	}
	return order, nil
}
