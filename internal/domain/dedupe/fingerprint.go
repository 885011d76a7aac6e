package dedupe

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"

	"github.com/nexeed/teamforge/internal/domain/model"
)

// Fingerprint hashes every field of req that influences the matching result.
// Identical requests, including person order, share a fingerprint.
func Fingerprint(req model.Request) uint64 {
	buf := make([]byte, 0, 64+len(req.People)*96)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(req.TeamSize))
	for _, c := range req.Required {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(c))
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(req.People)))
	for _, p := range req.People {
		buf = appendString(buf, p.ID)
		buf = appendString(buf, p.Name)
		buf = appendString(buf, p.Major)
		buf = appendString(buf, p.Availability)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(p.Role.Normalize()))
		for _, v := range p.Traits() {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return xxh3.Hash(buf)
}

// appendString writes a length-prefixed string so adjacent fields cannot collide.
func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}
