package activity

import (
	"bytes"

	"github.com/goccy/go-json"
)

// ChunkSize is the width of one payload developer field.
const ChunkSize = 200

// marshalPlan serializes p to its compact JSON form. It returns nil when p
// cannot be represented (for example a NaN duration); such files are still
// written and decode through the workout steps instead.
func marshalPlan(p WorkoutPlan) []byte {
	b, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return b
}

func unmarshalPlan(b []byte) (WorkoutPlan, error) {
	var p WorkoutPlan
	err := json.Unmarshal(b, &p)
	return p, err
}

// chunkCount is the number of fields needed for n payload bytes. The final
// chunk always keeps at least one zero byte, so a payload of exactly
// ChunkSize bytes takes two chunks.
func chunkCount(n int) int {
	if n == 0 {
		return 0
	}
	return n/ChunkSize + 1
}

// splitPayload cuts b into chunkCount(len(b)) slices. The final slice is
// shorter than ChunkSize; the encoder pads it with zeros.
func splitPayload(b []byte) [][]byte {
	n := chunkCount(len(b))
	chunks := make([][]byte, n)
	for i := range n {
		lo := min(i*ChunkSize, len(b))
		hi := min(lo+ChunkSize, len(b))
		chunks[i] = b[lo:hi:hi]
	}
	return chunks
}

// joinPayload concatenates chunks in order and trims the zero padding.
// Missing chunks end the payload.
func joinPayload(chunks map[int][]byte) []byte {
	var buf bytes.Buffer
	for i := 0; ; i++ {
		c, ok := chunks[i]
		if !ok {
			break
		}
		buf.Write(c)
	}
	return bytes.TrimRight(buf.Bytes(), "\x00")
}
