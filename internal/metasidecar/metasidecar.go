// Package metasidecar writes a MessagePack-encoded metadata record
// alongside every frame the write stage emits: the difference metrics
// that made the frame worth keeping, its capture-request lineage, and
// its emission timestamp. A viewer can read the sidecar without
// decoding the PPM pixel data at all.
//
// Grounded on the teacher's use of vmihailenco/msgpack/v5 for
// structured request/response payloads (internal/worker's Python
// worker protocol) — here repurposed from an IPC framing format to a
// small on-disk sidecar file, length-prefix framing included, since
// that's the same wire discipline applied to a file instead of a pipe.
package metasidecar

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Record is the metadata persisted for one written frame.
type Record struct {
	RequestID            uint64    `msgpack:"request_id"`
	DifferenceAbsolute   int64     `msgpack:"difference_absolute"`
	DifferencePercentage float64   `msgpack:"difference_percentage"`
	CapturedAt           time.Time `msgpack:"captured_at"`
	WrittenAt            time.Time `msgpack:"written_at"`
}

// Write encodes rec as MessagePack, framed with a 4-byte big-endian
// length prefix, and writes it to path.
func Write(path string, rec Record) error {
	payload, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("metasidecar: marshaling record: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("metasidecar: creating %q: %w", path, err)
	}
	defer f.Close()

	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], uint32(len(payload)))
	if _, err := f.Write(lengthPrefix[:]); err != nil {
		return fmt.Errorf("metasidecar: writing length prefix: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		return fmt.Errorf("metasidecar: writing payload: %w", err)
	}
	return nil
}

// Read decodes a Record previously written by Write.
func Read(path string) (Record, error) {
	var rec Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("metasidecar: reading %q: %w", path, err)
	}
	if len(data) < 4 {
		return rec, fmt.Errorf("metasidecar: %q is too short to contain a length prefix", path)
	}
	length := binary.BigEndian.Uint32(data[:4])
	if int(length) != len(data)-4 {
		return rec, fmt.Errorf("metasidecar: %q length prefix (%d) does not match payload size (%d)", path, length, len(data)-4)
	}
	if err := msgpack.Unmarshal(data[4:], &rec); err != nil {
		return rec, fmt.Errorf("metasidecar: unmarshaling %q: %w", path, err)
	}
	return rec, nil
}
