package gridmap

import (
	"io"
	"log"
)

// logStream selects one of the package's output streams.
type logStream int

const (
	// streamOps carries rejected input: coordinates outside the envelope,
	// degenerate rays, bounding box corners that cannot be keyed.
	streamOps logStream = iota
	// streamDiag carries grid lifecycle events such as construction,
	// batch insert summaries and persisted snapshots.
	streamDiag
	// streamTrace carries one line per traced ray.
	streamTrace
	numStreams
)

var streams [numStreams]*log.Logger

// SetLogWriters configures the ops, diag and trace streams. A nil writer
// disables its stream. Not safe to call while grids are in use.
func SetLogWriters(ops, diag, trace io.Writer) {
	for i, w := range [numStreams]io.Writer{ops, diag, trace} {
		streams[i] = nil
		if w != nil {
			streams[i] = log.New(w, "[gridmap] ", log.LstdFlags|log.Lmicroseconds)
		}
	}
}

func logf(s logStream, format string, args ...interface{}) {
	if l := streams[s]; l != nil {
		l.Printf(format, args...)
	}
}

func opsf(format string, args ...interface{}) { logf(streamOps, format, args...) }
func diagf(format string, args ...interface{}) { logf(streamDiag, format, args...) }
func tracef(format string, args ...interface{}) { logf(streamTrace, format, args...) }

// tracing reports whether per-ray telemetry is enabled, so hot paths can
// skip building arguments.
func tracing() bool { return streams[streamTrace] != nil }
