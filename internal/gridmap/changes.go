package gridmap

import "iter"

// EnableChangeDetection turns recording of touched keys on or off. Keys
// already recorded are kept.
func (g *Grid) EnableChangeDetection(enable bool) { g.useChangeDetection = enable }

// IsChangeDetectionEnabled reports whether touched keys are being recorded.
func (g *Grid) IsChangeDetectionEnabled() bool { return g.useChangeDetection }

// ResetChangeDetection forgets every recorded key.
func (g *Grid) ResetChangeDetection() { g.changedKeys.Clear() }

// NumChangesDetected returns the number of distinct keys touched since the
// last reset.
func (g *Grid) NumChangesDetected() int { return int(g.changedKeys.GetCardinality()) }

// IsKeyChanged reports whether key was touched since the last reset.
func (g *Grid) IsKeyChanged(key Key) bool { return g.changedKeys.Contains(key.packed()) }

// ChangedKeys iterates over the recorded keys in ascending packed order.
func (g *Grid) ChangedKeys() iter.Seq[Key] {
	return func(yield func(Key) bool) {
		g.changedKeys.Iterate(func(v uint32) bool {
			return yield(unpackKey(v))
		})
	}
}

func (g *Grid) markChanged(key Key) {
	if g.useChangeDetection {
		g.changedKeys.Add(key.packed())
	}
}
