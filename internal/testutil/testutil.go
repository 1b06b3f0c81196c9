// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"encoding/json"
	"math"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/banshee-data/gridmap2d/internal/gridmap"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AlmostEqual reports whether a and b differ by at most tol.
func AlmostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// TempDBPath returns a path for a fresh SQLite database inside the test's
// temporary directory.
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "gridmap.db")
}

// DecodeJSON decodes a recorded response body into v, failing the test on
// error.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
}

// RingCloud returns n points evenly spaced on a circle of the given radius
// around center, as a range sensor would see a round room.
func RingCloud(n int, radius float64, center gridmap.Point) gridmap.Pointcloud {
	cloud := make(gridmap.Pointcloud, 0, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		cloud = append(cloud, gridmap.Point{
			X: center.X + radius*math.Cos(a),
			Y: center.Y + radius*math.Sin(a),
		})
	}
	return cloud
}

// WallCloud returns n points on the vertical line x = x0 between y0 and y1.
func WallCloud(n int, x0, y0, y1 float64) gridmap.Pointcloud {
	cloud := make(gridmap.Pointcloud, 0, n)
	for i := 0; i < n; i++ {
		frac := 0.0
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		cloud = append(cloud, gridmap.Point{X: x0, Y: y0 + frac*(y1-y0)})
	}
	return cloud
}
