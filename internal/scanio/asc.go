// Package scanio reads and writes 2D scans as CloudCompare-compatible ASC
// text files.
package scanio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/gridmap2d/internal/gridmap"
)

// maxLineBytes bounds one ASC line.
const maxLineBytes = 1 << 20

// ReadASC parses whitespace-, comma- or semicolon-separated "x y [z]
// [intensity ...]" lines. Blank lines and lines starting with '#' or "//"
// are skipped; columns after y are ignored.
func ReadASC(r io.Reader) (gridmap.Pointcloud, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var cloud gridmap.Pointcloud
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ',' || r == ';'
		})
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected at least 2 columns, got %d", lineNo, len(fields))
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid x %q: %w", lineNo, fields[0], err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid y %q: %w", lineNo, fields[1], err)
		}
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return nil, fmt.Errorf("line %d: non-finite coordinate", lineNo)
		}
		cloud = append(cloud, gridmap.Point{X: x, Y: y})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scan: %w", err)
	}
	return cloud, nil
}

// ReadASCFile reads a scan from an .asc, .xyz or .txt file.
func ReadASCFile(path string) (gridmap.Pointcloud, error) {
	cleanPath := filepath.Clean(path)
	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".asc", ".xyz", ".txt":
	default:
		return nil, fmt.Errorf("scan file must have .asc, .xyz or .txt extension, got %q", filepath.Ext(cleanPath))
	}
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open scan file: %w", err)
	}
	defer f.Close()

	cloud, err := ReadASC(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return cloud, nil
}

// WriteASC writes cloud with a comment header. Z and intensity columns are
// written as zero so the file opens in tools that expect four columns.
func WriteASC(w io.Writer, cloud gridmap.Pointcloud) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Exported points\n")
	fmt.Fprintf(bw, "# Format: X Y Z Intensity\n")
	for _, p := range cloud {
		fmt.Fprintf(bw, "%.6f %.6f %.6f %d\n", p.X, p.Y, 0.0, 0)
	}
	return bw.Flush()
}

// WriteASCFile writes cloud to path, replacing any existing file.
func WriteASCFile(path string, cloud gridmap.Pointcloud) error {
	if len(cloud) == 0 {
		return fmt.Errorf("no points to export")
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := WriteASC(f, cloud); err != nil {
		f.Close()
		return fmt.Errorf("failed to write scan: %w", err)
	}
	return f.Close()
}
