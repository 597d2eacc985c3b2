// Package stl reads triangle meshes in the ASCII and binary STL formats,
// enough to verify what the renderer wrote.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Point is a vertex in millimetres.
type Point struct {
	X, Y, Z float64
}

// Mesh summarizes a parsed STL file.
type Mesh struct {
	Name      string
	Triangles int
	Min, Max  Point

	vertices int
}

// Size returns the extent of the bounding box.
func (m *Mesh) Size() Point {
	if m.Triangles == 0 {
		return Point{}
	}
	return Point{m.Max.X - m.Min.X, m.Max.Y - m.Min.Y, m.Max.Z - m.Min.Z}
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool { return m.Triangles == 0 }

func (m *Mesh) add(p Point) {
	if m.vertices == 0 {
		m.Min, m.Max = p, p
	}
	m.vertices++
	m.Min = Point{math.Min(m.Min.X, p.X), math.Min(m.Min.Y, p.Y), math.Min(m.Min.Z, p.Z)}
	m.Max = Point{math.Max(m.Max.X, p.X), math.Max(m.Max.Y, p.Y), math.Max(m.Max.Z, p.Z)}
}

const (
	headerSize   = 80
	triangleSize = 50
)

var ErrMalformed = errors.New("malformed stl")

// Parse reads an STL mesh, detecting the encoding.
func Parse(r io.Reader) (*Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if isBinary(data) {
		return parseBinary(data)
	}
	return parseASCII(data)
}

// ParseFile is Parse for a path.
func ParseFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// isBinary decides by size: binary files declare their triangle count and
// must match it exactly. Binary headers may themselves start with "solid".
func isBinary(data []byte) bool {
	if len(data) < headerSize+4 {
		return false
	}
	n := binary.LittleEndian.Uint32(data[headerSize:])
	return uint64(len(data)) == uint64(headerSize+4)+uint64(n)*triangleSize
}

func parseBinary(data []byte) (*Mesh, error) {
	n := int(binary.LittleEndian.Uint32(data[headerSize:]))
	m := &Mesh{Name: strings.TrimRight(string(data[:headerSize]), "\x00 ")}
	off := headerSize + 4
	for i := 0; i < n; i++ {
		t := data[off : off+triangleSize]
		// Skip the 12 byte normal; read three vertices.
		for v := 0; v < 3; v++ {
			base := 12 + v*12
			m.add(Point{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(t[base:]))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(t[base+4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(t[base+8:]))),
			})
		}
		m.Triangles++
		off += triangleSize
	}
	return m, nil
}

func parseASCII(data []byte) (*Mesh, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	m := &Mesh{}
	started, vertices := false, 0
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid":
			started = true
			m.Name = strings.Join(fields[1:], " ")
		case "vertex":
			if len(fields) != 4 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrMalformed, line)
			}
			var p [3]float64
			for i := range p {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
				}
				p[i] = v
			}
			m.add(Point{p[0], p[1], p[2]})
			vertices++
		case "endfacet":
			if vertices != 3 {
				return nil, fmt.Errorf("%w: line %d: facet has %d vertices", ErrMalformed, line, vertices)
			}
			m.Triangles++
			vertices = 0
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !started {
		return nil, fmt.Errorf("%w: missing solid header", ErrMalformed)
	}
	return m, nil
}
