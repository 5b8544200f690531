package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/xktconv/pkg/encoding"
)

// STL format errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrInvalidSTLSyntax = errors.New("invalid ASCII STL syntax")
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50
)

// STLTriangle is one facet.
type STLTriangle struct {
	Normal    [3]float32    // Facet normal, may be zero
	Vertices  [3][3]float32 // Counter-clockwise corners
	Attribute uint16        // Attribute byte count (binary only)
}

// STL represents a parsed STL file.
type STL struct {
	Binary    bool
	Name      string // Solid name (ASCII) or header text (binary)
	Triangles []STLTriangle
}

// stlRecord is the on-disk layout of a binary facet.
type stlRecord struct {
	Normal    [3]float32
	Vertices  [3][3]float32
	Attribute uint16
}

// ParseSTL parses binary or ASCII STL data. Binary header text is decoded as
// windows-1252 when it is not valid UTF-8.
func ParseSTL(data []byte) (*STL, error) {
	return ParseSTLCharset(data, encoding.DefaultCharset)
}

// ParseSTLCharset parses STL data, decoding binary header text with charset.
func ParseSTLCharset(data []byte, charset string) (*STL, error) {
	if isBinarySTL(data) {
		return parseBinarySTL(data, charset)
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCIISTL(data)
	}
	return nil, ErrTruncatedSTLData
}

// LoadSTL reads and parses an STL file.
func LoadSTL(path string) (*STL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSTL(data)
}

// isBinarySTL checks whether the triangle count in the header accounts for
// the data. ASCII files also start with "solid", so the size decides.
func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	count := uint64(binary.LittleEndian.Uint32(data[stlHeaderSize:]))
	return uint64(len(data)) == stlHeaderSize+4+count*stlTriangleSize
}

func parseBinarySTL(data []byte, charset string) (*STL, error) {
	stl := &STL{
		Binary: true,
		Name:   encoding.FixedString(data[:stlHeaderSize], charset),
	}

	r := bytes.NewReader(data[stlHeaderSize:])
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ErrTruncatedSTLData
	}

	stl.Triangles = make([]STLTriangle, count)
	for i := range stl.Triangles {
		var rec stlRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: triangle %d", ErrTruncatedSTLData, i)
		}
		stl.Triangles[i] = STLTriangle(rec)
	}
	return stl, nil
}

func parseASCIISTL(data []byte) (*STL, error) {
	stl := &STL{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		line     int
		tri      STLTriangle
		vertices int
		inFacet  bool
	)
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "solid":
			stl.Name = strings.Join(fields[1:], " ")
		case "facet":
			if inFacet {
				return nil, fmt.Errorf("%w: line %d: nested facet", ErrInvalidSTLSyntax, line)
			}
			inFacet, vertices = true, 0
			tri = STLTriangle{}
			if len(fields) >= 5 && strings.EqualFold(fields[1], "normal") {
				n, err := parseFloat3(fields[2:5])
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTLSyntax, line, err)
				}
				tri.Normal = n
			}
		case "vertex":
			if !inFacet || vertices == 3 || len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: unexpected vertex", ErrInvalidSTLSyntax, line)
			}
			v, err := parseFloat3(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTLSyntax, line, err)
			}
			tri.Vertices[vertices] = v
			vertices++
		case "endfacet":
			if !inFacet || vertices != 3 {
				return nil, fmt.Errorf("%w: line %d: facet with %d vertices", ErrInvalidSTLSyntax, line, vertices)
			}
			stl.Triangles = append(stl.Triangles, tri)
			inFacet = false
		case "outer", "endloop":
		case "endsolid":
			return stl, nil
		default:
			return nil, fmt.Errorf("%w: line %d: unknown keyword %q", ErrInvalidSTLSyntax, line, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if inFacet {
		return nil, fmt.Errorf("%w: unterminated facet", ErrTruncatedSTLData)
	}
	return stl, nil
}

func parseFloat3(fields []string) ([3]float32, error) {
	var out [3]float32
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return out, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// WriteBinary writes the STL in binary form.
func (s *STL) WriteBinary(w io.Writer) error {
	header := encoding.PadString(s.Name, stlHeaderSize, encoding.DefaultCharset)
	if _, err := w.Write(header); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.Triangles))); err != nil {
		return err
	}
	for _, t := range s.Triangles {
		if err := binary.Write(w, binary.LittleEndian, stlRecord(t)); err != nil {
			return err
		}
	}
	return nil
}

// Bounds returns the min and max corner over all vertices.
func (s *STL) Bounds() (lo, hi [3]float32) {
	for i, t := range s.Triangles {
		for j, v := range t.Vertices {
			if i == 0 && j == 0 {
				lo, hi = v, v
				continue
			}
			for k := 0; k < 3; k++ {
				lo[k] = min(lo[k], v[k])
				hi[k] = max(hi[k], v[k])
			}
		}
	}
	return lo, hi
}
