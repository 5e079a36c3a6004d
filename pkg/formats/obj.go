package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/meshsimp/pkg/mesh"
)

// OBJ format errors.
var (
	ErrMalformedOBJ    = errors.New("malformed OBJ")
	ErrMixedNormalRefs = errors.New("OBJ faces mix corners with and without normal references")
	ErrNoFacesOBJ      = errors.New("OBJ contains no faces")
)

const maxOBJLine = 1 << 20

// objCorner is one parsed face corner, already 0-based. normal is -1 when
// the corner has no normal reference.
type objCorner struct {
	vertex int
	normal int
}

// ParseOBJ reads an OBJ mesh. Polygons are fan-triangulated, triangles with
// a repeated vertex are dropped, and the result is validated.
//
// Normals are kept only if every face references them. A file in which no
// face references a normal yields a mesh without normals.
func ParseOBJ(r io.Reader) (*mesh.Mesh, error) {
	m := &mesh.Mesh{}
	var faceNormals []mesh.Face
	withNormals, withoutNormals := 0, 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxOBJLine)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			v, err := parseVec(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: vertex: %v", ErrMalformedOBJ, line, err)
			}
			m.Vertices = append(m.Vertices, v)

		case "vn":
			n, err := parseVec(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: normal: %v", ErrMalformedOBJ, line, err)
			}
			m.Normals = append(m.Normals, n)

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: face needs at least 3 corners", ErrMalformedOBJ, line)
			}
			corners := make([]objCorner, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				c, err := parseCorner(tok, len(m.Vertices), len(m.Normals))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: corner %q: %v", ErrMalformedOBJ, line, tok, err)
				}
				corners = append(corners, c)
			}

			hasNormal := corners[0].normal >= 0
			for _, c := range corners[1:] {
				if (c.normal >= 0) != hasNormal {
					return nil, fmt.Errorf("%w: line %d", ErrMixedNormalRefs, line)
				}
			}

			for i := 1; i+1 < len(corners); i++ {
				a, b, c := corners[0], corners[i], corners[i+1]
				f := mesh.Face{a.vertex, b.vertex, c.vertex}
				if !f.Distinct() {
					continue
				}
				m.Faces = append(m.Faces, f)
				faceNormals = append(faceNormals, mesh.Face{a.normal, b.normal, c.normal})
				if hasNormal {
					withNormals++
				} else {
					withoutNormals++
				}
			}

		default:
			// vt, o, g, s, usemtl, mtllib and friends carry nothing we keep.
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	if len(m.Faces) == 0 {
		return nil, ErrNoFacesOBJ
	}
	switch {
	case withNormals > 0 && withoutNormals > 0:
		return nil, fmt.Errorf("%w: %d faces with normals, %d without",
			ErrMixedNormalRefs, withNormals, withoutNormals)
	case withNormals > 0:
		m.FaceNormals = faceNormals
	default:
		m.Normals = nil
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("parsing OBJ: %w", err)
	}
	return m, nil
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string) (*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ file: %w", err)
	}
	defer f.Close()
	return ParseOBJ(f)
}

func parseVec(fields []string) (r3.Vec, error) {
	if len(fields) < 3 {
		return r3.Vec{}, fmt.Errorf("expected 3 coordinates, got %d", len(fields))
	}
	var c [3]float64
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return r3.Vec{}, err
		}
		c[i] = f
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// parseCorner parses "v", "v/t", "v//n" or "v/t/n". Negative indices count
// back from the elements read so far.
func parseCorner(tok string, nv, nn int) (objCorner, error) {
	parts := strings.Split(tok, "/")
	if len(parts) > 3 {
		return objCorner{}, errors.New("too many components")
	}

	v, err := resolveIndex(parts[0], nv)
	if err != nil {
		return objCorner{}, err
	}
	c := objCorner{vertex: v, normal: -1}

	if len(parts) == 3 && parts[2] != "" {
		n, err := resolveIndex(parts[2], nn)
		if err != nil {
			return objCorner{}, err
		}
		c.normal = n
	}
	return c, nil
}

// resolveIndex converts a 1-based or negative relative OBJ index to 0-based.
// Range checking against the final element counts happens in Validate.
func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0:
		return i - 1, nil
	case i < 0:
		return count + i, nil
	default:
		return 0, errors.New("index 0 is not valid")
	}
}

// WriteOBJ writes m as OBJ text with 1-based indices. Faces are written as
// "f v//n v//n v//n" when the mesh has normals and "f v v v" otherwise.
func WriteOBJ(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 96)

	for _, v := range m.Vertices {
		buf = appendVec(append(buf[:0], 'v'), v)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	for _, n := range m.Normals {
		buf = appendVec(append(buf[:0], 'v', 'n'), n)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}

	withNormals := m.HasNormals() && len(m.FaceNormals) == len(m.Faces)
	for i, f := range m.Faces {
		buf = append(buf[:0], 'f')
		for k := 0; k < 3; k++ {
			buf = append(buf, ' ')
			buf = strconv.AppendInt(buf, int64(f[k]+1), 10)
			if withNormals {
				buf = append(buf, '/', '/')
				buf = strconv.AppendInt(buf, int64(m.FaceNormals[i][k]+1), 10)
			}
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteOBJFile writes m to path, creating or truncating the file.
func WriteOBJFile(path string, m *mesh.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating OBJ file: %w", err)
	}
	if err := WriteOBJ(f, m); err != nil {
		f.Close()
		return fmt.Errorf("writing OBJ file: %w", err)
	}
	return f.Close()
}

func appendVec(buf []byte, v r3.Vec) []byte {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, c, 'g', -1, 64)
	}
	return append(buf, '\n')
}
