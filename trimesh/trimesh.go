// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package trimesh implements an indexed triangle mesh with the topology queries
// needed by the shape approximation: incident faces, halfedge adjacency and
// per-face attributes.

package trimesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

var (
	ErrVertexIndex             = errors.New("trimesh: face references a vertex out of range")
	ErrDegenerateFace          = errors.New("trimesh: face repeats a vertex")
	ErrNonManifoldEdge         = errors.New("trimesh: edge shared by more than two faces")
	ErrInconsistentOrientation = errors.New("trimesh: adjacent faces have inconsistent orientation")
	ErrInsufficientVertices    = errors.New("trimesh: insufficient vertices for a convex hull (minimum 4 required)")
)

// Mesh is an indexed triangle mesh. Faces list vertex indices in
// counter-clockwise order when looking against the face normal.
type Mesh struct {
	Vertices []r3.Vector
	Faces    [][3]int
}

// New validates the faces against the vertices and returns the mesh.
func New(vertices []r3.Vector, faces [][3]int) (*Mesh, error) {
	m := &Mesh{
		Vertices: vertices,
		Faces:    make([][3]int, 0, len(faces)),
	}
	for _, f := range faces {
		if _, err := m.AddFace(f[0], f[1], f[2]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Mesh) NumVertices() int {
	return len(m.Vertices)
}

func (m *Mesh) NumFaces() int {
	return len(m.Faces)
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(p r3.Vector) int {
	m.Vertices = append(m.Vertices, p)
	return len(m.Vertices) - 1
}

// AddFace appends the triangle (a, b, c) and returns its index.
func (m *Mesh) AddFace(a, b, c int) (int, error) {
	n := len(m.Vertices)
	for _, v := range [3]int{a, b, c} {
		if v < 0 || v >= n {
			return 0, fmt.Errorf("%w: %d not in [0 %d)", ErrVertexIndex, v, n)
		}
	}
	if a == b || b == c || a == c {
		return 0, fmt.Errorf("%w: (%d %d %d)", ErrDegenerateFace, a, b, c)
	}
	m.Faces = append(m.Faces, [3]int{a, b, c})
	return len(m.Faces) - 1, nil
}

func (m *Mesh) FaceVertices(f int) (r3.Vector, r3.Vector, r3.Vector) {
	if f < 0 || f >= len(m.Faces) {
		panic("FaceVertices: f out of bounds")
	}
	t := m.Faces[f]
	return m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
}

func (m *Mesh) FaceCentroid(f int) r3.Vector {
	a, b, c := m.FaceVertices(f)
	return a.Add(b).Add(c).Mul(1.0 / 3.0)
}

func (m *Mesh) FaceArea(f int) float64 {
	a, b, c := m.FaceVertices(f)
	cross := b.Sub(a).Cross(c.Sub(a))
	return math.Sqrt(cross.Norm2()) / 2
}

// FaceNormal returns the unit normal of the face, or the zero vector for a
// face with zero area.
func (m *Mesh) FaceNormal(f int) r3.Vector {
	a, b, c := m.FaceVertices(f)
	cross := b.Sub(a).Cross(c.Sub(a))
	n := cross.Norm()
	if n == 0 {
		return r3.Vector{}
	}
	return cross.Mul(1 / n)
}

// Area returns the total surface area of the mesh.
func (m *Mesh) Area() float64 {
	var area float64
	for f := range m.Faces {
		area += m.FaceArea(f)
	}
	return area
}

func PrevVertex(t [3]int, vIdx int) int {
	switch vIdx {
	case t[0]:
		return t[2]
	case t[1]:
		return t[0]
	case t[2]:
		return t[1]
	}
	panic("PrevVertex: vIdx not in face")
}

func NextVertex(t [3]int, vIdx int) int {
	switch vIdx {
	case t[0]:
		return t[1]
	case t[1]:
		return t[2]
	case t[2]:
		return t[0]
	}
	panic("NextVertex: vIdx not in face")
}
