// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package trimesh

import (
	"fmt"
)

// Topology holds the adjacency of a Mesh. Halfedge h = 3*f + k runs from
// corner k to corner k+1 of face f.
type Topology struct {
	mesh *Mesh

	// NOTE: Opposite halfedge per halfedge, -1 on the mesh border.
	Opposite []int
	// NOTE: Faces incident to each vertex in CSR layout, ascending per vertex.
	IncidentFaceIndices []int
	IncidentFaceOffsets []int
}

// NewTopology builds the adjacency of m. The mesh must be edge-manifold and
// consistently oriented.
func NewTopology(m *Mesh) (*Topology, error) {
	numVertices := len(m.Vertices)
	numFaces := len(m.Faces)
	tp := &Topology{
		mesh:                m,
		Opposite:            make([]int, numFaces*3),
		IncidentFaceIndices: make([]int, numFaces*3),
		IncidentFaceOffsets: make([]int, numVertices+1),
	}

	if err := checkManifoldEdges(m); err != nil {
		return nil, err
	}

	directed := make(map[[2]int]int, numFaces*3)
	for f, t := range m.Faces {
		for k := range 3 {
			key := [2]int{t[k], t[(k+1)%3]}
			if _, ok := directed[key]; ok {
				return nil, fmt.Errorf("%w: edge (%d %d)", ErrInconsistentOrientation, key[0], key[1])
			}
			directed[key] = f*3 + k
		}
	}
	for h := range tp.Opposite {
		t := m.Faces[h/3]
		k := h % 3
		u, v := t[k], t[(k+1)%3]
		o, ok := directed[[2]int{v, u}]
		if !ok {
			tp.Opposite[h] = -1
			continue
		}
		tp.Opposite[h] = o
	}
	for _, t := range m.Faces {
		for _, v := range t {
			tp.IncidentFaceOffsets[v+1]++
		}
	}
	for i := range numVertices {
		tp.IncidentFaceOffsets[i+1] += tp.IncidentFaceOffsets[i]
	}
	nxt := make([]int, numVertices)
	copy(nxt, tp.IncidentFaceOffsets[:numVertices])
	for f, t := range m.Faces {
		for _, v := range t {
			tp.IncidentFaceIndices[nxt[v]] = f
			nxt[v]++
		}
	}

	return tp, nil
}

func checkManifoldEdges(m *Mesh) error {
	count := make(map[[2]int]int, len(m.Faces)*3)
	for _, t := range m.Faces {
		for k := range 3 {
			u, v := t[k], t[(k+1)%3]
			if u > v {
				u, v = v, u
			}
			count[[2]int{u, v}]++
			if count[[2]int{u, v}] > 2 {
				return fmt.Errorf("%w: edge (%d %d)", ErrNonManifoldEdge, u, v)
			}
		}
	}
	return nil
}

func (tp *Topology) Mesh() *Mesh {
	return tp.mesh
}

func (tp *Topology) NumHalfedges() int {
	return len(tp.Opposite)
}

func (tp *Topology) IncidentFaces(vIdx int) []int {
	if vIdx < 0 || vIdx+1 >= len(tp.IncidentFaceOffsets) {
		panic("IncidentFaces: vIdx out of range")
	}
	start := tp.IncidentFaceOffsets[vIdx]
	end := tp.IncidentFaceOffsets[vIdx+1]
	return tp.IncidentFaceIndices[start:end]
}

func HalfedgeFace(h int) int {
	return h / 3
}

func NextHalfedge(h int) int {
	return h - h%3 + (h%3+1)%3
}

func (tp *Topology) Source(h int) int {
	return tp.mesh.Faces[h/3][h%3]
}

func (tp *Topology) Target(h int) int {
	return tp.mesh.Faces[h/3][(h%3+1)%3]
}

func (tp *Topology) IsBorder(h int) bool {
	return tp.Opposite[h] < 0
}

// IsBorderVertex reports whether vIdx lies on a border edge.
func (tp *Topology) IsBorderVertex(vIdx int) bool {
	for _, f := range tp.IncidentFaces(vIdx) {
		t := tp.mesh.Faces[f]
		if tp.IsBorder(faceHalfedge(f, t, vIdx, NextVertex(t, vIdx))) ||
			tp.IsBorder(faceHalfedge(f, t, PrevVertex(t, vIdx), vIdx)) {
			return true
		}
	}
	return false
}

func faceHalfedge(f int, t [3]int, u, v int) int {
	for k := range 3 {
		if t[k] == u && t[(k+1)%3] == v {
			return f*3 + k
		}
	}
	panic("faceHalfedge: edge not in face")
}

// FaceNeighbors returns the faces sharing an edge with f.
func (tp *Topology) FaceNeighbors(f int) []int {
	if f < 0 || f >= len(tp.mesh.Faces) {
		panic("FaceNeighbors: f out of bounds")
	}
	neighbors := make([]int, 0, 3)
	for k := range 3 {
		if o := tp.Opposite[f*3+k]; o >= 0 {
			neighbors = append(neighbors, o/3)
		}
	}
	return neighbors
}
