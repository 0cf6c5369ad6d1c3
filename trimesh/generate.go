// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package trimesh

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
)

const (
	defaultEps = 1e-12
)

type HullOptions struct {
	Eps float64
}

type HullOption func(*HullOptions) error

func WithEps(eps float64) HullOption {
	return func(o *HullOptions) error {
		if eps <= 0 {
			return fmt.Errorf("WithEps: eps must be positive, got %v", eps)
		}
		o.Eps = eps
		return nil
	}
}

// NewConvexHull triangulates the convex hull of points. Faces are oriented
// outward. Points strictly inside the hull stay in Vertices unreferenced.
func NewConvexHull(points []r3.Vector, setters ...HullOption) (*Mesh, error) {
	opts := HullOptions{
		Eps: defaultEps,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}

	numVertices := len(points)
	if numVertices < 4 {
		return nil, ErrInsufficientVertices
	}

	qh := new(quickhull.QuickHull)
	ch := qh.ConvexHull(points, true, true, opts.Eps)
	if len(ch.Indices) == 0 || len(ch.Indices)%3 != 0 {
		return nil, errors.New("trimesh: inconsistent number of indices returned from QuickHull")
	}

	var center r3.Vector
	for _, p := range points {
		center = center.Add(p)
	}
	center = center.Mul(1 / float64(numVertices))

	numFaces := len(ch.Indices) / 3
	faces := make([][3]int, numFaces)
	for i := range numFaces {
		base := i * 3
		faces[i] = [3]int{ch.Indices[base], ch.Indices[base+1], ch.Indices[base+2]}
		sortFaceVerticesCCW(&faces[i], points, center)
	}

	return New(points, faces)
}

// NewGrid returns an nx by ny grid of unit cells scaled by size in the z=0
// plane, two faces per cell, normals along +z.
func NewGrid(nx, ny int, size float64) (*Mesh, error) {
	return NewHeightField(nx, ny, size, func(float64, float64) float64 { return 0 })
}

// NewHeightField is NewGrid with every vertex lifted to z = height(x, y).
func NewHeightField(nx, ny int, size float64, height func(x, y float64) float64) (*Mesh, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("trimesh: grid needs at least one cell per axis, got %dx%d", nx, ny)
	}
	if size <= 0 {
		return nil, fmt.Errorf("trimesh: grid size must be positive, got %v", size)
	}

	vertices := make([]r3.Vector, 0, (nx+1)*(ny+1))
	for j := range ny + 1 {
		for i := range nx + 1 {
			x := float64(i) * size
			y := float64(j) * size
			vertices = append(vertices, r3.Vector{X: x, Y: y, Z: height(x, y)})
		}
	}

	idx := func(i, j int) int { return j*(nx+1) + i }
	faces := make([][3]int, 0, 2*nx*ny)
	for j := range ny {
		for i := range nx {
			faces = append(faces,
				[3]int{idx(i, j), idx(i+1, j), idx(i+1, j+1)},
				[3]int{idx(i, j), idx(i+1, j+1), idx(i, j+1)},
			)
		}
	}

	return New(vertices, faces)
}

func sortFaceVerticesCCW(t *[3]int, v []r3.Vector, center r3.Vector) {
	p0, p1, p2 := v[t[0]], v[t[1]], v[t[2]]
	norm := p1.Sub(p0).Cross(p2.Sub(p0))
	if norm.Dot(p0.Sub(center)) < 0 {
		t[1], t[2] = t[2], t[1]
	}
}
