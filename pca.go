// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package vsa

import (
	"github.com/2dChan/vsa/trimesh"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// fitPlanePCA fits the plane minimizing the integrated squared distance over
// the faces. It uses the exact second moment of each triangle,
// A/12 * (a aᵀ + b bᵀ + c cᵀ + s sᵀ) with s = a + b + c.
func fitPlanePCA(m *trimesh.Mesh, faces []int, areas []float64, normals []r3.Vector) (Plane, error) {
	if len(faces) == 0 {
		return Plane{}, ErrEmptyProxy
	}

	var (
		area     float64
		centroid r3.Vector
		moment   [3][3]float64
	)
	for _, f := range faces {
		a, b, c := m.FaceVertices(f)
		s := a.Add(b).Add(c)
		w := areas[f]
		centroid = centroid.Add(s.Mul(w / 3))
		area += w

		pts := [4][3]float64{
			{a.X, a.Y, a.Z},
			{b.X, b.Y, b.Z},
			{c.X, c.Y, c.Z},
			{s.X, s.Y, s.Z},
		}
		for i := range 3 {
			for j := i; j < 3; j++ {
				var sum float64
				for _, p := range pts {
					sum += p[i] * p[j]
				}
				moment[i][j] += w / 12 * sum
			}
		}
	}

	normal := weightedNormal(faces, areas, normals)
	if area == 0 {
		var center r3.Vector
		for _, f := range faces {
			center = center.Add(m.FaceCentroid(f))
		}
		return Plane{Point: center.Mul(1 / float64(len(faces))), Normal: normal}, nil
	}
	centroid = centroid.Mul(1 / area)

	c := [3]float64{centroid.X, centroid.Y, centroid.Z}
	cov := mat.NewSymDense(3, nil)
	for i := range 3 {
		for j := i; j < 3; j++ {
			cov.SetSym(i, j, moment[i][j]-area*c[i]*c[j])
		}
	}

	var es mat.EigenSym
	if !es.Factorize(cov, true) {
		return Plane{Point: centroid, Normal: normal}, nil
	}
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	// Eigenvalues are ascending; the first eigenvector is the plane normal.
	n := r3.Vector{X: vectors.At(0, 0), Y: vectors.At(1, 0), Z: vectors.At(2, 0)}
	if l := n.Norm(); l > 0 {
		n = n.Mul(1 / l)
	} else {
		n = normal
	}
	if n.Dot(normal) < 0 {
		n = n.Mul(-1)
	}
	return Plane{Point: centroid, Normal: n}, nil
}

// fitPlaneNormal returns the plane through the area-weighted centroid with the
// area-weighted normal.
func fitPlaneNormal(faces []int, attrs trimesh.FaceAttributes) (Plane, error) {
	if len(faces) == 0 {
		return Plane{}, ErrEmptyProxy
	}
	var (
		area     float64
		centroid r3.Vector
	)
	for _, f := range faces {
		centroid = centroid.Add(attrs.Centers[f].Mul(attrs.Areas[f]))
		area += attrs.Areas[f]
	}
	if area > 0 {
		centroid = centroid.Mul(1 / area)
	} else {
		centroid = attrs.Centers[faces[0]]
	}
	return Plane{Point: centroid, Normal: weightedNormal(faces, attrs.Areas, attrs.Normals)}, nil
}
