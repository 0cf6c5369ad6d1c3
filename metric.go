// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package vsa

import (
	"github.com/2dChan/vsa/trimesh"
	"github.com/golang/geo/r3"
)

// Metric is a distortion functional over mesh faces. Fit returns the shape
// minimizing the sum of Error over faces; Error is finite and non-negative.
type Metric[S any] interface {
	Fit(faces []int) (S, error)
	Error(face int, shape S) float64
}

// Plane is a point on the plane and its unit normal.
type Plane struct {
	Point  r3.Vector
	Normal r3.Vector
}

// Distance returns the signed distance from q to the plane.
func (p Plane) Distance(q r3.Vector) float64 {
	return p.Normal.Dot(q.Sub(p.Point))
}

// Project returns the orthogonal projection of q onto the plane.
func (p Plane) Project(q r3.Vector) r3.Vector {
	return q.Sub(p.Normal.Mul(p.Distance(q)))
}

// L21Metric measures the area-weighted squared deviation of face normals from
// the proxy normal.
type L21Metric struct {
	areas   []float64
	normals []r3.Vector
}

func NewL21Metric(attrs trimesh.FaceAttributes) *L21Metric {
	return &L21Metric{areas: attrs.Areas, normals: attrs.Normals}
}

func (m *L21Metric) Fit(faces []int) (r3.Vector, error) {
	if len(faces) == 0 {
		return r3.Vector{}, ErrEmptyProxy
	}
	return weightedNormal(faces, m.areas, m.normals), nil
}

func (m *L21Metric) Error(face int, shape r3.Vector) float64 {
	return m.areas[face] * m.normals[face].Sub(shape).Norm2()
}

// L2Metric measures the integral of the squared distance of each face to the
// proxy plane.
type L2Metric struct {
	mesh    *trimesh.Mesh
	areas   []float64
	normals []r3.Vector
}

// NewL2Metric takes the attributes of m, as from trimesh.ComputeFaceAttributes.
func NewL2Metric(m *trimesh.Mesh, attrs trimesh.FaceAttributes) *L2Metric {
	return &L2Metric{mesh: m, areas: attrs.Areas, normals: attrs.Normals}
}

func (m *L2Metric) Fit(faces []int) (Plane, error) {
	return fitPlanePCA(m.mesh, faces, m.areas, m.normals)
}

func (m *L2Metric) Error(face int, shape Plane) float64 {
	a, b, c := m.mesh.FaceVertices(face)
	d1, d2, d3 := shape.Distance(a), shape.Distance(b), shape.Distance(c)
	return m.areas[face] / 6 * (d1*d1 + d2*d2 + d3*d3 + d1*d2 + d1*d3 + d2*d3)
}

// CompactMetric measures the area-weighted squared distance of face centroids
// to the proxy center. It favors round, compact proxies.
type CompactMetric struct {
	centers []r3.Vector
	areas   []float64
}

// NewCompactMetric takes precomputed per-face centroids and areas.
func NewCompactMetric(centers []r3.Vector, areas []float64) *CompactMetric {
	return &CompactMetric{centers: centers, areas: areas}
}

func (m *CompactMetric) Fit(faces []int) (r3.Vector, error) {
	if len(faces) == 0 {
		return r3.Vector{}, ErrEmptyProxy
	}
	var center r3.Vector
	var area float64
	for _, f := range faces {
		center = center.Add(m.centers[f].Mul(m.areas[f]))
		area += m.areas[f]
	}
	if area == 0 {
		center = r3.Vector{}
		for _, f := range faces {
			center = center.Add(m.centers[f])
		}
		return center.Mul(1 / float64(len(faces))), nil
	}
	return center.Mul(1 / area), nil
}

func (m *CompactMetric) Error(face int, shape r3.Vector) float64 {
	return m.areas[face] * m.centers[face].Sub(shape).Norm2()
}

// weightedNormal returns the normalized area-weighted normal sum, falling back
// to the normal of the largest face when the sum cancels out.
func weightedNormal(faces []int, areas []float64, normals []r3.Vector) r3.Vector {
	var sum r3.Vector
	largest := faces[0]
	for _, f := range faces {
		sum = sum.Add(normals[f].Mul(areas[f]))
		if areas[f] > areas[largest] {
			largest = f
		}
	}
	if n := sum.Norm(); n > 0 {
		return sum.Mul(1 / n)
	}
	if normals[largest].Norm2() > 0 {
		return normals[largest]
	}
	return r3.Vector{Z: 1}
}
