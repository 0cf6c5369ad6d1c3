// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package trimesh

import (
	"github.com/golang/geo/r3"
)

// FaceAttributes holds per-face values indexed by face.
type FaceAttributes struct {
	Centers []r3.Vector
	Areas   []float64
	Normals []r3.Vector
}

// ComputeFaceAttributes scans every face of m once.
func ComputeFaceAttributes(m *Mesh) FaceAttributes {
	numFaces := len(m.Faces)
	attrs := FaceAttributes{
		Centers: make([]r3.Vector, numFaces),
		Areas:   make([]float64, numFaces),
		Normals: make([]r3.Vector, numFaces),
	}
	for f := range numFaces {
		attrs.Centers[f] = m.FaceCentroid(f)
		attrs.Areas[f] = m.FaceArea(f)
		attrs.Normals[f] = m.FaceNormal(f)
	}
	return attrs
}
