// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package utils provides utility functions for generating point clouds used to build test meshes.

package utils

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// GenerateRandomPoints generates random points on the unit sphere.
// The seed parameter ensures reproducibility.
func GenerateRandomPoints(cnt int, seed int64) []r3.Vector {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	points := make([]r3.Vector, cnt)

	for i := range cnt {
		points[i] = s2.PointFromLatLng(s2.LatLng{
			Lat: s1.Angle((random.Float64() - 0.5) * math.Pi),
			Lng: s1.Angle((random.Float64()*2 - 1) * math.Pi),
		}).Vector
	}

	return points
}

// GenerateEllipsoidPoints generates random points on the axis-aligned ellipsoid with
// semi-axes a, b and c. The seed parameter ensures reproducibility.
func GenerateEllipsoidPoints(cnt int, seed int64, a, b, c float64) []r3.Vector {
	points := GenerateRandomPoints(cnt, seed)
	for i, p := range points {
		points[i] = r3.Vector{X: p.X * a, Y: p.Y * b, Z: p.Z * c}
	}
	return points
}
