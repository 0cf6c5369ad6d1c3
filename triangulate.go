// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package vsa

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rclancey/earcut"
)

// region is the outer polygon of a proxy with the polygons of its holes.
type region struct {
	outer []int
	holes [][]int
}

// projectRing maps the polygon into plane coordinates, counter-clockwise
// around the plane normal. The ring is closed.
func projectRing(poly []int, vertices []r3.Vector, plane Plane) orb.Ring {
	u := plane.Normal.Ortho()
	w := plane.Normal.Cross(u)
	ring := make(orb.Ring, 0, len(poly)+1)
	for _, v := range poly {
		d := vertices[v].Sub(plane.Point)
		ring = append(ring, orb.Point{d.Dot(u), d.Dot(w)})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring
}

// groupRegions sorts the polygons of one proxy into outer polygons, which turn
// counter-clockwise around the plane normal, and holes. A hole goes to the
// smallest outer polygon containing it, or to the largest one. Holes of a
// proxy without outer polygons are dropped.
func groupRegions(polys [][]int, vertices []r3.Vector, plane Plane) []region {
	var (
		regions []region
		rings   []orb.Ring
		areas   []float64
		holes   [][]int
	)
	for _, poly := range polys {
		if len(poly) < 3 {
			continue
		}
		ring := projectRing(poly, vertices, plane)
		area := planar.Area(ring)
		if area <= 0 {
			holes = append(holes, poly)
			continue
		}
		regions = append(regions, region{outer: poly})
		rings = append(rings, ring)
		areas = append(areas, area)
	}
	if len(regions) == 0 {
		return nil
	}

	for _, hole := range holes {
		inside := projectRing(hole[:1], vertices, plane)[0]
		best, largest := -1, 0
		for i, ring := range rings {
			if areas[i] > areas[largest] {
				largest = i
			}
			if !planar.RingContains(ring, inside) {
				continue
			}
			if best < 0 || areas[i] < areas[best] {
				best = i
			}
		}
		if best < 0 {
			best = largest
		}
		regions[best].holes = append(regions[best].holes, hole)
	}
	return regions
}

// triangulateRegion triangulates r in plane coordinates. Triangles index
// vertices and turn counter-clockwise around the plane normal.
func triangulateRegion(r region, vertices []r3.Vector, plane Plane) ([][3]int, error) {
	ids := append([]int(nil), r.outer...)
	var holeIndices []int
	for _, hole := range r.holes {
		if len(hole) < 3 {
			continue
		}
		holeIndices = append(holeIndices, len(ids))
		ids = append(ids, hole...)
	}

	ring := projectRing(ids, vertices, plane)
	coords := make([]float64, 0, 2*len(ids))
	for _, p := range ring[:len(ids)] {
		coords = append(coords, p[0], p[1])
	}

	indices, err := earcut.Earcut(coords, holeIndices, 2)
	if err != nil {
		return nil, fmt.Errorf("vsa: triangulate %d-vertex polygon: %w", len(ids), err)
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("vsa: triangulate %d-vertex polygon: %d indices", len(ids), len(indices))
	}

	tris := make([][3]int, 0, len(indices)/3)
	for i := 0; i < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		tri := orb.Ring{ring[a], ring[b], ring[c], ring[a]}
		if tri.Orientation() == orb.CW {
			b, c = c, b
		}
		tris = append(tris, [3]int{ids[a], ids[b], ids[c]})
	}
	return tris, nil
}
