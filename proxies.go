// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package vsa

import (
	"fmt"
	"math"
	"slices"

	"github.com/2dChan/vsa/trimesh"
)

// AddToFurthestProxies adds up to n proxies, each seeded at the worst face of
// the proxy with the largest error, then runs relaxations rounds. It returns
// the number of proxies added; proxies with a single face are never split.
func (a *Approximation[S]) AddToFurthestProxies(n, relaxations int) (int, error) {
	if !a.seeded {
		return 0, ErrNotSeeded
	}
	if n < 0 || relaxations < 0 {
		return 0, fmt.Errorf("AddToFurthestProxies: n and relaxations must be non-negative, got %d, %d", n, relaxations)
	}

	var added int
	err := a.atomically(func() error {
		var err error
		if added, err = a.addToFurthest(n); err != nil {
			return err
		}
		return a.relaxAll(relaxations)
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func (a *Approximation[S]) addToFurthest(n int) (int, error) {
	added := 0
	for range n {
		p := a.worstProxy()
		if p < 0 {
			break
		}
		if err := a.newProxy(a.worstFace(a.proxies[p].faces)); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// worstProxy returns the position of the proxy with the largest error among
// proxies with at least two members, or -1.
func (a *Approximation[S]) worstProxy() int {
	best, bestErr := -1, math.Inf(-1)
	for i, p := range a.proxies {
		if len(p.faces) < 2 {
			continue
		}
		if p.err > bestErr {
			best, bestErr = i, p.err
		}
	}
	return best
}

// TeleportProxies moves up to n proxies: the proxy whose merge into a
// neighbor costs the least error is merged away and a new proxy is seeded at
// the worst face of the worst proxy, followed by relaxations rounds. With
// ifTest a teleport that does not lower the total error is undone and
// teleporting stops. It returns the number of proxies teleported.
func (a *Approximation[S]) TeleportProxies(n, relaxations int, ifTest bool) (int, error) {
	if !a.seeded {
		return 0, ErrNotSeeded
	}
	if n < 0 || relaxations < 0 {
		return 0, fmt.Errorf("TeleportProxies: n and relaxations must be non-negative, got %d, %d", n, relaxations)
	}

	teleported := 0
	defer func() {
		if teleported > 0 {
			a.extraction = nil
		}
	}()
	for range n {
		before := a.snapshot()
		ok, err := a.teleport(relaxations)
		if err != nil {
			a.restore(before)
			return teleported, err
		}
		if !ok {
			a.restore(before)
			break
		}
		if ifTest && a.TotalError() >= totalError(before.proxies) {
			a.restore(before)
			break
		}
		teleported++
	}
	return teleported, nil
}

func (a *Approximation[S]) teleport(relaxations int) (bool, error) {
	if len(a.proxies) < 2 {
		return false, nil
	}
	worst := a.worstProxy()
	if worst < 0 {
		return false, nil
	}
	target := a.worstFace(a.proxies[worst].faces)

	i, j, ok, err := a.cheapestMerge()
	if err != nil || !ok {
		return false, err
	}
	if err := a.merge(i, j); err != nil {
		return false, err
	}
	if err := a.newProxy(target); err != nil {
		return false, err
	}
	if err := a.relaxAll(relaxations); err != nil {
		return false, err
	}
	return true, nil
}

// cheapestMerge returns the adjacent proxy pair i < j whose merge increases
// the total error the least.
func (a *Approximation[S]) cheapestMerge() (int, int, bool, error) {
	pairs := make(map[[2]int]struct{})
	for h, o := range a.topo.Opposite {
		if o < 0 {
			continue
		}
		p, q := a.faceProxy[trimesh.HalfedgeFace(h)], a.faceProxy[trimesh.HalfedgeFace(o)]
		if p == q {
			continue
		}
		pairs[[2]int{min(p, q), max(p, q)}] = struct{}{}
	}
	keys := make([][2]int, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y [2]int) int {
		if x[0] != y[0] {
			return x[0] - y[0]
		}
		return x[1] - y[1]
	})

	bi, bj, bestCost := -1, -1, math.Inf(1)
	for _, k := range keys {
		p, q := a.proxies[k[0]], a.proxies[k[1]]
		faces := mergeSorted(p.faces, q.faces)
		shape, err := a.metric.Fit(faces)
		if err != nil {
			return 0, 0, false, err
		}
		var merged float64
		for _, f := range faces {
			merged += a.metric.Error(f, shape)
		}
		if cost := merged - p.err - q.err; cost < bestCost {
			bi, bj, bestCost = k[0], k[1], cost
		}
	}
	return bi, bj, bi >= 0, nil
}

// merge moves the faces of proxy j into proxy i and removes j.
func (a *Approximation[S]) merge(i, j int) error {
	p, q := a.proxies[i], a.proxies[j]
	p.faces = mergeSorted(p.faces, q.faces)
	for _, f := range q.faces {
		a.faceProxy[f] = i
	}
	if err := a.fit(i); err != nil {
		return err
	}

	a.proxies = slices.Delete(a.proxies, j, j+1)
	for f, px := range a.faceProxy {
		if px > j {
			a.faceProxy[f] = px - 1
		}
	}
	return nil
}

// Split replaces proxy px with n proxies seeded from its worst faces, then
// runs relaxations rounds restricted to the faces of px. It returns false when
// n < 2 or px has fewer than n faces.
func (a *Approximation[S]) Split(px, n, relaxations int) (bool, error) {
	if !a.seeded {
		return false, ErrNotSeeded
	}
	if px < 0 || px >= len(a.proxies) {
		return false, fmt.Errorf("%w: %d not in [0 %d)", ErrInvalidProxyIndex, px, len(a.proxies))
	}
	if relaxations < 0 {
		return false, fmt.Errorf("Split: relaxations must be non-negative, got %d", relaxations)
	}
	if n < 2 || len(a.proxies[px].faces) < n {
		return false, nil
	}

	err := a.atomically(func() error {
		region := slices.Clone(a.proxies[px].faces)
		candidates := []int{px}
		for range n - 1 {
			f := a.worstFace(region)
			if f < 0 {
				return fmt.Errorf("Split: no face left to seed proxy %d", px)
			}
			if err := a.newProxy(f); err != nil {
				return err
			}
			candidates = append(candidates, len(a.proxies)-1)
		}
		for range relaxations {
			if err := a.relax(region, candidates); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func mergeSorted(x, y []int) []int {
	out := make([]int, 0, len(x)+len(y))
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		if x[i] < y[j] {
			out = append(out, x[i])
			i++
		} else {
			out = append(out, y[j])
			j++
		}
	}
	out = append(out, x[i:]...)
	return append(out, y[j:]...)
}

func totalError[S any](proxies []*proxy[S]) float64 {
	var sum float64
	for _, p := range proxies {
		sum += p.err
	}
	return sum
}
