// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package vsa

import (
	"fmt"
	"math"
)

// Run performs iterations rounds of Lloyd relaxation over the whole mesh.
func (a *Approximation[S]) Run(iterations int) error {
	if !a.seeded {
		return ErrNotSeeded
	}
	if iterations < 0 {
		return fmt.Errorf("Run: iterations must be non-negative, got %d", iterations)
	}
	return a.atomically(func() error {
		return a.relaxAll(iterations)
	})
}

func (a *Approximation[S]) relaxAll(rounds int) error {
	for range rounds {
		if err := a.relax(nil, a.allProxies()); err != nil {
			return err
		}
	}
	return nil
}

func (a *Approximation[S]) allProxies() []int {
	all := make([]int, len(a.proxies))
	for i := range all {
		all[i] = i
	}
	return all
}

// relax runs one assign and refit round. Faces of region (all faces when nil)
// are reassigned among candidates, which must own every face of region.
func (a *Approximation[S]) relax(region []int, candidates []int) error {
	a.partition(region, candidates)

	for _, c := range candidates {
		a.proxies[c].faces = a.proxies[c].faces[:0]
	}
	a.forEach(region, func(f int) {
		p := a.proxies[a.faceProxy[f]]
		p.faces = append(p.faces, f)
	})

	for _, c := range candidates {
		if len(a.proxies[c].faces) > 0 {
			continue
		}
		if err := a.reseedEmpty(c, region); err != nil {
			return err
		}
	}

	for _, c := range candidates {
		if err := a.fit(c); err != nil {
			return err
		}
	}
	return nil
}

// partition assigns each face of region to the candidate with the smallest
// error. Ties keep the current proxy, then go to the lowest position.
func (a *Approximation[S]) partition(region []int, candidates []int) {
	a.forEach(region, func(f int) {
		best, bestErr := a.faceProxy[f], math.Inf(1)
		if best >= 0 {
			bestErr = a.metric.Error(f, a.proxies[best].shape)
		}
		for _, c := range candidates {
			if e := a.metric.Error(f, a.proxies[c].shape); e < bestErr {
				best, bestErr = c, e
			}
		}
		a.faceProxy[f] = best
		a.faceErr[f] = bestErr
	})
}

// reseedEmpty moves the highest-error face of region that belongs to a proxy
// with at least two members into the empty proxy c.
func (a *Approximation[S]) reseedEmpty(c int, region []int) error {
	f := a.worstFace(region)
	if f < 0 {
		return fmt.Errorf("%w: proxy %d", ErrEmptyProxy, c)
	}
	donor := a.proxies[a.faceProxy[f]]
	donor.faces = removeSorted(donor.faces, f)

	p := a.proxies[c]
	shape, err := a.metric.Fit([]int{f})
	if err != nil {
		return err
	}
	p.shape = shape
	p.seed = f
	p.faces = append(p.faces, f)
	a.faceProxy[f] = c
	a.faceErr[f] = a.metric.Error(f, shape)
	return nil
}

// fit refits the shape of proxy c and recomputes its errors.
func (a *Approximation[S]) fit(c int) error {
	p := a.proxies[c]
	shape, err := a.metric.Fit(p.faces)
	if err != nil {
		return fmt.Errorf("proxy %d: %w", c, err)
	}
	p.shape = shape
	p.err = 0
	for _, f := range p.faces {
		a.faceErr[f] = a.metric.Error(f, shape)
		p.err += a.faceErr[f]
	}
	return nil
}

func (a *Approximation[S]) forEach(region []int, fn func(f int)) {
	if region == nil {
		for f := range a.faceProxy {
			fn(f)
		}
		return
	}
	for _, f := range region {
		fn(f)
	}
}
