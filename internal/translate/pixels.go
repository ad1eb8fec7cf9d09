package translate

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"image-bridge/internal/models"
)

// planeCopier is shared by the pixel harmonizers: it owns the saved current
// plane and runs per-plane work with bounded concurrency.
type planeCopier struct {
	workers    int
	savedIndex int
	saved      []float64
}

func newPlaneCopier(workers int) planeCopier {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return planeCopier{workers: workers, savedIndex: -1}
}

// SavePlane records the captured contents of legacy plane index. While set,
// those values are read instead of the stack's plane.
func (p *planeCopier) SavePlane(index int, values []float64) {
	p.savedIndex = index
	p.saved = values
}

// ClearSavedPlane forgets the saved plane and returns its buffer.
func (p *planeCopier) ClearSavedPlane() []float64 {
	buf := p.saved
	p.savedIndex = -1
	p.saved = nil
	return buf
}

// source returns a reader for legacy plane k, honoring the saved plane.
func (p *planeCopier) source(stack models.Stack, k int) func(int) float64 {
	if k == p.savedIndex && p.saved != nil {
		saved := p.saved
		return func(i int) float64 { return saved[i] }
	}
	plane := stack.Plane(k)
	return plane.Value
}

// run calls fn for every plane index. Virtual stacks are walked in order
// because loading a plane evicts the previous one.
func (p *planeCopier) run(n int, virtual bool, fn func(k int)) {
	if virtual || p.workers == 1 || n == 1 {
		for k := 0; k < n; k++ {
			fn(k)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for k := 0; k < n; k++ {
		g.Go(func() error {
			fn(k)
			return nil
		})
	}
	_ = g.Wait()
}

// mustMatch panics when the legacy image does not have the given shape.
func mustMatch(what string, imp *models.LegacyImage, w, h, c, z, t int) {
	iw, ih, ic, iz, it := imp.Dimensions()
	if iw != w || ih != h || ic != c || iz != z || it != t {
		panic(fmt.Sprintf("%s: legacy image %q is %dx%d c=%d z=%d t=%d, dataset needs %dx%d c=%d z=%d t=%d",
			what, imp.Title(), iw, ih, ic, iz, it, w, h, c, z, t))
	}
}
