// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package stats

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounters_IncrementsAreIsolatedByDirection(t *testing.T) {
	c := New(nil)
	c.IncRecv(DirPR)
	c.IncM46EOk(DirPR)
	c.IncME6EErr(DirFP)

	assert.Equal(t, uint32(1), c.PR.Recv.Load())
	assert.Equal(t, uint32(1), c.PR.M46EOk.Load())
	assert.Equal(t, uint32(0), c.FP.Recv.Load())
	assert.Equal(t, uint32(1), c.FP.ME6EErr.Load())
}

func TestCounters_ConcurrentIncrementIsMonotonic(t *testing.T) {
	c := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncRecv(DirPR)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint32(100), c.PR.Recv.Load())
}

func TestCounters_DumpListsBothDirections(t *testing.T) {
	c := New(nil)
	c.IncRecv(DirPR)
	c.IncErrHopLimit(DirFP)

	out := c.Dump()
	assert.True(t, strings.Contains(out, "pr_recv=1"))
	assert.True(t, strings.Contains(out, "fp_err_hoplimit=1"))
}
