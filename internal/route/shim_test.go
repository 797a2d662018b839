// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/mx6e/internal/addr6"
	"grimm.is/mx6e/internal/rule"
)

type recordingShim struct {
	installedIfindex int
	removedIfindex   int
}

func (r *recordingShim) Install(ifindex int, _ addr6.Addr, _ int) error {
	r.installedIfindex = ifindex
	return nil
}

func (r *recordingShim) Remove(ifindex int, _ addr6.Addr, _ int) error {
	r.removedIfindex = ifindex
	return nil
}

func TestDomainRouter_SelectsIfindexByDomain(t *testing.T) {
	shim := &recordingShim{}
	dr := DomainRouter{Shim: shim, PRIfindex: 3, FPIfindex: 7}

	dst, err := addr6.ParseAddr("2001:db8::")
	require.NoError(t, err)

	require.NoError(t, dr.Install(rule.DomainPR, dst, 64))
	assert.Equal(t, 3, shim.installedIfindex)

	require.NoError(t, dr.Install(rule.DomainFP, dst, 64))
	assert.Equal(t, 7, shim.installedIfindex)

	require.NoError(t, dr.Remove(rule.DomainFP, dst, 64))
	assert.Equal(t, 7, shim.removedIfindex)
}
