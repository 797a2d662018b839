// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruletable

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/mx6e/internal/errors"
	"grimm.is/mx6e/internal/rule"
)

func m46eRule(t *testing.T, inPlaneID string, inPrefixLen int, v4 string, outPlaneID, outPrefix string) *rule.Rule {
	t.Helper()
	cfg, err := rule.NewConfig(rule.NewConfigParams{
		Domain: "PR", Kind: "M46E", Enable: true,
		InPlaneID: inPlaneID, InPrefixLen: inPrefixLen, Inner: v4,
		OutPlaneID: outPlaneID, OutPrefix: outPrefix,
	})
	require.NoError(t, err)
	r, err := rule.Derive(cfg)
	require.NoError(t, err)
	return r
}

func TestTable_InsertFindDelete(t *testing.T) {
	tb := New(rule.KindM46E, NopRouter{})
	r := m46eRule(t, "1:2", 64, "192.168.102.0/24", "8fff:ffff:ffff", "f00d:1:1::/48")

	require.NoError(t, tb.Insert(r))
	assert.Equal(t, 1, tb.Count())

	got := tb.FindForPacket(rule.DomainPR, r.MatchAddr)
	require.NotNil(t, got)
	assert.Equal(t, r.MatchAddr, got.MatchAddr)

	require.NoError(t, tb.Delete(r.Key()))
	assert.Equal(t, 0, tb.Count())
	assert.Nil(t, tb.FindForPacket(rule.DomainPR, r.MatchAddr))
}

func TestTable_InsertThenDeleteRoundTripIdentity(t *testing.T) {
	tb := New(rule.KindM46E, NopRouter{})
	r1 := m46eRule(t, "1:2", 64, "192.168.102.0/24", "8fff:ffff:ffff", "f00d:1:1::/48")
	r2 := m46eRule(t, "1:3", 64, "192.168.103.0/24", "8fff:ffff:ffff", "f00d:1:1::/48")
	require.NoError(t, tb.Insert(r1))

	before := tb.Snapshot()

	require.NoError(t, tb.Insert(r2))
	require.NoError(t, tb.Delete(r2.Key()))

	after := tb.Snapshot()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].MatchAddr, after[i].MatchAddr)
		assert.Equal(t, before[i].MatchMask, after[i].MatchMask)
	}
}

func TestTable_RejectsDuplicateKey(t *testing.T) {
	tb := New(rule.KindM46E, NopRouter{})
	r := m46eRule(t, "1:2", 64, "192.168.102.0/24", "8fff:ffff:ffff", "f00d:1:1::/48")
	require.NoError(t, tb.Insert(r))

	dup := m46eRule(t, "1:2", 64, "192.168.102.0/24", "8fff:ffff:ffff", "f00d:1:1::/48")
	err := tb.Insert(dup)
	assert.Error(t, err)
	assert.Equal(t, 1, tb.Count())
}

func TestTable_EnforcesMaxRulesPerTable(t *testing.T) {
	tb := New(rule.KindM46E, NopRouter{})
	for i := 0; i < MaxRulesPerTable; i++ {
		r := m46eRule(t, fmt.Sprintf("1:%x", i+1), 48, "192.168.102.0/24", "8fff:ffff:ffff", "f00d:1:1::/48")
		require.NoError(t, tb.Insert(r), "rule %d", i)
	}
	assert.Equal(t, MaxRulesPerTable, tb.Count())

	overflow := m46eRule(t, fmt.Sprintf("1:%x", MaxRulesPerTable+1), 48, "192.168.102.0/24", "8fff:ffff:ffff", "f00d:1:1::/48")
	err := tb.Insert(overflow)
	assert.Error(t, err)
	assert.Equal(t, MaxRulesPerTable, tb.Count())
}

func TestTable_SetEnabledGatesFindForPacket(t *testing.T) {
	tb := New(rule.KindM46E, NopRouter{})
	r := m46eRule(t, "1:2", 64, "192.168.102.0/24", "8fff:ffff:ffff", "f00d:1:1::/48")
	r.Enable = false
	require.NoError(t, tb.Insert(r))

	assert.Nil(t, tb.FindForPacket(rule.DomainPR, r.MatchAddr))

	require.NoError(t, tb.SetEnabled(r.Key(), true))
	assert.NotNil(t, tb.FindForPacket(rule.DomainPR, r.MatchAddr))

	require.NoError(t, tb.SetEnabled(r.Key(), false))
	assert.Nil(t, tb.FindForPacket(rule.DomainPR, r.MatchAddr))
}

func TestTable_DeleteAndSetEnabledOfMissingKeyIsNotFound(t *testing.T) {
	tb := New(rule.KindM46E, NopRouter{})
	r := m46eRule(t, "1:2", 64, "192.168.102.0/24", "8fff:ffff:ffff", "f00d:1:1::/48")

	err := tb.Delete(r.Key())
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))

	err = tb.SetEnabled(r.Key(), true)
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))
}

func TestTable_ClearAllEmptiesTable(t *testing.T) {
	tb := New(rule.KindM46E, NopRouter{})
	for i := 0; i < 5; i++ {
		r := m46eRule(t, fmt.Sprintf("1:%x", i+1), 48, "192.168.102.0/24", "8fff:ffff:ffff", "f00d:1:1::/48")
		require.NoError(t, tb.Insert(r))
	}
	tb.ClearAll()
	assert.Equal(t, 0, tb.Count())
}

func TestTable_DumpListsEveryRule(t *testing.T) {
	tb := New(rule.KindM46E, NopRouter{})
	r := m46eRule(t, "1:2", 64, "192.168.102.0/24", "8fff:ffff:ffff", "f00d:1:1::/48")
	require.NoError(t, tb.Insert(r))

	var buf bytes.Buffer
	require.NoError(t, tb.Dump(&buf))
	assert.Contains(t, buf.String(), "enabled")
	assert.Contains(t, buf.String(), r.MatchAddr.String())
}
