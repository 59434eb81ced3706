package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchProfileByPrefix(t *testing.T) {
	cases := []struct {
		name    string
		wantKey string
	}{
		{"AnritsuM-7", "anritsu"},
		{"AnritsuN-12", "anritsu"},
		{"TR45-001", "tr45"},
		{"TR42BT", "tr4"},
		{"SK-270WP", "sk270"},
	}
	for _, c := range cases {
		p, ok := MatchProfile(c.name)
		require.True(t, ok, "name %q should match", c.name)
		assert.Equal(t, c.wantKey, p.Key, "name %q", c.name)
	}
}

func TestMatchProfileNoMatchIsIgnored(t *testing.T) {
	for _, name := range []string{"", "JBL Flip 5", "TQ45", "anritsum-7"} {
		_, ok := MatchProfile(name)
		assert.False(t, ok, "name %q should not match", name)
	}
}

func TestMatchProfileOrderIsTheTieBreak(t *testing.T) {
	specific := Profile{Key: "tr45", NamePrefixes: []string{"TR45"}}
	generic := Profile{Key: "tr4", NamePrefixes: []string{"TR4"}}

	p, ok := matchProfileIn([]Profile{specific, generic}, "TR45-001")
	require.True(t, ok)
	assert.Equal(t, "tr45", p.Key, "specific prefix listed first must win")

	p, ok = matchProfileIn([]Profile{generic, specific}, "TR45-001")
	require.True(t, ok)
	assert.Equal(t, "tr4", p.Key, "generic prefix listed first shadows the specific one")
}

func TestCatalogListsSpecificPrefixesFirst(t *testing.T) {
	// Guards the tr45-before-tr4 ordering the matcher depends on.
	var tr45, tr4 int
	for i, p := range Catalog {
		switch p.Key {
		case "tr45":
			tr45 = i
		case "tr4":
			tr4 = i
		}
	}
	assert.Less(t, tr45, tr4)
}
