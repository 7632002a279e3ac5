package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseElementID(t *testing.T) {
	testCases := []struct {
		domID string
		group string
		index Index
	}{
		{"flowchart-KC_SNK:1-23", "KC_SNK", 1},
		{"flowchart-KC_SNK-23", "KC_SNK", IndexAll},
		{"flowchart-KC_SNK:?-4", "KC_SNK", IndexUnknown},
		{"flowchart-KT_SNK:?0-4", "KT_SNK", IndexUnknown},
		{"KC_SRC:0", "KC_SRC", 0},
		{"DB_SRC", "DB_SRC", IndexAll},
		{"", "", IndexAll},
	}

	for _, tc := range testCases {
		t.Run(tc.domID, func(t *testing.T) {
			grp, idx := ParseElementID(tc.domID)
			assert.Equal(t, tc.group, grp)
			assert.Equal(t, tc.index, idx)
		})
	}
}

func TestResolveClick(t *testing.T) {
	groups := Groups{"KC_SNK": nodes("replica_snk_a", "replica_snk_b")}

	testCases := []struct {
		name  string
		domID string
		want  string
	}{
		{"existing instance", "flowchart-KC_SNK:1-7", "/configuration/KC_SNK/replica_snk_b"},
		{"index out of range", "flowchart-KC_SNK:3-7", "/configuration/KC_SNK/"},
		{"placeholder", "flowchart-KC_SNK:?-7", "/configuration/KC_SNK/"},
		{"bare group", "flowchart-KC_SNK-7", "/configuration/KC_SNK/"},
		{"unknown group", "flowchart-DB_SRC-2", "/configuration/DB_SRC/"},
		{"unknown group with index", "flowchart-NOPE:0-2", "/configuration/NOPE/"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tc.want, ResolveClick(tc.domID, groups).String())
			})
		})
	}
}
