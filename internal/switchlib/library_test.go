package switchlib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layoutpub/pkg/domain"
)

func TestDefaultCatalogue(t *testing.T) {
	lib := Default()
	assert.Contains(t, lib.IDs(), "YV60-300-1:9-O")

	yv, ok := lib.Structure("YV60-300-1:9-O")
	require.True(t, ok)
	ct := yv.ConnectivityType()
	require.NotNil(t, ct.FrontJoint)
	assert.Equal(t, domain.JointNumber(1), *ct.FrontJoint)
	assert.Nil(t, ct.SharedPassThroughJoint)
	assert.Equal(t, [][]domain.JointNumber{{1, 5, 2}, {1, 3}}, ct.TrackLinkedAlignments)

	rr, ok := lib.Structure("RR54-4.8")
	require.True(t, ok)
	ct = rr.ConnectivityType()
	assert.Nil(t, ct.FrontJoint)
	assert.Equal(t, [][]domain.JointNumber{{1, 5}, {5, 2}, {4, 5}, {5, 3}}, ct.TrackLinkedAlignments)

	_, ok = lib.Structure("nope")
	assert.False(t, ok)
}

func TestParseRejectsBrokenStructures(t *testing.T) {
	cases := map[string]string{
		"no id":            "structures:\n  - presentationJoint: 1\n    joints: [1]\n",
		"presentation":     "structures:\n  - id: A\n    presentationJoint: 9\n    joints: [1, 2]\n    alignments: [{joints: [1, 2]}]\n",
		"no alignments":    "structures:\n  - id: A\n    presentationJoint: 1\n    joints: [1, 2]\n",
		"short alignment":  "structures:\n  - id: A\n    presentationJoint: 1\n    joints: [1, 2]\n    alignments: [{joints: [1]}]\n",
		"undeclared joint": "structures:\n  - id: A\n    presentationJoint: 1\n    joints: [1, 2]\n    alignments: [{joints: [1, 3]}]\n",
		"undeclared front": "structures:\n  - id: A\n    presentationJoint: 1\n    frontJoint: 7\n    joints: [1, 2]\n    alignments: [{joints: [1, 2]}]\n",
		"duplicate":        "structures:\n  - {id: A, presentationJoint: 1, joints: [1, 2], alignments: [{joints: [1, 2]}]}\n  - {id: A, presentationJoint: 1, joints: [1, 2], alignments: [{joints: [1, 2]}]}\n",
		"unknown field":    "structures:\n  - id: A\n    colour: red\n",
		"not a catalogue":  "- 1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switches.yaml")
	require.NoError(t, os.WriteFile(path, []byte("structures:\n  - {id: X1, presentationJoint: 1, joints: [1, 2], alignments: [{joints: [1, 2]}]}\n"), 0o644))
	lib, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"X1"}, lib.IDs())

	lib, err = Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, lib.IDs())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
