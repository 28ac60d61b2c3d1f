package tnplot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fileset.json")
	doc := `{
		"run2016B": {"files": ["a.root", "b.root"]},
		"dy_madgraph": {
			"files": ["mc.root"],
			"tree": "Ntuples/fitter_tree",
			"isMC": true,
			"pileupJSON": "pu.json",
			"truePUVar": "Pileup_nTrueInt"
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	fs, err := LoadFileset(path)
	require.NoError(t, err)
	require.NoError(t, fs.Validate())

	data := fs["run2016B"]
	assert.Equal(t, []string{"a.root", "b.root"}, data.Files)
	assert.Equal(t, DefaultTreeName, data.tree())
	assert.Equal(t, "truePU", data.truePUVar())
	assert.False(t, data.hasPileupSources())

	mc := fs["dy_madgraph"]
	assert.True(t, mc.IsMC)
	assert.Equal(t, "Ntuples/fitter_tree", mc.tree())
	assert.Equal(t, "Pileup_nTrueInt", mc.truePUVar())
	assert.True(t, mc.hasPileupSources())
}

func TestLoadFileset_BadPath(t *testing.T) {
	_, err := LoadFileset(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFilesetValidate(t *testing.T) {
	for name, fs := range map[string]Fileset{
		"empty":          {},
		"no files":       {"d": {}},
		"half pileup":    {"d": {Files: []string{"f.root"}, IsMC: true, PileupData: "data.yoda"}},
		"pileup on data": {"d": {Files: []string{"f.root"}, PileupJSON: "pu.json"}},
	} {
		var cerr *ConfigError
		assert.ErrorAs(t, fs.Validate(), &cerr, name)
	}
}

func TestDatasetPileupCorrection_FromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pu.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"edges": [0, 50], "weights": [1.2]}`), 0644))

	ds := Dataset{Files: []string{"mc.root"}, IsMC: true, PileupJSON: path}
	corr, err := ds.pileupCorrection()
	require.NoError(t, err)
	assert.Equal(t, 1.2, corr.Weight(20))

	none := Dataset{Files: []string{"data.root"}}
	corr, err = none.pileupCorrection()
	require.NoError(t, err)
	assert.Nil(t, corr)
}
