package InputParameters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	ep := NewEnergyParameters()
	assert.True(t, ep.ADV)
	assert.Equal(t, 1, ep.MinStep)
	assert.Equal(t, 1000, ep.MaxStep)
	assert.Equal(t, 1000000, ep.MaxTotStep)
	assert.Equal(t, 0.9, ep.FineTuneDt)
	assert.Equal(t, 0., ep.FixedTimestep)
	assert.Equal(t, 0.5, ep.AdvGamma)
	assert.Equal(t, 2, ep.AdvSubIterations)
	assert.Equal(t, 1., ep.InputDiffusivity)
	assert.Equal(t, 1.05, ep.TMaxVaried)
	assert.True(t, ep.FilterTemp)
	assert.False(t, ep.HorizonsActive())
	assert.NoError(t, ep.Validate())
}

func TestParseYAML(t *testing.T) {
	var data = []byte(`
Title: "cell"
minstep: 5
finetunedt: 0.5
adv_gamma: 1.0
ADV: false
Horizons:
  - Name: "660"
    Ra: 0.25
    Clapeyron: -0.1
    Width: 0.01
`)
	ep := NewEnergyParameters()
	require.NoError(t, ep.Parse(data))
	assert.Equal(t, "cell", ep.Title)
	assert.Equal(t, 5, ep.MinStep)
	assert.Equal(t, 0.5, ep.FineTuneDt)
	assert.Equal(t, 1., ep.AdvGamma)
	assert.False(t, ep.ADV)
	assert.Equal(t, 1000, ep.MaxStep) // Untouched default
	require.Len(t, ep.Horizons, 1)
	assert.True(t, ep.HorizonsActive())
	assert.Equal(t, -0.1, ep.Horizons[0].Clapeyron)
	assert.NoError(t, ep.Validate())
}

func TestParseINI(t *testing.T) {
	{ // Test CitcomS style input
		var data = []byte(`
# advection
ADV=on
filter_temp=off
adv_sub_iterations=3
fixed_timestep=1e-4
Ra_670=0.5
clapeyron670=-0.2
`)
		ep := NewEnergyParameters()
		require.NoError(t, ep.ParseINI(data))
		assert.True(t, ep.ADV)
		assert.False(t, ep.FilterTemp)
		assert.Equal(t, 3, ep.AdvSubIterations)
		assert.Equal(t, 1e-4, ep.FixedTimestep)
		assert.Equal(t, 0.5, ep.Horizons[1].Ra)
		assert.Equal(t, -0.2, ep.Horizons[1].Clapeyron)
		assert.False(t, ep.Horizons[0].Active())
	}
	{ // Test unknown key with a suggestion
		ep := NewEnergyParameters()
		err := ep.ParseINI([]byte("finetunedtt=0.5\n"))
		assert.ErrorIs(t, err, ErrInvalidParameter)
		assert.Contains(t, err.Error(), `"finetunedt"`)
	}
	{ // Test malformed value
		ep := NewEnergyParameters()
		err := ep.ParseINI([]byte("maxstep=lots\n"))
		assert.ErrorIs(t, err, ErrInvalidParameter)
	}
}

func TestValidate(t *testing.T) {
	for _, mod := range []func(ep *EnergyParameters){
		func(ep *EnergyParameters) { ep.AdvGamma = 1.5 },
		func(ep *EnergyParameters) { ep.AdvSubIterations = 0 },
		func(ep *EnergyParameters) { ep.FineTuneDt = 0 },
		func(ep *EnergyParameters) { ep.FixedTimestep = -1 },
		func(ep *EnergyParameters) { ep.InputDiffusivity = -1 },
		func(ep *EnergyParameters) { ep.Atemp = 0 },
		func(ep *EnergyParameters) { ep.Horizons[2].Ra, ep.Horizons[2].Width = 1, 0 },
		func(ep *EnergyParameters) { ep.Expansivity = []float64{1, 1} },
	} {
		ep := NewEnergyParameters()
		mod(ep)
		assert.ErrorIs(t, ep.Validate(), ErrInvalidParameter)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yamlFile := filepath.Join(dir, "input.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("maxstep: 7\n"), 0644))
	ep, err := Load(yamlFile)
	require.NoError(t, err)
	assert.Equal(t, 7, ep.MaxStep)

	cfgFile := filepath.Join(dir, "input.cfg")
	require.NoError(t, os.WriteFile(cfgFile, []byte("maxstep=9\nadv_gamma=2\n"), 0644))
	_, err = Load(cfgFile)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Load(filepath.Join(dir, "missing.cfg"))
	assert.Error(t, err)
}
