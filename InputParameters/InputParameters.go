package InputParameters

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/ghodss/yaml"
	"gopkg.in/ini.v1"
)

var ErrInvalidParameter = errors.New("invalid parameter")

// Horizon is one phase transition. It contributes latent heat only when Ra
// is nonzero.
type Horizon struct {
	Name      string  `json:"Name" yaml:"Name"`
	Ra        float64 `json:"Ra" yaml:"Ra"`
	Clapeyron float64 `json:"Clapeyron" yaml:"Clapeyron"`
	Depth     float64 `json:"Depth" yaml:"Depth"`
	TransT    float64 `json:"TransT" yaml:"TransT"`
	Width     float64 `json:"Width" yaml:"Width"`
}

func (h Horizon) Active() bool { return h.Ra != 0 }

// Parameters for the energy equation, from a YAML file or a key=value file
type EnergyParameters struct {
	Title            string  `json:"Title" yaml:"Title"`
	ADV              bool    `json:"ADV" yaml:"ADV"`
	MinStep          int     `json:"minstep" yaml:"minstep"`
	MaxStep          int     `json:"maxstep" yaml:"maxstep"`
	MaxTotStep       int     `json:"maxtotstep" yaml:"maxtotstep"`
	FineTuneDt       float64 `json:"finetunedt" yaml:"finetunedt"`
	FixedTimestep    float64 `json:"fixed_timestep" yaml:"fixed_timestep"`
	AdvGamma         float64 `json:"adv_gamma" yaml:"adv_gamma"`
	AdvSubIterations int     `json:"adv_sub_iterations" yaml:"adv_sub_iterations"`
	InputDiffusivity float64 `json:"inputdiffusivity" yaml:"inputdiffusivity"`
	TMaxVaried       float64 `json:"T_maxvaried" yaml:"T_maxvaried"`
	FilterTemp       bool    `json:"filter_temp" yaml:"filter_temp"`
	// Heating
	Q0                float64   `json:"Q0" yaml:"Q0"`
	TracerEnriched    bool      `json:"tracer_enriched" yaml:"tracer_enriched"`
	Q0Enriched        float64   `json:"Q0_enriched" yaml:"Q0_enriched"`
	DissipationNumber float64   `json:"dissipation_number" yaml:"dissipation_number"`
	Atemp             float64   `json:"Atemp" yaml:"Atemp"`
	SurfaceT          float64   `json:"surfaceT" yaml:"surfaceT"`
	Horizons          []Horizon `json:"Horizons" yaml:"Horizons"`
	Expansivity       []float64 `json:"Expansivity" yaml:"Expansivity"` // Per vertical level, empty for uniform
	Density           []float64 `json:"Density" yaml:"Density"`
	// Boundary and initial conditions
	TopTBC        int     `json:"toptbc" yaml:"toptbc"` // 1 is fixed temperature, 0 is fixed flux
	TopTBCVal     float64 `json:"toptbcval" yaml:"toptbcval"`
	BotTBC        int     `json:"bottbc" yaml:"bottbc"`
	BotTBCVal     float64 `json:"bottbcval" yaml:"bottbcval"`
	PerturbMag    float64 `json:"perturbmag" yaml:"perturbmag"`
	VelocityScale float64 `json:"velocity_scale" yaml:"velocity_scale"`
	Visc0         float64 `json:"visc0" yaml:"visc0"`
}

func NewEnergyParameters() (ep *EnergyParameters) {
	ep = &EnergyParameters{
		Title:            "energy",
		ADV:              true,
		MinStep:          1,
		MaxStep:          1000,
		MaxTotStep:       1000000,
		FineTuneDt:       0.9,
		AdvGamma:         0.5,
		AdvSubIterations: 2,
		InputDiffusivity: 1,
		TMaxVaried:       1.05,
		FilterTemp:       true,
		Atemp:            1,
		TopTBC:           1,
		BotTBC:           1,
		BotTBCVal:        1,
		PerturbMag:       0.05,
		VelocityScale:    100,
		Visc0:            1,
	}
	ep.Horizons = []Horizon{
		{Name: "410", Depth: 0.0644, TransT: 0.78, Width: 0.0058},
		{Name: "670", Depth: 0.105, TransT: 0.78, Width: 0.0058},
		{Name: "cmb", Depth: 0.45, TransT: 0.875, Width: 0.0058},
	}
	return
}

// Load reads a YAML (.yaml, .yml, .json) or key=value parameter file over
// the defaults.
func Load(path string) (ep *EnergyParameters, err error) {
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	ep = NewEnergyParameters()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		err = ep.Parse(data)
	default:
		err = ep.ParseINI(data)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err = ep.Validate(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return
}

func (ep *EnergyParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ep)
}

type binding struct {
	key string
	ptr interface{}
}

func (ep *EnergyParameters) bindings() (bb []binding) {
	bb = []binding{
		{"Title", &ep.Title},
		{"ADV", &ep.ADV},
		{"minstep", &ep.MinStep},
		{"maxstep", &ep.MaxStep},
		{"maxtotstep", &ep.MaxTotStep},
		{"finetunedt", &ep.FineTuneDt},
		{"fixed_timestep", &ep.FixedTimestep},
		{"adv_gamma", &ep.AdvGamma},
		{"adv_sub_iterations", &ep.AdvSubIterations},
		{"inputdiffusivity", &ep.InputDiffusivity},
		{"T_maxvaried", &ep.TMaxVaried},
		{"filter_temp", &ep.FilterTemp},
		{"Q0", &ep.Q0},
		{"tracer_enriched", &ep.TracerEnriched},
		{"Q0_enriched", &ep.Q0Enriched},
		{"dissipation_number", &ep.DissipationNumber},
		{"Atemp", &ep.Atemp},
		{"surfaceT", &ep.SurfaceT},
		{"toptbc", &ep.TopTBC},
		{"toptbcval", &ep.TopTBCVal},
		{"bottbc", &ep.BotTBC},
		{"bottbcval", &ep.BotTBCVal},
		{"perturbmag", &ep.PerturbMag},
		{"velocity_scale", &ep.VelocityScale},
		{"visc0", &ep.Visc0},
	}
	// Horizon keys follow the CitcomS names: Ra_410, clapeyron410, z_410...
	for i := range ep.Horizons {
		h := &ep.Horizons[i]
		bb = append(bb,
			binding{"Ra_" + h.Name, &h.Ra},
			binding{"clapeyron" + h.Name, &h.Clapeyron},
			binding{"z_" + h.Name, &h.Depth},
			binding{"transT" + h.Name, &h.TransT},
			binding{"width" + h.Name, &h.Width},
		)
	}
	return
}

// ParseINI reads a flat key=value file. '#' starts a comment. Unknown keys are
// rejected with the closest known key as a hint.
func (ep *EnergyParameters) ParseINI(data []byte) (err error) {
	var (
		cfg   *ini.File
		table = make(map[string]interface{})
		keys  []string
	)
	cfg, err = ini.Load(data)
	if err != nil {
		return
	}
	for _, b := range ep.bindings() {
		table[b.key] = b.ptr
		keys = append(keys, b.key)
	}
	for _, key := range cfg.Section(ini.DefaultSection).Keys() {
		ptr, ok := table[key.Name()]
		if !ok {
			return fmt.Errorf("%w: unknown key %q, did you mean %q?",
				ErrInvalidParameter, key.Name(), closest(key.Name(), keys))
		}
		switch p := ptr.(type) {
		case *string:
			*p = key.String()
		case *bool:
			*p, err = key.Bool()
		case *int:
			*p, err = key.Int()
		case *float64:
			*p, err = key.Float64()
		}
		if err != nil {
			return fmt.Errorf("%w: key %q: %v", ErrInvalidParameter, key.Name(), err)
		}
	}
	return
}

func closest(name string, keys []string) (best string) {
	bestDist := -1
	for _, k := range keys {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(k))
		if bestDist < 0 || d < bestDist {
			best, bestDist = k, d
		}
	}
	return
}

func (ep *EnergyParameters) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
	}
	switch {
	case ep.MinStep < 0:
		return invalid("minstep %d < 0", ep.MinStep)
	case ep.MaxStep < 1:
		return invalid("maxstep %d < 1", ep.MaxStep)
	case ep.MaxTotStep < 1:
		return invalid("maxtotstep %d < 1", ep.MaxTotStep)
	case ep.FineTuneDt <= 0:
		return invalid("finetunedt %g <= 0", ep.FineTuneDt)
	case ep.FixedTimestep < 0:
		return invalid("fixed_timestep %g < 0", ep.FixedTimestep)
	case ep.AdvGamma < 0 || ep.AdvGamma > 1:
		return invalid("adv_gamma %g outside [0,1]", ep.AdvGamma)
	case ep.AdvSubIterations < 1:
		return invalid("adv_sub_iterations %d < 1", ep.AdvSubIterations)
	case ep.InputDiffusivity < 0:
		return invalid("inputdiffusivity %g < 0", ep.InputDiffusivity)
	case ep.TMaxVaried <= 0:
		return invalid("T_maxvaried %g <= 0", ep.TMaxVaried)
	case ep.Atemp == 0:
		return invalid("Atemp is zero")
	case len(ep.Horizons) > 3:
		return invalid("%d phase horizons, at most 3", len(ep.Horizons))
	case len(ep.Expansivity) != len(ep.Density):
		return invalid("%d expansivity levels but %d density levels",
			len(ep.Expansivity), len(ep.Density))
	}
	for _, h := range ep.Horizons {
		if h.Active() && h.Width <= 0 {
			return invalid("horizon %s is active with width %g", h.Name, h.Width)
		}
	}
	return nil
}

// HorizonsActive reports whether any phase horizon contributes latent heat.
func (ep *EnergyParameters) HorizonsActive() bool {
	for _, h := range ep.Horizons {
		if h.Active() {
			return true
		}
	}
	return false
}

func (ep *EnergyParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ep.Title)
	fmt.Printf("[%v]\t\t\t= ADV\n", ep.ADV)
	fmt.Printf("[%d, %d, %d]\t= min/max/total steps\n", ep.MinStep, ep.MaxStep, ep.MaxTotStep)
	fmt.Printf("%8.5f\t\t= finetunedt\n", ep.FineTuneDt)
	if ep.FixedTimestep != 0 {
		fmt.Printf("%8.5g\t\t= fixed_timestep\n", ep.FixedTimestep)
	}
	fmt.Printf("%8.5f\t\t= adv_gamma\n", ep.AdvGamma)
	fmt.Printf("[%d]\t\t\t\t= adv_sub_iterations\n", ep.AdvSubIterations)
	fmt.Printf("%8.5f\t\t= inputdiffusivity\n", ep.InputDiffusivity)
	fmt.Printf("%8.5f\t\t= T_maxvaried\n", ep.TMaxVaried)
	fmt.Printf("[%v]\t\t\t= filter_temp\n", ep.FilterTemp)
	fmt.Printf("%8.5g\t\t= Q0\n", ep.Q0)
	fmt.Printf("%8.5g\t\t= dissipation_number\n", ep.DissipationNumber)
	names := make([]string, 0, len(ep.Horizons))
	byName := make(map[string]Horizon)
	for _, h := range ep.Horizons {
		if h.Active() {
			names = append(names, h.Name)
			byName[h.Name] = h
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("Horizon[%s] = %+v\n", name, byName[name])
	}
}
