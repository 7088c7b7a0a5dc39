/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gocitcom/InputParameters"
	"github.com/notargets/gocitcom/history"
	"github.com/notargets/gocitcom/mesh"
	"github.com/notargets/gocitcom/model_problems/Energy"
	"github.com/notargets/gocitcom/monitor"
	"github.com/notargets/gocitcom/parallel"
	"github.com/notargets/gocitcom/types"
)

type RunConfig struct {
	InputFile  string
	Geometry   string // line, box or shell
	NX, NY, NZ int    // Elements per axis, NY == 0 for a 2D box or shell
	Ranks      int
	CapsPer    int // Caps per rank
	Monitor    string
	History    string
	Profile    string
	TopBC      string // Node flag names overriding toptbc, e.g. "tbz" or "flux"
	BottomBC   string
}

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Advance the energy equation of a convection model",
	Long: `
Reads the physics parameters (YAML or key=value), builds a structured mesh,
splits it into caps over in-process ranks and steps the temperature field,
gocitcom run -I input.cfg --geometry shell --nx 8 --nz 8 --ranks 2`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		rc := RunConfig{
			InputFile: viper.GetString("run.input"),
			Geometry:  viper.GetString("run.geometry"),
			NX:        viper.GetInt("run.nx"),
			NY:        viper.GetInt("run.ny"),
			NZ:        viper.GetInt("run.nz"),
			Ranks:     viper.GetInt("run.ranks"),
			CapsPer:   viper.GetInt("run.caps"),
			Monitor:   viper.GetString("run.monitor"),
			History:   viper.GetString("run.history"),
			Profile:   viper.GetString("run.profile"),
			TopBC:     viper.GetString("run.topbc"),
			BottomBC:  viper.GetString("run.bottombc"),
		}
		log, err := NewLogger(viper.GetString("log.level"), viper.GetBool("log.json"))
		if err != nil {
			return
		}
		switch rc.Profile {
		case "":
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
		default:
			return fmt.Errorf("unknown profile %q, want cpu or mem", rc.Profile)
		}
		ip, err := InputParameters.Load(rc.InputFile)
		if err != nil {
			return
		}
		ip.Print()
		last, runID, err := RunEnergy(rc, ip, log)
		if err != nil {
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), Summary(rc, runID, last))
		return
	},
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML or key=value file for the energy parameters")
	RunCmd.Flags().StringP("geometry", "g", "shell", "mesh geometry: line, box or shell")
	RunCmd.Flags().Int("nx", 8, "elements along the first horizontal axis")
	RunCmd.Flags().Int("ny", 0, "elements along the second horizontal axis, 0 for a 2D mesh")
	RunCmd.Flags().Int("nz", 8, "elements along the vertical axis")
	RunCmd.Flags().IntP("ranks", "n", 1, "number of in-process ranks")
	RunCmd.Flags().Int("caps", 1, "caps per rank")
	RunCmd.Flags().String("monitor", "", "address for the websocket report stream, e.g. :8080")
	RunCmd.Flags().String("history", "", "sqlite file recording the step reports")
	RunCmd.Flags().String("profile", "", "write a cpu or mem profile")
	RunCmd.Flags().String("top-bc", "", "top surface condition by flag name (tbz, fbz), overrides toptbc")
	RunCmd.Flags().String("bottom-bc", "", "bottom surface condition by flag name (tbz, fbz), overrides bottbc")
	for key, flag := range map[string]string{
		"run.input": "inputConditionsFile", "run.geometry": "geometry",
		"run.nx": "nx", "run.ny": "ny", "run.nz": "nz",
		"run.ranks": "ranks", "run.caps": "caps",
		"run.monitor": "monitor", "run.history": "history", "run.profile": "profile",
		"run.topbc": "top-bc", "run.bottombc": "bottom-bc",
	} {
		viper.BindPFlag(key, RunCmd.Flags().Lookup(flag))
	}
}

// NewGrid builds the mesh for a geometry. The last axis is vertical with the
// surface at its upper bound.
func NewGrid(rc RunConfig) (g mesh.Grid, err error) {
	var (
		elems  = []int{rc.NX, rc.NZ}
		lo, hi []float64
	)
	if rc.NY > 0 {
		elems = []int{rc.NX, rc.NY, rc.NZ}
	}
	switch strings.ToLower(rc.Geometry) {
	case "line":
		g = mesh.NewLine(rc.NZ, 0, 1)
	case "box":
		lo, hi = make([]float64, len(elems)), make([]float64, len(elems))
		for d := range elems {
			hi[d] = 1
		}
		g = mesh.NewBox(elems, lo, hi)
	case "shell":
		// Colatitude band about the equator, [longitude,] radius from the CMB
		if len(elems) == 2 {
			lo, hi = []float64{0.7, 0.55}, []float64{1.3, 1}
		} else {
			lo, hi = []float64{0.7, 0, 0.55}, []float64{1.3, 0.6, 1}
		}
		g = mesh.NewShell(elems, lo, hi)
	default:
		return g, fmt.Errorf("%w: geometry %q, want line, box or shell",
			InputParameters.ErrInvalidParameter, rc.Geometry)
	}
	err = g.Validate()
	return
}

// NewBoundary maps toptbc/bottbc onto surface conditions: 1 is a fixed
// temperature, 0 a fixed flux. A flag name in rc replaces the toptbc/bottbc
// choice for that surface.
func NewBoundary(ip *InputParameters.EnergyParameters, rc RunConfig) (bc mesh.Boundary, err error) {
	surface := func(tbc int, label string, val float64) (sbc mesh.SurfaceBC, err error) {
		sbc = mesh.SurfaceBC{Flag: types.FBZ, Value: val}
		if tbc == 1 {
			sbc.Flag = types.TBZ
		}
		if label == "" {
			return
		}
		f, err := types.NewNodeFlag(label)
		if err != nil {
			return sbc, fmt.Errorf("%w: %v", InputParameters.ErrInvalidParameter, err)
		}
		if f.Skip() || f.Dirichlet() == f.Flux() {
			return sbc, fmt.Errorf("%w: surface condition %q needs one of a fixed temperature or a flux",
				InputParameters.ErrInvalidParameter, label)
		}
		sbc.Flag = f
		return
	}
	if bc.Top, err = surface(ip.TopTBC, rc.TopBC, ip.TopTBCVal); err != nil {
		return
	}
	bc.Bottom, err = surface(ip.BotTBC, rc.BottomBC, ip.BotTBCVal)
	return
}

// RunEnergy partitions the mesh over rc.Ranks goroutine ranks and runs the
// solver on each. It returns the last report of rank 0.
func RunEnergy(rc RunConfig, ip *InputParameters.EnergyParameters, logger *logrus.Logger) (
	last Energy.Report, runID string, err error) {
	if rc.Ranks < 1 || rc.CapsPer < 1 {
		err = fmt.Errorf("%w: %d ranks with %d caps each",
			InputParameters.ErrInvalidParameter, rc.Ranks, rc.CapsPer)
		return
	}
	g, err := NewGrid(rc)
	if err != nil {
		return
	}
	bc, err := NewBoundary(ip, rc)
	if err != nil {
		return
	}
	var sinks []Energy.Sink
	runID = uuid.NewString()
	if rc.History != "" {
		var (
			store *history.Store
			run   *history.Run
		)
		if store, err = history.Open(rc.History); err != nil {
			return
		}
		defer store.Close()
		if run, err = store.BeginRun(ip.Title); err != nil {
			return
		}
		runID = run.ID
		sinks = append(sinks, run)
	}
	log := logger.WithField("run", runID)
	sinks = append(sinks, Energy.LogSink{Log: log})
	if rc.Monitor != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		hub := monitor.NewHub(runID, log)
		go hub.Run(ctx)
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv := &http.Server{Addr: rc.Monitor, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("monitor server")
			}
		}()
		defer srv.Shutdown(ctx)
		sinks = append(sinks, hub)
	}

	comms := parallel.NewGroup(rc.Ranks)
	err = parallel.Launch(comms, func(comm parallel.Collective) (err error) {
		var (
			r    = comm.Rank()
			caps []*mesh.Cap
			ref  Energy.RefState
			s    *Energy.Solver
		)
		// Every rank builds the same partition and keeps its own caps
		if caps, err = mesh.Partition(g, bc, rc.Ranks*rc.CapsPer); err != nil {
			return
		}
		if ref, err = Energy.NewRefState(caps[0].NLayers, ip.Expansivity, ip.Density); err != nil {
			return
		}
		mine := caps[r*rc.CapsPer : (r+1)*rc.CapsPer]
		if s, err = Energy.NewSolver(ip, mine, ref, nil, comm, log); err != nil {
			return
		}
		Energy.InitializeSolution(s.State, g, ip)
		if ip.ADV {
			Energy.ConvectionCell(s.State, g, ip.VelocityScale)
		}
		rep := s.Run(sinks...)
		if r == 0 {
			last = rep
		}
		return
	})
	return
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c")).Width(14)
	stopStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f38ba8"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Summary renders the final report of a run.
func Summary(rc RunConfig, runID string, r Energy.Report) string {
	var b strings.Builder
	row := func(w io.Writer, key, format string, args ...interface{}) {
		fmt.Fprintf(w, "%s%s\n", keyStyle.Render(key), fmt.Sprintf(format, args...))
	}
	fmt.Fprintln(&b, titleStyle.Render("gocitcom "+rc.Geometry))
	row(&b, "run", "%s", runID)
	row(&b, "ranks", "%d x %d caps", rc.Ranks, rc.CapsPer)
	row(&b, "steps", "%d", r.Step)
	row(&b, "total steps", "%d", r.TotalSteps)
	row(&b, "elapsed", "%.6g", r.Elapsed)
	row(&b, "timestep", "%.6g", r.Timestep)
	row(&b, "Tmax", "%.6g", r.Tmax)
	row(&b, "heating", "visc %.6g adi %.6g", r.ViscHeating, r.AdiHeating)
	if r.Stop {
		fmt.Fprint(&b, stopStyle.Render("stopped after the maximum number of rollbacks"))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
