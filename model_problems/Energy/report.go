package Energy

import (
	"github.com/sirupsen/logrus"
)

// Report is the per step diagnostic.
type Report struct {
	Step        int     `json:"step"`
	TotalSteps  int     `json:"total_steps"`
	Rollbacks   int     `json:"rollbacks"`
	Elapsed     float64 `json:"elapsed"`
	Timestep    float64 `json:"timestep"`
	Tmax        float64 `json:"tmax"`
	ViscHeating float64 `json:"visc_heating"`
	AdiHeating  float64 `json:"adi_heating"`
	Stop        bool    `json:"stop"`
}

// Sink receives the reports of rank 0.
type Sink interface {
	Publish(r Report) error
}

type LogSink struct {
	Log *logrus.Entry
}

func (ls LogSink) Publish(r Report) error {
	entry := ls.Log.WithFields(logrus.Fields{
		"step":      r.Step,
		"total":     r.TotalSteps,
		"elapsed":   r.Elapsed,
		"dt":        r.Timestep,
		"Tmax":      r.Tmax,
		"visc":      r.ViscHeating,
		"adi":       r.AdiHeating,
		"rollbacks": r.Rollbacks,
	})
	if r.Stop {
		entry.Warn("step needed the maximum number of rollbacks, stopping")
		return nil
	}
	entry.Info("step")
	return nil
}
