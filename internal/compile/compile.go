package compile

import (
	"fmt"

	"dedisp/internal/compile/author"
	"dedisp/internal/compile/author/tobuild"
	"dedisp/internal/compile/plan"
	"dedisp/internal/obs"
	"dedisp/internal/raw"
	"dedisp/internal/shifts"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

type Result struct {
	Name string
	Ext  string
	Src  []byte
	Plan *plan.Plan
}

func Compile(text string) (*Result, error) {
	pr, err := Prepare(text)
	if err != nil {
		return nil, err
	}
	pl, err := pr.Plan(*pr.Tiling)
	if err != nil {
		return nil, errors.Wrap(err, "compile failed")
	}
	return Implement(pl), nil
}

// Implement authors the kernel of a plan that was already built.
func Implement(pl *plan.Plan) *Result {
	src := author.Implement(pl)
	klog.V(1).Infof("authored %s: %d bytes of %s source", pl.Prefix, len(src), pl.Target)
	return &Result{
		Name: pl.Prefix,
		Ext:  tobuild.Ext(pl),
		Src:  src,
		Plan: pl,
	}
}

// Prepared is a parsed and validated description with its shift table
// computed. Plan can be called any number of times, concurrently, to try
// different tilings against the same observation.
type Prepared struct {
	Config *raw.Config
	Tiling *raw.Tiling
	Band   obs.Band
	Obs    *obs.Observation
	Shifts *shifts.Table
}

func Prepare(text string) (*Prepared, error) {
	nodes, err := raw.Parse(text)
	if err != nil {
		return nil, err
	}
	st := &state{nodes: nodes}
	if err := st.stages(); err != nil {
		return nil, errors.Wrap(err, "compile failed")
	}
	return &Prepared{
		Config: st.config,
		Tiling: st.tiling,
		Band:   st.band,
		Obs:    st.obs,
		Shifts: st.shifts,
	}, nil
}

func (pr *Prepared) Plan(tl raw.Tiling) (*plan.Plan, error) {
	pl, err := plan.New(
		pr.Config.Prefix,
		pr.Config.Target,
		plan.Tiling{
			SamplesPerBlock:  tl.SamplesPerBlock,
			DMsPerBlock:      tl.DMsPerBlock,
			SamplesPerThread: tl.SamplesPerThread,
			DMsPerThread:     tl.DMsPerThread,
			LocalMemory:      tl.LocalMemory,
			ElemType:         pr.Config.ElemType,
		},
		pr.Obs,
		pr.Shifts,
	)
	if err != nil {
		if tl.LineNum != 0 {
			return nil, anError(err.Error(), tl.LineNum)
		}
		return nil, err
	}
	return pl, nil
}

func anError(msg string, lines ...int) error {
	var pre string
	switch len(lines) {
	case 0:
	case 1:
		pre = fmt.Sprintf("line %d: ", lines[0])
	case 2:
		l0, l1 := lines[0], lines[1]
		if l0 > l1 {
			l0, l1 = l1, l0
		}
		pre = fmt.Sprintf("lines %d and %d: ", l0, l1)
	default:
		panic("bug")
	}
	return errors.New(pre + msg)
}

type state struct {
	nodes  []raw.Node
	config *raw.Config
	tiling *raw.Tiling
	band   obs.Band
	obsn   *raw.Observation
	bandn  *raw.Band
	obs    *obs.Observation
	shifts *shifts.Table
}

var stages = [...]func(*state) error{
	(*state).stage1,
	(*state).stage2,
	(*state).stage3,
}

func (st *state) stages() error {
	for _, stage := range &stages {
		if err := stage(st); err != nil {
			return err
		}
	}
	return nil
}

// stage1 requires exactly one node of each kind.
func (st *state) stage1() error {
	for _, node := range st.nodes {
		var dup raw.Node
		switch node := node.(type) {
		case *raw.Config:
			if st.config != nil {
				dup = st.config
			} else {
				st.config = node
			}
		case *raw.Observation:
			if st.obsn != nil {
				dup = st.obsn
			} else {
				st.obsn = node
			}
		case *raw.Band:
			if st.bandn != nil {
				dup = st.bandn
			} else {
				st.bandn = node
			}
		case *raw.Tiling:
			if st.tiling != nil {
				dup = st.tiling
			} else {
				st.tiling = node
			}
		default:
			panic("bug")
		}
		if dup != nil {
			return anError("more than one "+head(node)+" line", dup.LineNumber(), node.LineNumber())
		}
	}
	switch {
	case st.config == nil:
		return anError("missing Config line")
	case st.obsn == nil:
		return anError("missing Observation line")
	case st.bandn == nil:
		return anError("missing Band line")
	case st.tiling == nil:
		return anError("missing Tiling line")
	}
	klog.V(1).Infof("description %s: target %s, element %s",
		st.config.Prefix, st.config.Target, st.config.ElemType)
	return nil
}

func head(node raw.Node) string {
	switch node.(type) {
	case *raw.Config:
		return "Config"
	case *raw.Observation:
		return "Observation"
	case *raw.Band:
		return "Band"
	case *raw.Tiling:
		return "Tiling"
	default:
		panic("bug")
	}
}

// stage2 builds the observation and checks the band.
func (st *state) stage2() error {
	n := st.obsn
	o, err := obs.New(obs.Params{
		Channels:         n.Channels,
		DMs:              n.DMs,
		SamplesPerSecond: n.SamplesPerSecond,
		Padding:          n.Padding,
	})
	if err != nil {
		return anError(err.Error(), n.LineNum)
	}
	b := obs.Band{
		MinFreq:          st.bandn.MinFreq,
		ChannelBandwidth: st.bandn.ChannelBandwidth,
		FirstDM:          st.bandn.FirstDM,
		DMStep:           st.bandn.DMStep,
	}
	if err := b.Check(); err != nil {
		return anError(err.Error(), st.bandn.LineNum)
	}
	st.obs, st.band = o, b
	return nil
}

// stage3 computes the shift table and widens each input channel to hold
// the largest delay.
func (st *state) stage3() error {
	tab, err := shifts.Compute(st.obs, st.band)
	if err != nil {
		return anError(err.Error(), st.obsn.LineNum, st.bandn.LineNum)
	}
	o, err := st.obs.WithDispersedSamples(st.obs.NrSamplesPerSecond() + tab.Max())
	if err != nil {
		return anError(err.Error(), st.obsn.LineNum)
	}
	klog.V(1).Infof("shift table %dx%d, max shift %d, %d samples per dispersed channel",
		tab.NrDMs(), tab.NrChannels(), tab.Max(), o.NrSamplesPerDispersedChannel())
	st.obs, st.shifts = o, tab
	return nil
}
