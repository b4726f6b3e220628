package plan

import (
	"dedisp/internal/compile/author/avx"
	"dedisp/internal/obs"
	"dedisp/internal/raw"
	"dedisp/internal/shifts"

	"github.com/pkg/errors"
)

type Tiling struct {
	SamplesPerBlock  int
	DMsPerBlock      int
	SamplesPerThread int
	DMsPerThread     int
	LocalMemory      bool
	ElemType         string
}

func (t *Tiling) TotalSamplesPerBlock() int { return t.SamplesPerBlock * t.SamplesPerThread }
func (t *Tiling) TotalDMsPerBlock() int     { return t.DMsPerBlock * t.DMsPerThread }
func (t *Tiling) TotalThreads() int         { return t.SamplesPerBlock * t.DMsPerBlock }

// Plan is everything a kernel author needs. It is immutable once built and
// safe to share between concurrent authors.
type Plan struct {
	Prefix string
	Target raw.Target
	Tiling Tiling
	Obs    *obs.Observation
	Shifts *shifts.Table
}

// New checks every precondition the kernel authors rely on, so that
// authoring itself cannot fail or index out of range.
func New(prefix string, target raw.Target, t Tiling, o *obs.Observation, tab *shifts.Table) (*Plan, error) {
	if prefix == "" {
		return nil, errors.New("plan: empty prefix")
	}
	if err := check(target, &t, o, tab); err != nil {
		return nil, errors.Wrapf(err, "%s plan", target)
	}
	return &Plan{Prefix: prefix, Target: target, Tiling: t, Obs: o, Shifts: tab}, nil
}

func check(target raw.Target, t *Tiling, o *obs.Observation, tab *shifts.Table) error {
	switch {
	case t.SamplesPerBlock < 1:
		return errors.Errorf("samples per block is %d", t.SamplesPerBlock)
	case t.DMsPerBlock < 1:
		return errors.Errorf("DMs per block is %d", t.DMsPerBlock)
	case t.SamplesPerThread < 1:
		return errors.Errorf("samples per thread is %d", t.SamplesPerThread)
	case t.DMsPerThread < 1:
		return errors.Errorf("DMs per thread is %d", t.DMsPerThread)
	case t.ElemType == "":
		return errors.New("empty element type")
	case o == nil || tab == nil:
		return errors.New("missing observation or shift table")
	}
	if tab.NrDMs() != o.NrDMs() ||
		tab.NrChannels() != o.NrChannels() ||
		tab.Stride() != o.NrPaddedChannels() {
		return errors.Errorf("shift table is %dx%d (stride %d), observation is %dx%d (stride %d)",
			tab.NrDMs(), tab.NrChannels(), tab.Stride(),
			o.NrDMs(), o.NrChannels(), o.NrPaddedChannels())
	}
	if need := o.NrSamplesPerSecond() + tab.Max(); o.NrSamplesPerDispersedChannel() < need {
		return errors.Errorf("%d samples per dispersed channel, need %d (%d samples + max shift %d)",
			o.NrSamplesPerDispersedChannel(), need, o.NrSamplesPerSecond(), tab.Max())
	}
	var (
		dms     = o.NrDMs()
		samples = o.NrSamplesPerSecond()
	)
	switch target {
	case raw.Scalar:
	case raw.OpenCL:
		tdms := t.TotalDMsPerBlock()
		tsamples := t.TotalSamplesPerBlock()
		if dms < tdms {
			return errors.Errorf("%d DMs is less than %d DMs per block", dms, tdms)
		}
		if dms%tdms != 0 {
			return errors.Errorf("%d DMs is not a multiple of %d DMs per block", dms, tdms)
		}
		if samples%tsamples != 0 {
			return errors.Errorf("%d samples is not a multiple of %d samples per block", samples, tsamples)
		}
	case raw.SIMD:
		if t.ElemType != "float" {
			return errors.Errorf("element type %q, the %d-wide kernel needs float", t.ElemType, avx.Lanes)
		}
		if dms%t.DMsPerThread != 0 {
			return errors.Errorf("%d DMs is not a multiple of %d DMs per thread", dms, t.DMsPerThread)
		}
		if step := avx.Lanes * t.SamplesPerThread; samples%step != 0 {
			return errors.Errorf("%d samples is not a multiple of %d (%d lanes x %d samples per thread)",
				samples, step, avx.Lanes, t.SamplesPerThread)
		}
	default:
		return errors.Errorf("unknown target %d", int(target))
	}
	return nil
}
