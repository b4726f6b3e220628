// Package obs describes the static shape of an observation: how many
// channels, trial DMs and samples a kernel has to cover, and how those
// counts are padded in memory.
package obs

import "github.com/pkg/errors"

// Params are the raw counts an Observation is built from. Padding is the
// alignment, in elements, applied to the channel and sample dimensions.
// DispersedSamples may be zero, in which case it defaults to the padded
// samples per second (no room for delays); callers that know the largest
// shift pass NrSamplesPerSecond+maxShift here.
type Params struct {
	Channels         int
	DMs              int
	SamplesPerSecond int
	Padding          int
	DispersedSamples int
}

type Observation struct {
	channels         int
	paddedChannels   int
	dms              int
	samples          int
	paddedSamples    int
	dispersedSamples int
	padding          int
}

func Pad(n, to int) int {
	if r := n % to; r != 0 {
		n += to - r
	}
	return n
}

func New(p Params) (*Observation, error) {
	switch {
	case p.Channels < 1:
		return nil, errors.Errorf("observation: %d channels, need at least 1", p.Channels)
	case p.DMs < 1:
		return nil, errors.Errorf("observation: %d DMs, need at least 1", p.DMs)
	case p.SamplesPerSecond < 1:
		return nil, errors.Errorf("observation: %d samples per second, need at least 1", p.SamplesPerSecond)
	case p.Padding < 1:
		return nil, errors.Errorf("observation: padding %d, need at least 1", p.Padding)
	case p.DispersedSamples < 0:
		return nil, errors.Errorf("observation: negative dispersed samples %d", p.DispersedSamples)
	}
	o := &Observation{
		channels:       p.Channels,
		paddedChannels: Pad(p.Channels, p.Padding),
		dms:            p.DMs,
		samples:        p.SamplesPerSecond,
		paddedSamples:  Pad(p.SamplesPerSecond, p.Padding),
		padding:        p.Padding,
	}
	o.dispersedSamples = o.paddedSamples
	if p.DispersedSamples != 0 {
		if p.DispersedSamples < p.SamplesPerSecond {
			return nil, errors.Errorf("observation: %d samples per dispersed channel is less than %d samples per second",
				p.DispersedSamples, p.SamplesPerSecond)
		}
		o.dispersedSamples = Pad(p.DispersedSamples, p.Padding)
	}
	return o, nil
}

func (o *Observation) NrChannels() int                   { return o.channels }
func (o *Observation) NrPaddedChannels() int             { return o.paddedChannels }
func (o *Observation) NrDMs() int                        { return o.dms }
func (o *Observation) NrSamplesPerSecond() int           { return o.samples }
func (o *Observation) NrSamplesPerPaddedSecond() int     { return o.paddedSamples }
func (o *Observation) NrSamplesPerDispersedChannel() int { return o.dispersedSamples }
func (o *Observation) Padding() int                      { return o.padding }

// WithDispersedSamples returns a copy whose channel stride holds n samples
// (rounded up to the padding).
func (o *Observation) WithDispersedSamples(n int) (*Observation, error) {
	return New(Params{
		Channels:         o.channels,
		DMs:              o.dms,
		SamplesPerSecond: o.samples,
		Padding:          o.padding,
		DispersedSamples: n,
	})
}

// Band is the frequency layout of the receiver and the DM trial grid.
// Channel 0 is the lowest frequency.
type Band struct {
	MinFreq          float64 // MHz, center of channel 0
	ChannelBandwidth float64 // MHz
	FirstDM          float64 // pc/cm^3
	DMStep           float64 // pc/cm^3
}

func (b Band) Freq(channel int) float64 {
	return b.MinFreq + float64(channel)*b.ChannelBandwidth
}

func (b Band) DM(dm int) float64 {
	return b.FirstDM + float64(dm)*b.DMStep
}

func (b Band) Check() error {
	switch {
	case b.MinFreq <= 0:
		return errors.Errorf("band: minimum frequency %g MHz must be positive", b.MinFreq)
	case b.ChannelBandwidth <= 0:
		return errors.Errorf("band: channel bandwidth %g MHz must be positive", b.ChannelBandwidth)
	case b.FirstDM < 0:
		return errors.Errorf("band: first DM %g must not be negative", b.FirstDM)
	case b.DMStep < 0:
		return errors.Errorf("band: DM step %g must not be negative", b.DMStep)
	}
	return nil
}
