// Package shifts holds the per-(DM, channel) delay table consumed by the
// kernel authors and the generator that fills it from a Band.
//
// The table is flat, one row per DM, with a row stride equal to the padded
// channel count. For a fixed channel the shift never decreases with DM.
// Channel 0 is the lowest frequency and so carries the largest delay; the
// highest real channel is the zero-delay reference. Padded channel slots
// hold zero and are never read by a kernel.
package shifts

import (
	"math"

	"dedisp/internal/obs"

	"github.com/pkg/errors"
)

// dispersionConstant is k_DM in MHz^2 pc^-1 cm^3 s.
const dispersionConstant = 4148.808

type Table struct {
	dms      int
	channels int
	stride   int
	vals     []uint32
}

// New wraps vals as a table of dms rows and channels real columns with the
// given row stride. The slice is copied.
func New(dms, channels, stride int, vals []uint32) (*Table, error) {
	switch {
	case dms < 1 || channels < 1:
		return nil, errors.Errorf("shifts: empty table (%d DMs, %d channels)", dms, channels)
	case stride < channels:
		return nil, errors.Errorf("shifts: row stride %d is less than %d channels", stride, channels)
	case len(vals) != dms*stride:
		return nil, errors.Errorf("shifts: %d values, want %d DMs x stride %d = %d",
			len(vals), dms, stride, dms*stride)
	}
	t := &Table{
		dms:      dms,
		channels: channels,
		stride:   stride,
		vals:     append([]uint32(nil), vals...),
	}
	for dm := 1; dm < dms; dm++ {
		for ch := 0; ch < channels; ch++ {
			if t.At(dm, ch) < t.At(dm-1, ch) {
				return nil, errors.Errorf("shifts: channel %d: shift %d at DM %d is less than %d at DM %d",
					ch, t.At(dm, ch), dm, t.At(dm-1, ch), dm-1)
			}
		}
	}
	return t, nil
}

// Compute fills a table for o from the cold-plasma dispersion law,
// measuring each delay relative to the highest channel frequency and
// truncating it to whole samples.
func Compute(o *obs.Observation, b obs.Band) (*Table, error) {
	if err := b.Check(); err != nil {
		return nil, err
	}
	var (
		dms      = o.NrDMs()
		channels = o.NrChannels()
		stride   = o.NrPaddedChannels()
		rate     = float64(o.NrSamplesPerSecond())
		fmax     = b.Freq(channels - 1)
		inv      = 1 / (fmax * fmax)
	)
	vals := make([]uint32, dms*stride)
	for ch := 0; ch < channels; ch++ {
		f := b.Freq(ch)
		delta := 1/(f*f) - inv
		for dm := 0; dm < dms; dm++ {
			k := dispersionConstant * b.DM(dm)
			delay := k * delta * rate
			if math.IsNaN(delay) || delay < 0 || delay > math.MaxUint32 {
				return nil, errors.Errorf("shifts: channel %d at DM %g: delay of %g samples does not fit 32 bits",
					ch, b.DM(dm), delay)
			}
			vals[dm*stride+ch] = uint32(delay)
		}
	}
	return New(dms, channels, stride, vals)
}

func (t *Table) NrDMs() int      { return t.dms }
func (t *Table) NrChannels() int { return t.channels }
func (t *Table) Stride() int     { return t.stride }

func (t *Table) At(dm, channel int) int {
	return int(t.vals[dm*t.stride+channel])
}

// Flat returns a copy of the table in kernel memory order.
func (t *Table) Flat() []uint32 {
	return append([]uint32(nil), t.vals...)
}

// Max is the largest shift in the table.
func (t *Table) Max() int {
	most := 0
	for ch := 0; ch < t.channels; ch++ {
		if s := t.At(t.dms-1, ch); s > most {
			most = s
		}
	}
	return most
}

// Spread is the delay difference between DM hi and DM lo at channel.
func (t *Table) Spread(lo, hi, channel int) int {
	return t.At(hi, channel) - t.At(lo, channel)
}
