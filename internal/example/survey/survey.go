// Package survey writes descriptions sized like real pulsar surveys.
package survey

import "dedisp/internal/raw"

type state struct {
	text []byte
}

func (st *state) line(node raw.Node) {
	st.text = append(st.text, raw.Line(node)...)
	st.text = append(st.text, '\n')
}

func text(nodes ...raw.Node) []byte {
	var st state
	for _, node := range nodes {
		st.line(node)
	}
	return st.text
}

// Apertif is the 1536 channel L-band front end, staged through local
// memory.
func Apertif() []byte {
	return text(
		&raw.Config{Prefix: "apertif", Target: raw.OpenCL, ElemType: "float"},
		&raw.Observation{Channels: 1536, DMs: 2048, SamplesPerSecond: 20480, Padding: 32},
		&raw.Band{MinFreq: 1250.09765625, ChannelBandwidth: 0.1953125, FirstDM: 0, DMStep: 0.25},
		&raw.Tiling{
			SamplesPerBlock: 64, DMsPerBlock: 8,
			SamplesPerThread: 4, DMsPerThread: 4,
			LocalMemory: true,
		},
	)
}

// LOFAR is a narrow low-frequency band where delays are long.
func LOFAR() []byte {
	return text(
		&raw.Config{Prefix: "lofar", Target: raw.OpenCL, ElemType: "float"},
		&raw.Observation{Channels: 288, DMs: 1024, SamplesPerSecond: 12288, Padding: 32},
		&raw.Band{MinFreq: 138.96484375, ChannelBandwidth: 0.01220703125, FirstDM: 0, DMStep: 0.01},
		&raw.Tiling{
			SamplesPerBlock: 32, DMsPerBlock: 4,
			SamplesPerThread: 2, DMsPerThread: 4,
			LocalMemory: false,
		},
	)
}

// Host is a small observation for the AVX kernel.
func Host() []byte {
	return text(
		&raw.Config{Prefix: "host", Target: raw.SIMD, ElemType: "float"},
		&raw.Observation{Channels: 64, DMs: 64, SamplesPerSecond: 4096, Padding: 8},
		&raw.Band{MinFreq: 1400, ChannelBandwidth: 1, FirstDM: 0, DMStep: 1},
		&raw.Tiling{
			SamplesPerBlock: 1, DMsPerBlock: 1,
			SamplesPerThread: 2, DMsPerThread: 4,
			LocalMemory: false,
		},
	)
}

// Reference is Host for the sequential C kernel.
func Reference() []byte {
	return text(
		&raw.Config{Prefix: "reference", Target: raw.Scalar, ElemType: "float"},
		&raw.Observation{Channels: 64, DMs: 64, SamplesPerSecond: 4096, Padding: 8},
		&raw.Band{MinFreq: 1400, ChannelBandwidth: 1, FirstDM: 0, DMStep: 1},
		&raw.Tiling{
			SamplesPerBlock: 1, DMsPerBlock: 1,
			SamplesPerThread: 1, DMsPerThread: 1,
			LocalMemory: false,
		},
	)
}
