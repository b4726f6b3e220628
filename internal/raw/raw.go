package raw

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

type Node interface {
	LineNumber() int
}

type Target int

const (
	Scalar Target = iota
	OpenCL
	SIMD
)

var TargetStrings = []string{
	Scalar: "Scalar",
	OpenCL: "OpenCL",
	SIMD:   "SIMD",
}

func (t Target) String() string {
	if int(t) < len(TargetStrings) {
		return TargetStrings[t]
	}
	return "Target(" + strconv.Itoa(int(t)) + ")"
}

type Config struct {
	LineNum  int
	Prefix   string
	Target   Target
	ElemType string
}

func (c *Config) LineNumber() int { return c.LineNum }

type Observation struct {
	LineNum          int
	Channels         int
	DMs              int
	SamplesPerSecond int
	Padding          int
}

func (o *Observation) LineNumber() int { return o.LineNum }

type Band struct {
	LineNum          int
	MinFreq          float64
	ChannelBandwidth float64
	FirstDM          float64
	DMStep           float64
}

func (b *Band) LineNumber() int { return b.LineNum }

type Tiling struct {
	LineNum          int
	SamplesPerBlock  int
	DMsPerBlock      int
	SamplesPerThread int
	DMsPerThread     int
	LocalMemory      bool
}

func (t *Tiling) LineNumber() int { return t.LineNum }

type Seg struct {
	Doc     string
	Label   string
	Default string
	Choices []string
	Parse   func(string) (interface{}, error)
}

type Tail struct {
	Doc   string
	Segs  []*Seg
	Parse func(int, []interface{}) Node
}

var Guide = make(map[string]*Tail)

const Binder = "="

func Parse(text string) ([]Node, error) {
	const (
		pre = "parse failed: "
		wln = pre + "line %d: "
		eg  = wln + "expected %s" + Binder + "%s (for example)"
	)
	if n := len(text); n == 0 {
		return nil, nil
	} else if text[n-1] != '\n' {
		return nil, errors.New(pre + "expected final newline")
	}
	var nodes []Node
	const (
		headSpace int = iota
		headToken
		tailSpace
		tailToken
	)
	phase := headSpace
	i, lineHead, line := 0, 0, 1
	var tail *Tail
	var vals []interface{}
	for j, jj := range text {
		if !unicode.IsSpace(jj) {
			if phase == headSpace {
				phase, i, lineHead = headToken, j, line
			} else if phase == tailSpace {
				phase, i = tailToken, j
			}
			continue
		}
		if phase == headToken {
			phase = tailSpace
			if tail = Guide[text[i:j]]; tail == nil {
				heads := make([]string, 0, len(Guide))
				for head := range Guide {
					heads = append(heads, head)
				}
				sort.Strings(heads)
				return nil, errors.Errorf(wln+"%s", line, errExpected(heads).Error())
			}
		} else if phase == tailToken {
			seg := tail.Segs[len(vals)]
			parts := strings.Split(text[i:j], Binder)
			if len(parts) != 2 || parts[0] != seg.Label {
				return nil, errors.Errorf(eg, line, seg.Label, seg.Default)
			}
			val, err := seg.Parse(parts[1])
			if err != nil {
				return nil, errors.Errorf(wln+"%s: %s", line, seg.Label, err.Error())
			}
			vals = append(vals, val)
			if len(vals) == len(tail.Segs) {
				nodes = append(nodes, tail.Parse(lineHead, vals))
				phase, vals = headSpace, vals[:0]
			} else {
				phase = tailSpace
			}
		}
		if jj == '\n' {
			line += 1
		}
	}
	if phase == tailSpace {
		seg := tail.Segs[len(vals)]
		return nil, errors.Errorf(eg, line, seg.Label, seg.Default)
	}
	return nodes, nil
}

const (
	identStr  = `^[a-zA-Z][a-zA-Z0-9]*$`
	ctypeStr  = `^[a-zA-Z_][a-zA-Z0-9_]*$`
	posIntStr = `^[1-9][0-9]*$`
	floatStr  = `^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`
)

var (
	identRE  = regexp.MustCompile(identStr)
	ctypeRE  = regexp.MustCompile(ctypeStr)
	posIntRE = regexp.MustCompile(posIntStr)
	floatRE  = regexp.MustCompile(floatStr)
)

const (
	identDoc  = "Must be a letter followed by zero or more letters/digits: " + identStr
	ctypeDoc  = "Must be a single C type name token: " + ctypeStr
	posIntDoc = "Must be a positive integer: " + posIntStr
	floatDoc  = "Must be a simple float: " + floatStr
	boolDoc   = "Must be true or false."
)

var (
	errGap      = errors.New("unexpected gap after " + Binder)
	errRejected = errors.New("rejected")
	boolStrings = []string{"false", "true"}
)

func errMatch(a, b string) error {
	return errors.New(a + "does not match " + b)
}

func errExpected(a []string) error {
	return errors.New("expected " + strings.Join(a, " or "))
}

func ident(a string) (interface{}, error) {
	if !identRE.MatchString(a) {
		if a == "" {
			return nil, errGap
		}
		return nil, errMatch("", identStr)
	}
	return a, nil
}

func ctype(a string) (interface{}, error) {
	if !ctypeRE.MatchString(a) {
		if a == "" {
			return nil, errGap
		}
		return nil, errMatch("", ctypeStr)
	}
	return a, nil
}

func posInt(a string, r int) (interface{}, error) {
	if !posIntRE.MatchString(a) {
		if a == "" {
			return nil, errGap
		}
		return nil, errMatch("", posIntStr)
	}
	n, err := strconv.Atoi(a)
	if err != nil {
		return nil, err
	}
	if n >= r {
		return nil, errRejected
	}
	return n, nil
}

func float(a string) (interface{}, error) {
	if !floatRE.MatchString(a) {
		if a == "" {
			return nil, errGap
		}
		return nil, errMatch("", floatStr)
	}
	n, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func boolean(a string) (interface{}, error) {
	for i, s := range boolStrings {
		if a == s {
			return i == 1, nil
		}
	}
	if a == "" {
		return nil, errGap
	}
	return nil, errExpected(boolStrings)
}

func count(label, def, doc string) *Seg {
	return &Seg{
		Doc:     doc + " " + posIntDoc,
		Label:   label,
		Default: def,
		Parse: func(a string) (interface{}, error) {
			return posInt(a, 1<<31)
		},
	}
}

func decimal(label, def, doc string) *Seg {
	return &Seg{
		Doc:     doc + " " + floatDoc,
		Label:   label,
		Default: def,
		Parse:   float,
	}
}

func initConfigPrefix() *Seg {
	return &Seg{
		Doc: "A string used for the names of generated files. " +
			"The kernel function itself is always called dedispersion. " +
			identDoc,
		Label:   "Prefix",
		Default: "dedisp",
		Parse:   ident,
	}
}

func initConfigTarget() *Seg {
	return &Seg{
		Doc: "The kind of kernel source to generate. " +
			TargetStrings[Scalar] + " is the sequential C reference. " +
			TargetStrings[OpenCL] + " is a tiled OpenCL C kernel, one work-item per " +
			"SamplesPerThread x DMsPerThread cell group. " +
			TargetStrings[SIMD] + " is C99 with OpenMP and 8-wide AVX intrinsics.",
		Label:   "Target",
		Default: TargetStrings[OpenCL],
		Choices: TargetStrings,
		Parse: func(a string) (interface{}, error) {
			for i, s := range TargetStrings {
				if a == s {
					return Target(i), nil
				}
			}
			if a == "" {
				return nil, errGap
			}
			return nil, errExpected(TargetStrings)
		},
	}
}

func initConfigElemType() *Seg {
	return &Seg{
		Doc: "The element type of the input and output arrays, spliced verbatim into " +
			"the generated source. The SIMD target requires float. " +
			ctypeDoc,
		Label:   "ElemType",
		Default: "float",
		Parse:   ctype,
	}
}

func initConfig() {
	Guide["Config"] = &Tail{
		Doc: "Settings for the code generator.",
		Segs: []*Seg{
			initConfigPrefix(),
			initConfigTarget(),
			initConfigElemType(),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Config{
				LineNum:  l,
				Prefix:   a[0].(string),
				Target:   a[1].(Target),
				ElemType: a[2].(string),
			}
		},
	}
}

func initObservation() {
	Guide["Observation"] = &Tail{
		Doc: "The static shape of the observation. Input is laid out channel-major " +
			"with one dispersed channel (samples per second plus the largest delay, " +
			"padded) per row. Output is DM-major with one padded second per row.",
		Segs: []*Seg{
			count("Channels", "1024", "Number of frequency channels."),
			count("DMs", "256", "Number of trial dispersion measures."),
			count("SamplesPerSecond", "20480", "Number of time samples per second of data."),
			count("Padding", "32", "Alignment, in elements, of the channel and sample dimensions."),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Observation{
				LineNum:          l,
				Channels:         a[0].(int),
				DMs:              a[1].(int),
				SamplesPerSecond: a[2].(int),
				Padding:          a[3].(int),
			}
		},
	}
}

func initBand() {
	Guide["Band"] = &Tail{
		Doc: "Receiver band and DM trial grid. Channel 0 is the lowest frequency; " +
			"delays are measured relative to the highest channel.",
		Segs: []*Seg{
			decimal("MinFreq", "1425", "Center frequency of channel 0 in MHz."),
			decimal("ChannelBandwidth", "0.195", "Width of one channel in MHz."),
			decimal("FirstDM", "0", "First trial DM in pc/cm^3."),
			decimal("DMStep", "0.25", "Distance between trial DMs in pc/cm^3."),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Band{
				LineNum:          l,
				MinFreq:          a[0].(float64),
				ChannelBandwidth: a[1].(float64),
				FirstDM:          a[2].(float64),
				DMStep:           a[3].(float64),
			}
		},
	}
}

func initTiling() {
	Guide["Tiling"] = &Tail{
		Doc: "Work decomposition. A block (OpenCL work-group) is SamplesPerBlock x DMsPerBlock " +
			"threads; each thread accumulates SamplesPerThread x DMsPerThread output cells. " +
			"The Scalar target ignores everything but must still be given valid values.",
		Segs: []*Seg{
			count("SamplesPerBlock", "32", "Threads per block along the sample dimension."),
			count("DMsPerBlock", "8", "Threads per block along the DM dimension."),
			count("SamplesPerThread", "4", "Samples each thread accumulates (unroll factor)."),
			count("DMsPerThread", "2", "DMs each thread accumulates (unroll factor)."),
			{
				Doc: "Stage each channel's input window in OpenCL local memory before " +
					"accumulating. Only meaningful for the OpenCL target. " + boolDoc,
				Label:   "LocalMemory",
				Default: "true",
				Choices: boolStrings,
				Parse:   boolean,
			},
		},
		Parse: func(l int, a []interface{}) Node {
			return &Tiling{
				LineNum:          l,
				SamplesPerBlock:  a[0].(int),
				DMsPerBlock:      a[1].(int),
				SamplesPerThread: a[2].(int),
				DMsPerThread:     a[3].(int),
				LocalMemory:      a[4].(bool),
			}
		},
	}
}

// Line renders a node back into the description language.
func Line(node Node) string {
	var head string
	var vals []string
	switch n := node.(type) {
	case *Config:
		head = "Config"
		vals = []string{n.Prefix, n.Target.String(), n.ElemType}
	case *Observation:
		head = "Observation"
		vals = []string{
			strconv.Itoa(n.Channels), strconv.Itoa(n.DMs),
			strconv.Itoa(n.SamplesPerSecond), strconv.Itoa(n.Padding),
		}
	case *Band:
		head = "Band"
		vals = []string{
			ftoa(n.MinFreq), ftoa(n.ChannelBandwidth),
			ftoa(n.FirstDM), ftoa(n.DMStep),
		}
	case *Tiling:
		head = "Tiling"
		vals = []string{
			strconv.Itoa(n.SamplesPerBlock), strconv.Itoa(n.DMsPerBlock),
			strconv.Itoa(n.SamplesPerThread), strconv.Itoa(n.DMsPerThread),
			strconv.FormatBool(n.LocalMemory),
		}
	default:
		panic("bug")
	}
	segs := Guide[head].Segs
	parts := make([]string, 0, 1+len(vals))
	parts = append(parts, head)
	for i, val := range vals {
		parts = append(parts, segs[i].Label+Binder+val)
	}
	return strings.Join(parts, " ")
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func init() {
	initConfig()
	initObservation()
	initBand()
	initTiling()
}
