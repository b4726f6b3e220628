package doc

import (
	"strings"
	"unicode"

	"dedisp/internal/raw"
)

const (
	empty   = ""
	space   = " "
	dash    = "-"
	newline = "\n"
	indent  = space + space + space + space
	divider = dash + dash + dash + dash + newline
	width   = 80
)

// Heads is the order in which a description normally lists its lines.
var Heads = [...]string{
	"Config",
	"Observation",
	"Band",
	"Tiling",
}

const intro = "A description is plain text with one line per setting group. " +
	"Each line is a head word followed by Label" + raw.Binder + "value pairs " +
	"separated by whitespace, with every label present and in the order shown. " +
	"The text must end with a newline. Each of the four heads must appear " +
	"exactly once; their order does not matter."

func line(to []byte, dent, text string) []byte {
	to = append(to, dent...)
	to = append(to, text...)
	to = append(to, newline...)
	return to
}

// para word-wraps text at width, prefixing every line with dent.
func para(to []byte, dent, text string) []byte {
	to = append(to, newline...)
	fit := width - len(dent)
	var i, j, ij, ik int
	for k, r := range text {
		if unicode.IsSpace(r) {
			if ik > fit && ij != 0 {
				to = line(to, dent, text[i:j])
				i = j + 1
				ik -= ij + 1
			}
			j, ij = k, ik
		}
		ik += 1
	}
	if ik > fit && ij != 0 {
		to = line(to, dent, text[i:j])
		i = j + 1
		ik -= ij + 1
	}
	if ik != 0 {
		to = line(to, dent, text[i:])
	}
	return to
}

// Example is a description made of every default value.
func Example() string {
	var sb strings.Builder
	for _, head := range &Heads {
		sb.WriteString(head)
		for _, seg := range raw.Guide[head].Segs {
			sb.WriteString(space + seg.Label + raw.Binder + seg.Default)
		}
		sb.WriteString(newline)
	}
	return sb.String()
}

func Bytes() (to []byte) {
	to = para(to, empty, intro)
	to = append(to, newline...)
	for _, ln := range strings.SplitAfter(Example(), newline) {
		if ln != empty {
			to = append(to, indent+ln...)
		}
	}
	for _, head := range &Heads {
		tail := raw.Guide[head]
		to = append(to, newline+divider+newline...)
		to = append(to, head+newline...)
		for _, seg := range tail.Segs {
			to = append(to, indent+seg.Label+raw.Binder+seg.Default+newline...)
		}
		to = para(to, empty, tail.Doc)
		for _, seg := range tail.Segs {
			text := seg.Label + raw.Binder + space + seg.Doc
			if len(seg.Choices) != 0 {
				text += " Choices: " + strings.Join(seg.Choices, ", ") + "."
			}
			to = para(to, indent, text)
		}
	}
	return
}
