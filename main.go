// NN-512 (https://NN-512.com)
//
// Copyright (C) 2019 [
//     37ef ced3 3727 60b4
//     3c29 f9c6 dc30 d518
//     f4f3 4106 6964 cab4
//     a06f c1a3 83fd 090e
// ]
//
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in
//    the documentation and/or other materials provided with the
//    distribution.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
// "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
// LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
// A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
// HOLDER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
// LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
// DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
// THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
// (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dedisp/internal/compile"
	"dedisp/internal/compile/author/avx"
	"dedisp/internal/compile/author/params"
	"dedisp/internal/compile/author/tile"
	"dedisp/internal/doc"
	"dedisp/internal/example"
	"dedisp/internal/raw"
	"dedisp/internal/sweep"
	"dedisp/internal/version"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	newline = "\n"
	space   = " "
	indent  = space + space + space + space
	usage   = newline + "Usage:" + newline + newline + indent + "dedisp" + space
)

var args []string

func readDesc(from string) (string, error) {
	if from == "-" {
		from = "/dev/stdin"
	}
	text, err := os.ReadFile(from)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

const descHelp = "The DESC argument specifies an input file that contains a" + newline +
	"description of the observation and the tiling. - means stdin." + newline +
	newline +
	indent + "Example: apertif.desc" + newline +
	indent + "Example: ../surveys/lofar" + newline +
	indent + "Example: -" + newline

func cmdCompile() error {
	if len(args) == 3 {
		text, err := readDesc(args[1])
		if err != nil {
			return err
		}
		result, err := compile.Compile(text)
		if err != nil {
			return err
		}
		const perm os.FileMode = 0666
		return os.WriteFile(filepath.Join(args[2], result.Name+result.Ext), result.Src, perm)
	}
	return errors.New(usage +
		args[0] + space + "DESC" + space + "DIR" + newline +
		newline +
		descHelp +
		newline +
		"The DIR argument specifies an output directory where the" + newline +
		"generated kernel source will be written." + newline +
		newline +
		indent + "Example: ." + newline +
		indent + "Example: /tmp/" + newline)
}

func cmdDescribe() error {
	if len(args) != 2 {
		return errors.New(usage +
			args[0] + space + "DESC" + newline +
			newline +
			descHelp)
	}
	text, err := readDesc(args[1])
	if err != nil {
		return err
	}
	result, err := compile.Compile(text)
	if err != nil {
		return err
	}
	var (
		pl = result.Plan
		o  = pl.Obs
		tl = &pl.Tiling
		c  = tile.Derive(pl)
	)
	comma := func(n int) string { return humanize.Comma(int64(n)) }
	padded := func(n, p int) string { return comma(n) + " (padded " + comma(p) + ")" }
	rows := [][]string{
		{"Kernel", result.Name + result.Ext},
		{"Target", pl.Target.String()},
		{"Element", tl.ElemType},
		{"Channels", padded(o.NrChannels(), o.NrPaddedChannels())},
		{"DMs", comma(o.NrDMs())},
		{"Samples per second", padded(o.NrSamplesPerSecond(), o.NrSamplesPerPaddedSecond())},
		{"Samples per dispersed channel", comma(o.NrSamplesPerDispersedChannel())},
		{"Max shift", comma(pl.Shifts.Max())},
	}
	if size, ok := params.ElemSize(tl.ElemType); ok {
		in := o.NrChannels() * o.NrSamplesPerDispersedChannel() * size
		out := o.NrDMs() * o.NrSamplesPerPaddedSecond() * size
		rows = append(rows,
			[]string{"Input", humanize.IBytes(uint64(in))},
			[]string{"Output", humanize.IBytes(uint64(out))},
		)
	}
	switch pl.Target {
	case raw.OpenCL:
		rows = append(rows,
			[]string{"Block", fmt.Sprintf("%d samples x %d DMs", c.TotalSamplesPerBlock, c.TotalDMsPerBlock)},
			[]string{"Work-items per group", comma(c.TotalThreads)},
			[]string{"Work-groups", comma((o.NrSamplesPerSecond() / c.TotalSamplesPerBlock) *
				(o.NrDMs() / c.TotalDMsPerBlock))},
		)
		if tl.LocalMemory {
			rows = append(rows,
				[]string{"Halo", comma(c.Halo)},
				[]string{"Local memory", params.LocalBytes(tl.ElemType, c.BufferLen)},
			)
		}
	case raw.SIMD:
		rows = append(rows,
			[]string{"Tile", fmt.Sprintf("%d samples x %d DMs", avx.Lanes*tl.SamplesPerThread, tl.DMsPerThread)},
		)
	}
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	headerStyle := cellStyle.Bold(true).Reverse(true)
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("Quantity", "Value").
		Rows(rows...)
	_, err = os.Stdout.WriteString(table.Render() + newline)
	return err
}

func cmdDoc() error {
	if len(args) > 1 {
		return errors.New(usage + args[0] + newline)
	}
	_, err := os.Stdout.Write(doc.Bytes())
	return err
}

func cmdExample() error {
	if len(args) == 2 {
		if gen := example.Generate(args[1]); gen != nil {
			_, err := os.Stdout.Write(gen)
			return err
		}
	}
	list := strings.Join(example.Names(), newline+indent)
	return errors.New(usage +
		args[0] + space + "NAME" + newline +
		newline +
		"The NAME argument can be:" + newline +
		newline +
		indent + list + newline)
}

func ints(a string) ([]int, error) {
	var ns []int
	for _, s := range strings.Split(a, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 1 {
			return nil, errors.Errorf("%q is not a list of positive integers", a)
		}
		ns = append(ns, n)
	}
	return ns, nil
}

func cmdSweep() error {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	var (
		spb   = fs.String("samples_per_block", "16,32,64,128", "candidate SamplesPerBlock values")
		dpb   = fs.String("dms_per_block", "1,2,4,8", "candidate DMsPerBlock values")
		spt   = fs.String("samples_per_thread", "1,2,4,8", "candidate SamplesPerThread values")
		dpt   = fs.String("dms_per_thread", "1,2,4,8", "candidate DMsPerThread values")
		local = fs.String("local_memory", "false,true", "candidate LocalMemory values")
	)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return errors.New(usage +
			args[0] + space + "[FLAGS]" + space + "DESC" + space + "DIR" + newline +
			newline +
			descHelp +
			newline +
			"The DIR argument specifies an output directory. One kernel" + newline +
			"per accepted tiling is written there, plus manifest.tsv." + newline +
			newline +
			"The Tiling line of DESC is ignored. Each flag is a comma" + newline +
			"separated list of candidates; every combination is tried." + newline)
	}
	var (
		g   sweep.Grid
		err error
	)
	for _, f := range []struct {
		from string
		to   *[]int
	}{
		{*spb, &g.SamplesPerBlock},
		{*dpb, &g.DMsPerBlock},
		{*spt, &g.SamplesPerThread},
		{*dpt, &g.DMsPerThread},
	} {
		if *f.to, err = ints(f.from); err != nil {
			return err
		}
	}
	for _, s := range strings.Split(*local, ",") {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return errors.Wrap(err, "local_memory")
		}
		g.LocalMemory = append(g.LocalMemory, b)
	}
	text, err := readDesc(rest[0])
	if err != nil {
		return err
	}
	pr, err := compile.Prepare(text)
	if err != nil {
		return err
	}
	dir := rest[1]
	entries, err := sweep.Run(pr, &g, sweep.Options{Dir: dir, Progress: os.Stderr})
	if err != nil {
		return err
	}
	manifest, err := os.Create(filepath.Join(dir, "manifest.tsv"))
	if err != nil {
		return err
	}
	if err := sweep.WriteManifest(manifest, entries); err != nil {
		manifest.Close()
		return err
	}
	if err := manifest.Close(); err != nil {
		return err
	}
	klog.Infof("wrote %d of %d kernels to %s", len(entries), len(g.Tilings()), dir)
	return nil
}

func cmdVersion() error {
	if len(args) > 1 {
		return errors.New(usage + args[0] + newline)
	}
	_, err := os.Stdout.WriteString(
		strconv.Itoa(version.Int) + newline,
	)
	return err
}

var cmds = [...]struct {
	name string
	hint string
	call func() error
}{
	{"compile", "Read a description and write the kernel source.", cmdCompile},
	{"describe", "Read a description and write its derived constants to stdout.", cmdDescribe},
	{"doc", "Write documentation for the description language to stdout.", cmdDoc},
	{"example", "Write an example description to stdout.", cmdExample},
	{"sweep", "Write one kernel per tiling of a candidate grid.", cmdSweep},
	{"version", "Write the version number of this program to stdout.", cmdVersion},
}

func run() error {
	if len(args) >= 1 {
		arg := args[0]
		for i := range &cmds {
			if cmds[i].name == arg {
				return cmds[i].call()
			}
		}
	}
	max := 0
	for i := range &cmds {
		if alt := len(cmds[i].name); max < alt {
			max = alt
		}
	}
	tot := max + len(indent)
	var list string
	for i := range &cmds {
		name, hint := cmds[i].name, cmds[i].hint
		align := strings.Repeat(space, tot-len(name))
		list += indent + name + align + hint + newline
	}
	return errors.New(usage +
		"[KLOG FLAGS]" + space + "COMMAND" + newline +
		newline +
		"The COMMAND argument can be:" + newline +
		newline +
		list)
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	args = flag.Args()
	err := run()
	klog.Flush()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + newline)
		os.Exit(1)
	}
	os.Exit(0)
}

var _ uint = 1 << 63
