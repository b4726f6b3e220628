// Package sweep generates one kernel per tiling of a candidate grid, the
// way an autotuner enumerates configurations before timing them. Tilings
// that the plan rejects are skipped, not failed.
package sweep

import (
	"crypto"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"dedisp/internal/compile"
	"dedisp/internal/compile/author/tile"
	"dedisp/internal/raw"

	"github.com/grailbio/base/digest"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var digester = digest.Digester(crypto.SHA256)

// Grid holds the candidate values of each tiling dimension. Every
// combination is tried.
type Grid struct {
	SamplesPerBlock  []int
	DMsPerBlock      []int
	SamplesPerThread []int
	DMsPerThread     []int
	LocalMemory      []bool
}

// Tilings lists the cartesian product in a fixed order, the last dimension
// varying fastest.
func (g *Grid) Tilings() []raw.Tiling {
	var ts []raw.Tiling
	for _, spb := range g.SamplesPerBlock {
		for _, dpb := range g.DMsPerBlock {
			for _, spt := range g.SamplesPerThread {
				for _, dpt := range g.DMsPerThread {
					for _, local := range g.LocalMemory {
						ts = append(ts, raw.Tiling{
							SamplesPerBlock:  spb,
							DMsPerBlock:      dpb,
							SamplesPerThread: spt,
							DMsPerThread:     dpt,
							LocalMemory:      local,
						})
					}
				}
			}
		}
	}
	return ts
}

// Entry is one manifest row.
type Entry struct {
	File             string `tsv:"file"`
	SamplesPerBlock  int    `tsv:"samples_per_block"`
	DMsPerBlock      int    `tsv:"dms_per_block"`
	SamplesPerThread int    `tsv:"samples_per_thread"`
	DMsPerThread     int    `tsv:"dms_per_thread"`
	LocalMemory      bool   `tsv:"local_memory"`
	Threads          int    `tsv:"threads"`
	BufferLen        int    `tsv:"buffer_len"`
	Bytes            int    `tsv:"bytes"`
	Digest           string `tsv:"sha256"`
}

var header = []string{
	"file",
	"samples_per_block",
	"dms_per_block",
	"samples_per_thread",
	"dms_per_thread",
	"local_memory",
	"threads",
	"buffer_len",
	"bytes",
	"sha256",
}

type Options struct {
	// Dir receives one source file per accepted tiling. Nothing is
	// written when Dir is empty.
	Dir string

	// Progress, if not nil, receives a progress bar.
	Progress io.Writer
}

// Name is the file stem of the kernel for a tiling.
func Name(prefix string, t raw.Tiling) string {
	name := fmt.Sprintf("%s_%dx%d_%dx%d",
		prefix, t.SamplesPerBlock, t.DMsPerBlock, t.SamplesPerThread, t.DMsPerThread)
	if t.LocalMemory {
		name += "_local"
	}
	return name
}

// Run authors every tiling of g that the prepared description accepts,
// in parallel. The entries keep the grid order.
func Run(pr *compile.Prepared, g *Grid, opts Options) ([]Entry, error) {
	tilings := g.Tilings()
	if len(tilings) == 0 {
		return nil, errors.New("sweep: empty grid")
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o777); err != nil {
			return nil, errors.Wrap(err, "sweep")
		}
	}
	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(tilings),
			progressbar.OptionSetDescription("sweep"),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("kernels"),
			progressbar.OptionShowIts(),
		)
	}
	var (
		entries = make([]*Entry, len(tilings))
		skipped int64
	)
	err := traverse.Parallel.Each(len(tilings), func(i int) error {
		if bar != nil {
			defer bar.Add(1)
		}
		t := tilings[i]
		pl, err := pr.Plan(t)
		if err != nil {
			atomic.AddInt64(&skipped, 1)
			klog.Warningf("skipping %s: %v", Name(pr.Config.Prefix, t), err)
			return nil
		}
		res := compile.Implement(pl)
		file := Name(res.Name, t) + res.Ext
		if opts.Dir != "" {
			if err := os.WriteFile(filepath.Join(opts.Dir, file), res.Src, 0o666); err != nil {
				return errors.Wrapf(err, "sweep: %s", file)
			}
		}
		c := tile.Derive(pl)
		entries[i] = &Entry{
			File:             file,
			SamplesPerBlock:  t.SamplesPerBlock,
			DMsPerBlock:      t.DMsPerBlock,
			SamplesPerThread: t.SamplesPerThread,
			DMsPerThread:     t.DMsPerThread,
			LocalMemory:      t.LocalMemory,
			Threads:          c.TotalThreads,
			BufferLen:        c.BufferLen,
			Bytes:            len(res.Src),
			Digest:           digester.FromBytes(res.Src).Hex(),
		}
		return nil
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(tilings))
	for _, e := range entries {
		if e != nil {
			out = append(out, *e)
		}
	}
	klog.V(1).Infof("sweep %s: %d kernels, %d tilings skipped", pr.Config.Prefix, len(out), skipped)
	return out, nil
}

// WriteManifest writes the entries as TSV with a header row.
func WriteManifest(w io.Writer, entries []Entry) error {
	tw := tsv.NewWriter(w)
	for _, h := range header {
		tw.WriteString(h)
	}
	if err := tw.EndLine(); err != nil {
		return err
	}
	for i := range entries {
		e := &entries[i]
		tw.WriteString(e.File)
		tw.WriteInt64(int64(e.SamplesPerBlock))
		tw.WriteInt64(int64(e.DMsPerBlock))
		tw.WriteInt64(int64(e.SamplesPerThread))
		tw.WriteInt64(int64(e.DMsPerThread))
		tw.WriteString(fmt.Sprint(e.LocalMemory))
		tw.WriteInt64(int64(e.Threads))
		tw.WriteInt64(int64(e.BufferLen))
		tw.WriteInt64(int64(e.Bytes))
		tw.WriteString(e.Digest)
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// ReadManifest parses what WriteManifest wrote.
func ReadManifest(r io.Reader) ([]Entry, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	var entries []Entry
	for {
		var e Entry
		err := tr.Read(&e)
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "manifest")
		}
		entries = append(entries, e)
	}
}
