/*
 * fragment.go, part of fraggrow.
 *
 * Copyright 2026 The fraggrow authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/chemjson"
	"github.com/rmera/fraggrow/chemplot"
	"github.com/rmera/fraggrow/chemstat"
	"github.com/rmera/fraggrow/fragments"
	"github.com/rmera/fraggrow/internal/cli"
	"github.com/rmera/fraggrow/internal/ctxlog"
	"github.com/rmera/fraggrow/rng"
	"github.com/rmera/fraggrow/stf"
	"golang.org/x/sync/errgroup"
)

// molecule is one input structure, named after its file and its
// position in it.
type molecule struct {
	name  string
	graph *chem.Graph
}

func readMolecules(names []string, table chem.SpeciesTable, cutoff float64) ([]molecule, error) {
	var ret []molecule
	for _, name := range names {
		graphs, _, err := chem.XYZFileRead(name, table, cutoff)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		for i, g := range graphs {
			ret = append(ret, molecule{name: fmt.Sprintf("%s:%d", name, i), graph: g})
		}
	}
	return ret, nil
}

// fragmentWriter hides whether fragments go to an STF file or to JSON lines.
type fragmentWriter interface {
	Write(*fragments.Fragment) error
	Close() error
}

type jsonWriter struct {
	f   *os.File
	enc *json.Encoder
}

func (J *jsonWriter) Write(F *fragments.Fragment) error {
	if err := chemjson.EncodeFragment(F, J.enc); err != nil {
		return err
	}
	return nil
}

func (J *jsonWriter) Close() error {
	return J.f.Close()
}

func createFragmentWriter(name string, header stf.Header) (fragmentWriter, error) {
	if strings.ToLower(filepath.Ext(name)) == ".jsonl" {
		f, err := os.Create(name)
		if err != nil {
			return nil, err
		}
		return &jsonWriter{f: f, enc: json.NewEncoder(f)}, nil
	}
	w, err := stf.Create(name, header)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// fragment sequences every input molecule, each with its own key, and
// writes the fragments in input order. Molecules that can't be fully
// grown are skipped.
func fragment(ctx context.Context, outW io.Writer, cmd *cli.Command) error {
	log := ctxlog.FromContext(ctx)
	cfg := cmd.Config
	table, err := cfg.Table()
	if err != nil {
		return err
	}
	opts := cfg.FragmentOptions()
	mols, err := readMolecules(cmd.Inputs, table, cfg.Cutoff)
	if err != nil {
		return err
	}
	log.Info("Molecules read.", "molecules", len(mols), "files", len(cmd.Inputs))

	root := rng.New(cfg.Generation.Seed)
	sequences := make([][]*fragments.Fragment, len(mols))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cmd.Workers)
	for i, m := range mols {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			frags, err := fragments.Sequence(root.FoldIn(uint64(i)), m.graph, table, opts)
			if errors.Is(err, chem.ErrStarvation) {
				log.Warn("Skipping molecule.", "molecule", m.name, "error", err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("fragmenting %s: %w", m.name, err)
			}
			log.Debug("Molecule fragmented.", "molecule", m.name, "fragments", len(frags))
			sequences[i] = frags
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	header := stf.Header{
		Table:  table,
		Cutoff: cfg.Cutoff,
		Dims:   opts.Dims(table),
		Extra: map[string]string{
			"mode": string(opts.Mode),
			"seed": strconv.FormatUint(cfg.Generation.Seed, 10),
		},
	}
	w, err := createFragmentWriter(cmd.Output, header)
	if err != nil {
		return fmt.Errorf("creating %s: %w", cmd.Output, err)
	}
	var all []*fragments.Fragment
	skipped := 0
	for _, frags := range sequences {
		if frags == nil {
			skipped++
			continue
		}
		for _, f := range frags {
			if err := w.Write(f); err != nil {
				w.Close()
				return fmt.Errorf("writing %s: %w", cmd.Output, err)
			}
		}
		all = append(all, frags...)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", cmd.Output, err)
	}
	log.Info("Fragments written.", "file", cmd.Output, "fragments", len(all), "skipped", skipped)

	if cfg.Output.Plot != "" {
		for _, frags := range sequences {
			if frags == nil {
				continue
			}
			if err := chemplot.Growth(frags, "Fragment sequence", cfg.Output.Plot); err != nil {
				return err
			}
			break
		}
	}
	fmt.Fprintf(outW, "%d molecules fragmented, %d skipped\n%s\n", len(mols)-skipped, skipped, chemstat.SummarizeFragments(all))
	return nil
}
