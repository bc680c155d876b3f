/*
 * inspect.go, part of fraggrow.
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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rmera/fraggrow/chemjson"
	"github.com/rmera/fraggrow/chemplot"
	"github.com/rmera/fraggrow/chemstat"
	"github.com/rmera/fraggrow/fragments"
	"github.com/rmera/fraggrow/internal/cli"
	"github.com/rmera/fraggrow/internal/ctxlog"
	"github.com/rmera/fraggrow/stf"
)

// readJSONFragments reads a JSON lines fragment file, building the graphs
// with the given cutoff.
func readJSONFragments(name string, cutoff float64) ([]*fragments.Fragment, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	stream := bufio.NewReader(f)
	var ret []*fragments.Fragment
	for {
		F, err := chemjson.DecodeFragment(stream, cutoff)
		if err == io.EOF {
			return ret, nil
		}
		if err != nil {
			return nil, fmt.Errorf("fragment %d: %w", len(ret), err)
		}
		ret = append(ret, F)
	}
}

// readSTF reads every fragment of an STF file, and describes its header.
func readSTF(name string) ([]*fragments.Fragment, string, error) {
	R, err := stf.Open(name)
	if err != nil {
		return nil, "", err
	}
	defer R.Close()
	h := R.Header()
	symbols := make([]string, h.Table.Len())
	for i := range symbols {
		symbols[i] = h.Table.Symbol(i)
	}
	desc := fmt.Sprintf("species %s, cutoff %g, %d foci x %d targets", strings.Join(symbols, " "), h.Cutoff, h.Dims.NumFoci, h.Dims.MaxTargets)
	keys := make([]string, 0, len(h.Extra))
	for k := range h.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		desc += fmt.Sprintf(", %s=%s", k, h.Extra[k])
	}
	var ret []*fragments.Fragment
	for {
		F, err := R.Next()
		if err == io.EOF {
			return ret, desc, nil
		}
		if err != nil {
			return nil, "", err
		}
		ret = append(ret, F)
	}
}

// inspect prints a summary of each fragment file given.
func inspect(ctx context.Context, outW io.Writer, cmd *cli.Command) error {
	log := ctxlog.FromContext(ctx)
	var first []*fragments.Fragment
	for _, name := range cmd.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		var frags []*fragments.Fragment
		var desc string
		var err error
		if strings.ToLower(filepath.Ext(name)) == ".jsonl" {
			frags, err = readJSONFragments(name, cmd.Config.Cutoff)
			desc = fmt.Sprintf("JSON lines, cutoff %g", cmd.Config.Cutoff)
		} else {
			frags, desc, err = readSTF(name)
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		log.Debug("Fragment file read.", "file", name, "fragments", len(frags))
		S := chemstat.SummarizeFragments(frags)
		fmt.Fprintf(outW, "%s: %s\n%s\n", name, desc, S)
		if S.Atoms != nil {
			fmt.Fprintf(outW, "atoms per fragment:\n%s\n", S.Atoms.Histo)
		}
		if first == nil && len(frags) > 0 {
			first = frags
		}
	}
	if cmd.Config.Output.Plot != "" && first != nil {
		//Only up to the first terminal fragment, i.e. one sequence.
		for i, f := range first {
			if f.Stop {
				first = first[:i+1]
				break
			}
		}
		if err := chemplot.Growth(first, "Fragment sequence", cmd.Config.Output.Plot); err != nil {
			return err
		}
	}
	return nil
}
