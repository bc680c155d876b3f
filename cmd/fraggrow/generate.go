/*
 * generate.go, part of fraggrow.
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
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/chemjson"
	"github.com/rmera/fraggrow/chemplot"
	"github.com/rmera/fraggrow/chemstat"
	"github.com/rmera/fraggrow/generate"
	"github.com/rmera/fraggrow/internal/cli"
	"github.com/rmera/fraggrow/internal/ctxlog"
	"github.com/rmera/fraggrow/rng"
	"github.com/rmera/fraggrow/store"
	v3 "github.com/rmera/fraggrow/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// initialFragment returns the starting molecule and its name. init is
// either an XYZ file, of which the first molecule is used, or an element
// symbol, for a single atom at the origin.
func initialFragment(init string, table chem.SpeciesTable, cutoff float64) (*chem.Graph, string, error) {
	if info, err := os.Stat(init); err == nil && !info.IsDir() {
		graphs, _, err := chem.XYZFileRead(init, table, cutoff)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", init, err)
		}
		if len(graphs) == 0 {
			return nil, "", chem.NewError(chem.ErrInput, "no molecules in "+init, "initialFragment")
		}
		return graphs[0], strings.TrimSuffix(filepath.Base(init), filepath.Ext(init)), nil
	}
	s, err := table.SpeciesFromSymbol(init)
	if err != nil {
		return nil, "", fmt.Errorf("init %q is neither a file nor an element of the species table: %w", init, err)
	}
	g, err := chem.NewGraph(v3.FromVecs([]r3.Vec{{}}), []int{s}, cutoff)
	if err != nil {
		return nil, "", err
	}
	return g, table.Symbol(s), nil
}

// externalPredictor starts the predictor command, which reads requests
// from its stdin and answers on its stdout. The returned function closes
// the pipe and waits for the command to exit.
func externalPredictor(ctx context.Context, command []string) (generate.Predictor, func() error, error) {
	c := exec.CommandContext(ctx, command[0], command[1:]...)
	c.Stderr = os.Stderr
	stdin, err := c.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := c.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting predictor %q: %w", command[0], err)
	}
	stop := func() error {
		stdin.Close()
		return c.Wait()
	}
	return chemjson.NewPipePredictor(stdout, stdin), stop, nil
}

// writeResults writes one XYZ file per result into dir.
func writeResults(dir, initName string, results []generate.Result, table chem.SpeciesTable) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, r := range results {
		name := generate.OutputName(initName, r.Seed, r.Stopped)
		if err := chem.XYZFileWrite(filepath.Join(dir, name), r.Fragment, table, name); err != nil {
			return fmt.Errorf("writing seed %d: %w", r.Seed, err)
		}
	}
	return nil
}

// generateMolecules grows the configured number of seeds from the initial
// fragment. If the run is interrupted, the molecules obtained so far are
// still written, and the interruption is returned.
func generateMolecules(ctx context.Context, outW io.Writer, cmd *cli.Command) error {
	log := ctxlog.FromContext(ctx)
	cfg := cmd.Config
	opts, err := cfg.GenerateOptions()
	if err != nil {
		return err
	}
	table := opts.Table
	init, initName, err := initialFragment(cfg.Generation.Init, table, cfg.Cutoff)
	if err != nil {
		return err
	}

	var p generate.Predictor = &generate.RandomPredictor{Table: table, StopProbability: cfg.Generation.StopProbability}
	if len(cfg.Generation.Predictor) > 0 {
		ext, stop, err := externalPredictor(ctx, cfg.Generation.Predictor)
		if err != nil {
			return err
		}
		defer func() {
			if err := stop(); err != nil {
				log.Warn("Predictor exited with an error.", "error", err)
			}
		}()
		p = ext
	}
	S, err := generate.NewScheduler(p, opts)
	if err != nil {
		return err
	}
	log.Info("Starting generation.", "init", initName, "seeds", cfg.Generation.NumSeeds, "max_atoms", opts.MaxAtoms)
	results, runErr := S.Run(ctx, rng.New(cfg.Generation.Seed), generate.Seeds(init, cfg.Generation.NumSeeds))
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	if runErr != nil {
		log.Warn("Generation interrupted, saving partial results.", "molecules", len(results))
	}

	if err := writeResults(cfg.Output.Dir, initName, results, table); err != nil {
		return err
	}
	if cfg.Output.DB != "" {
		run := cmd.Run
		if run == "" {
			run = time.Now().UTC().Format("20060102T150405")
		}
		db, err := store.New(cfg.Output.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveAll(context.WithoutCancel(ctx), run, initName, results, table); err != nil {
			return err
		}
		log.Info("Molecules stored.", "db", cfg.Output.DB, "run", run)
	}
	if cfg.Output.Plot != "" && len(results) > 0 {
		if err := chemplot.Sizes(results, "Generated molecules", cfg.Output.Plot); err != nil {
			return err
		}
	}
	fmt.Fprintln(outW, chemstat.Summarize(results, table))
	return runErr
}
