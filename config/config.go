/*
 * config.go, part of fraggrow.
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

// Package config provides the run configuration of fraggrow.
//
// Config file locations (priority order):
//  1. $FRAGGROW_CONFIG
//  2. ./fraggrow.yaml
//  3. $XDG_CONFIG_HOME/fraggrow/config.yaml
//  4. ~/.config/fraggrow/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"

	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/batch"
	"github.com/rmera/fraggrow/fragments"
	"github.com/rmera/fraggrow/generate"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path
	EnvConfigPath = "FRAGGROW_CONFIG"
	// ConfigFileName is the config file name looked for in the working directory
	ConfigFileName = "fraggrow.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "fraggrow"
)

// Config is the configuration of a fragmentation or generation run.
type Config struct {
	Species    []string         `yaml:"species"` //element symbols, in species order
	Cutoff     float64          `yaml:"cutoff"`  //radial cutoff of the molecular graphs, in A
	Fragments  FragmentsConfig  `yaml:"fragments"`
	Generation GenerationConfig `yaml:"generation"`
	Output     OutputConfig     `yaml:"output"`
}

// FragmentsConfig mirrors fragments.Options. A zero nn_tolerance or
// max_radius is unset.
type FragmentsConfig struct {
	Mode                  string  `yaml:"mode"`
	NNTolerance           float64 `yaml:"nn_tolerance"`
	MaxRadius             float64 `yaml:"max_radius"`
	NumNodesForMultifocus int     `yaml:"num_nodes_for_multifocus"`
	MaxTargetsPerGraph    int     `yaml:"max_targets_per_graph"`
	HeavyFirst            bool    `yaml:"heavy_first"`
	TransitionFirst       bool    `yaml:"transition_first"`
}

// GenerationConfig controls a generation run.
type GenerationConfig struct {
	Init            string                `yaml:"init"` //initial fragment: an element symbol or an XYZ file
	NumSeeds        int                   `yaml:"num_seeds"`
	Seed            uint64                `yaml:"seed"` //root random seed
	MaxAtoms        int                   `yaml:"max_atoms"`
	MaxAtomsPerStep int                   `yaml:"max_atoms_per_step"`
	MaxBatches      int                   `yaml:"max_batches"`
	Temperatures    generate.Temperatures `yaml:"inverse_temperatures"`
	Budget          batch.Budget          `yaml:"budget"`     //estimated per batch if zero
	BatchSize       int                   `yaml:"batch_size"` //molecules per batch with an estimated budget
	StopProbability float64               `yaml:"stop_probability"`   //only for the random predictor
	Predictor       []string              `yaml:"predictor,omitempty"` //command of an external predictor; random if empty
}

// OutputConfig tells where results go.
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	DB   string `yaml:"db"`   //SQLite store; none if empty
	Plot string `yaml:"plot"` //PNG with the generation summary; none if empty
}

// FindConfigPath searches for a config file in priority order.
// Returns empty string if no config file is found.
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}
	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		path := filepath.Join(xdgHome, ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}
	if home := os.Getenv("HOME"); home != "" {
		path := filepath.Join(home, ".config", ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the QM9 species, a 5 A cutoff, single-focus
// nearest-neighbor fragmentation and the generation settings of a small run.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if len(c.Species) == 0 {
		c.Species = []string{"H", "C", "N", "O", "F"}
	}
	if c.Cutoff == 0 {
		c.Cutoff = 5.0
	}
	f := &c.Fragments
	if f.Mode == "" {
		f.Mode = string(fragments.NearestNeighbors)
	}
	if f.Mode == string(fragments.NearestNeighbors) && f.NNTolerance == 0 {
		f.NNTolerance = fragments.DefaultOptions().NNTolerance
	}
	if f.NumNodesForMultifocus == 0 {
		f.NumNodesForMultifocus = 1
	}
	if f.MaxTargetsPerGraph == 0 {
		f.MaxTargetsPerGraph = 1
	}
	g := &c.Generation
	if g.Init == "" {
		g.Init = "C"
	}
	if g.NumSeeds == 0 {
		g.NumSeeds = 1
	}
	if g.MaxAtoms == 0 {
		g.MaxAtoms = 30
	}
	if g.Temperatures == (generate.Temperatures{}) {
		g.Temperatures = generate.DefaultTemperatures()
	}
	if g.Budget == (batch.Budget{}) && g.BatchSize == 0 {
		g.BatchSize = generate.DefaultBatchSize
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "generated"
	}
}

// Table returns the species table of the configuration.
func (c *Config) Table() (chem.SpeciesTable, error) {
	table := make(chem.SpeciesTable, 0, len(c.Species))
	for _, s := range c.Species {
		z, err := chem.AtomicNumber(s)
		if err != nil {
			return nil, chem.ErrDecorate(err, "config.Table")
		}
		table = append(table, z)
	}
	if err := table.Validate(); err != nil {
		return nil, chem.ErrDecorate(err, "config.Table")
	}
	return table, nil
}

// FragmentOptions returns the fragmentation options of the configuration.
func (c *Config) FragmentOptions() fragments.Options {
	f := c.Fragments
	return fragments.Options{
		Mode:                  fragments.Mode(f.Mode),
		NNTolerance:           f.NNTolerance,
		MaxRadius:             f.MaxRadius,
		NumNodesForMultifocus: f.NumNodesForMultifocus,
		MaxTargetsPerGraph:    f.MaxTargetsPerGraph,
		HeavyFirst:            f.HeavyFirst,
		TransitionFirst:       f.TransitionFirst,
	}
}

// GenerateOptions returns the scheduler options of the configuration.
func (c *Config) GenerateOptions() (generate.Options, error) {
	table, err := c.Table()
	if err != nil {
		return generate.Options{}, err
	}
	g := c.Generation
	return generate.Options{
		Table:           table,
		MaxAtoms:        g.MaxAtoms,
		MaxAtomsPerStep: g.MaxAtomsPerStep,
		MaxBatches:      g.MaxBatches,
		Budget:          g.Budget,
		BatchSize:       g.BatchSize,
		Temperatures:    g.Temperatures,
	}, nil
}

// Validate returns an error of kind chem.ErrConfig describing the first
// problem found in the configuration.
func (c *Config) Validate() error {
	bad := func(format string, a ...any) error {
		return chem.NewError(chem.ErrConfig, fmt.Sprintf(format, a...), "config.Validate")
	}
	if _, err := c.Table(); err != nil {
		return err
	}
	if c.Cutoff <= 0 {
		return bad("cutoff must be positive, got %g", c.Cutoff)
	}
	if err := c.FragmentOptions().Validate(); err != nil {
		return chem.ErrDecorate(err, "config.Validate")
	}
	g := c.Generation
	if g.NumSeeds < 1 {
		return bad("num_seeds must be positive, got %d", g.NumSeeds)
	}
	if g.MaxAtoms < 1 || g.MaxAtomsPerStep < 0 || g.MaxBatches < 0 {
		return bad("max_atoms must be positive, and max_atoms_per_step and max_batches can't be negative")
	}
	if g.StopProbability < 0 || g.StopProbability > 1 {
		return bad("stop_probability %g is not in [0,1]", g.StopProbability)
	}
	if g.BatchSize < 0 {
		return bad("batch_size can't be negative, got %d", g.BatchSize)
	}
	if g.Budget != (batch.Budget{}) {
		if err := g.Budget.Validate(); err != nil {
			return chem.ErrDecorate(err, "config.Validate")
		}
	}
	return nil
}
