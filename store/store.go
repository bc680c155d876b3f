/*
 * store.go, part of fraggrow.
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

// Package store keeps generated molecules in a SQLite database.
package store

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/generate"

	_ "modernc.org/sqlite"
)

// Molecule is a stored generated molecule.
type Molecule struct {
	ID        int64
	Run       string //name of the generation run
	Init      string //name of the initial fragment
	Seed      int
	Stopped   bool
	Formula   string
	NumAtoms  int
	XYZ       string
	CreatedAt time.Time
}

// Graph parses the XYZ of the molecule, building its graph with the
// given cutoff.
func (m *Molecule) Graph(table chem.SpeciesTable, cutoff float64) (*chem.Graph, error) {
	g, _, err := chem.XYZRead(bufio.NewReader(strings.NewReader(m.XYZ)), table, cutoff)
	if err != nil {
		return nil, chem.ErrDecorate(err, "Molecule.Graph")
	}
	return g, nil
}

// Store implements molecule storage using SQLite
type Store struct {
	db *sql.DB
}

// New opens or creates the database at dbPath. ":memory:" gives a
// database that lives as long as the Store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" would get its own database
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS molecules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run TEXT NOT NULL,
		init TEXT NOT NULL,
		seed INTEGER NOT NULL,
		stopped INTEGER NOT NULL,
		formula TEXT NOT NULL,
		num_atoms INTEGER NOT NULL,
		xyz TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (run, seed)
	);

	CREATE INDEX IF NOT EXISTS idx_molecules_formula ON molecules(formula);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores the result r of the generation run named run, replacing
// any molecule stored for the same run and seed. It returns the id of
// the stored molecule.
func (s *Store) Save(ctx context.Context, run, init string, r generate.Result, table chem.SpeciesTable) (int64, error) {
	var xyz strings.Builder
	if err := chem.XYZWrite(&xyz, r.Fragment, table, generate.OutputName(init, r.Seed, r.Stopped)); err != nil {
		return 0, fmt.Errorf("failed to encode molecule: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO molecules (run, init, seed, stopped, formula, num_atoms, xyz)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run, init, r.Seed, r.Stopped, table.Formula(r.Fragment.Species()), r.Fragment.Len(), xyz.String())
	if err != nil {
		return 0, fmt.Errorf("failed to insert molecule: %w", err)
	}
	return res.LastInsertId()
}

// SaveAll stores every result in a single transaction.
func (s *Store) SaveAll(ctx context.Context, run, init string, results []generate.Result, table chem.SpeciesTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO molecules (run, init, seed, stopped, formula, num_atoms, xyz)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range results {
		var xyz strings.Builder
		if err := chem.XYZWrite(&xyz, r.Fragment, table, generate.OutputName(init, r.Seed, r.Stopped)); err != nil {
			return fmt.Errorf("failed to encode molecule: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, run, init, r.Seed, r.Stopped, table.Formula(r.Fragment.Species()), r.Fragment.Len(), xyz.String()); err != nil {
			return fmt.Errorf("failed to insert seed %d: %w", r.Seed, err)
		}
	}
	return tx.Commit()
}

// List returns the molecules of the run named run, or of every run if
// run is empty, ordered by run and seed.
func (s *Store) List(ctx context.Context, run string) ([]Molecule, error) {
	query := `SELECT id, run, init, seed, stopped, formula, num_atoms, xyz, created_at FROM molecules`
	var args []any
	if run != "" {
		query += ` WHERE run = ?`
		args = append(args, run)
	}
	query += ` ORDER BY run, seed`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query molecules: %w", err)
	}
	defer rows.Close()

	var ret []Molecule
	for rows.Next() {
		var m Molecule
		var created sql.NullString
		if err := rows.Scan(&m.ID, &m.Run, &m.Init, &m.Seed, &m.Stopped, &m.Formula, &m.NumAtoms, &m.XYZ, &created); err != nil {
			return nil, fmt.Errorf("failed to scan molecule: %w", err)
		}
		m.CreatedAt = parseTime(created)
		ret = append(ret, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating molecules: %w", err)
	}
	return ret, nil
}

// parseTime reads a timestamp as stored by SQLite, or as formatted by
// database/sql if the driver already parsed it. Unparseable values give
// the zero time.
func parseTime(ns sql.NullString) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormulaCount is the number of stored molecules with a formula.
type FormulaCount struct {
	Formula string
	Count   int
}

// Formulas returns how many molecules of each formula the run named run
// (or every run, if empty) produced, most common first.
func (s *Store) Formulas(ctx context.Context, run string) ([]FormulaCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT formula, COUNT(*) AS n FROM molecules
		WHERE ? = '' OR run = ?
		GROUP BY formula
		ORDER BY n DESC, formula
	`, run, run)
	if err != nil {
		return nil, fmt.Errorf("failed to query formulas: %w", err)
	}
	defer rows.Close()

	var ret []FormulaCount
	for rows.Next() {
		var f FormulaCount
		if err := rows.Scan(&f.Formula, &f.Count); err != nil {
			return nil, fmt.Errorf("failed to scan formula: %w", err)
		}
		ret = append(ret, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating formulas: %w", err)
	}
	return ret, nil
}
