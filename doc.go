/*
 * doc.go, part of fraggrow.
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

/*
Package chem is the main package of the fraggrow library. It provides the
molecular graph (positions, species and a cutoff-radius edge list), the
species table that maps atomic numbers to species indexes, subgraph
extraction, and reading and writing of XYZ files.

	**fraggrow capabilities**

	Cuts molecules into sequences of growing fragments, one atom (or a few
	atoms, with several foci) at a time, for training atom-by-atom
	autoregressive generative models (package fragments).

	Grows molecules back from seed fragments using any trained predictor,
	many seeds at a time, with dynamic padded batching (packages generate
	and batch).

	Reads and writes XYZ files, writes compressed fragment streams (stf),
	JSON fragments (chemjson), SQLite databases of generated molecules
	(store) and simple plots (chemplot).

Randomness is always explicit: every function that samples takes an
rng.Key, so the same key and inputs reproduce the same results.
*/
package chem
