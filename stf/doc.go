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

// Package stf implements the simple fragment format, a small text format
// for streams of fragments, compressed with z-standard (zstd). It is meant
// to be easy to read and write from other languages.
/*
******************** Format Specification ***************************************************

A STF file has the extension stf, is compressed with zstd and may only
contain ASCII symbols.

The file starts with a header of key=value lines, ending with a line
that is exactly "**". The header must contain:

  prec=P           coordinates are stored as integers, in A times 10^P
  species=1,6,7,8  the species table, as atomic numbers
  cutoff=5.0       the radial cutoff of the fragment graphs, in A
  foci=F           number of target slots per fragment
  targets=T        number of targets per slot

Other keys are allowed and kept by readers.

After the header, each fragment is:

  > N S            N atoms, S is 1 for a stop fragment and 0 otherwise
  s x y z f        one line per atom: species index, integer coordinates,
                   f is 1 for focus atoms and 0 otherwise
  p a s v          one line per nonzero entry of the species probabilities:
                   atom index, species index, value
  t k s x y z      one line per valid target: slot, species, integer
                   offset from the focus
  *                end of the fragment

Lines starting with "p" and "t" are optional, and may come in any order.
The "**" sequence may only be used as the header terminator.

*********************************************************************************************/
package stf
