/*
 * stf.go, part of fraggrow.
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

package stf

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/fragments"
	v3 "github.com/rmera/fraggrow/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultPrec is the precision used when the header doesn't give one.
const DefaultPrec = 4

// Header describes the fragments of a file.
type Header struct {
	Prec   int
	Table  chem.SpeciesTable
	Cutoff float64
	Dims   fragments.Dims //NumSpecies is taken from Table
	Extra  map[string]string
}

func (H Header) encode() string {
	var b strings.Builder
	zs := make([]string, len(H.Table))
	for i, z := range H.Table {
		zs[i] = strconv.Itoa(z)
	}
	fmt.Fprintf(&b, "prec=%d\nspecies=%s\ncutoff=%s\nfoci=%d\ntargets=%d\n", H.Prec, strings.Join(zs, ","),
		strconv.FormatFloat(H.Cutoff, 'g', -1, 64), H.Dims.NumFoci, H.Dims.MaxTargets)
	keys := make([]string, 0, len(H.Extra))
	for k := range H.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, H.Extra[k])
	}
	b.WriteString("**\n")
	return b.String()
}

// Writer writes fragments to a STF stream.
type Writer struct {
	f         *os.File //nil if the underlying writer is not ours
	h         *zstd.Encoder
	w         *bufio.Writer
	header    Header
	filename  string
	writeable bool
}

// NewWriter returns a Writer to out. The optional level is a zstd
// compression level, as in the zstd command line tool. Close must be
// called to flush the stream, but it doesn't close out.
func NewWriter(out io.Writer, header Header, compressionLevel ...int) (*Writer, error) {
	level := zstd.SpeedBestCompression
	if len(compressionLevel) > 0 {
		level = zstd.EncoderLevelFromZstd(compressionLevel[0])
	}
	if err := header.Table.Validate(); err != nil {
		return nil, chem.ErrDecorate(err, "stf.NewWriter")
	}
	if header.Prec <= 0 {
		header.Prec = DefaultPrec
	}
	if header.Cutoff <= 0 || header.Dims.NumFoci < 1 || header.Dims.MaxTargets < 1 {
		return nil, Error{fmt.Sprintf("invalid header %+v", header), "", []string{"NewWriter"}, true}
	}
	header.Dims.NumSpecies = header.Table.Len()
	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, Error{"can't start compression: " + err.Error(), "", []string{"NewWriter"}, true}
	}
	W := &Writer{h: enc, w: bufio.NewWriter(enc), header: header, writeable: true}
	if _, err := W.w.WriteString(header.encode()); err != nil {
		return nil, Error{"can't write header: " + err.Error(), "", []string{"NewWriter"}, true}
	}
	return W, nil
}

// Create creates the file name and returns a Writer to it.
func Create(name string, header Header, compressionLevel ...int) (*Writer, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, Error{err.Error(), name, []string{"Create"}, true}
	}
	W, err := NewWriter(f, header, compressionLevel...)
	if err != nil {
		f.Close()
		return nil, errDecorate(err, "Create")
	}
	W.f = f
	W.filename = name
	return W, nil
}

// Header returns the header of the stream.
func (W *Writer) Header() Header {
	return W.header
}

func coordsEncode(v r3.Vec, prec int) string {
	p := math.Pow(10.0, float64(prec))
	return fmt.Sprintf("%d %d %d", int(math.RoundToEven(v.X*p)), int(math.RoundToEven(v.Y*p)), int(math.RoundToEven(v.Z*p)))
}

// Write writes one fragment. Its sizes must match those of the header.
func (W *Writer) Write(F *fragments.Fragment) error {
	if !W.writeable {
		return Error{UnIniWrite, W.filename, []string{"Write"}, true}
	}
	d := W.header.Dims
	if len(F.TargetSpecies) != d.NumFoci || len(F.TargetPositionsMask) != d.NumFoci {
		return Error{fmt.Sprintf("fragment has %d target slots, header says %d", len(F.TargetSpecies), d.NumFoci), W.filename, []string{"Write"}, true}
	}
	stop := 0
	if F.Stop {
		stop = 1
	}
	w := W.w
	fmt.Fprintf(w, "> %d %d\n", F.Len(), stop)
	species := F.Species()
	for i, v := range F.Coords().Vecs() {
		focus := 0
		if F.FocusMask[i] {
			focus = 1
		}
		fmt.Fprintf(w, "%d %s %d\n", species[i], coordsEncode(v, W.header.Prec), focus)
	}
	for a, row := range F.FocusAndTargetSpeciesProbs {
		for s, p := range row {
			if p != 0 {
				fmt.Fprintf(w, "p %d %d %s\n", a, s, strconv.FormatFloat(p, 'g', -1, 64))
			}
		}
	}
	for k, mask := range F.TargetPositionsMask {
		for j, valid := range mask {
			if valid {
				fmt.Fprintf(w, "t %d %d %s\n", k, F.TargetSpecies[k], coordsEncode(F.TargetPositions[k][j], W.header.Prec))
			}
		}
	}
	if _, err := w.WriteString("*\n"); err != nil {
		return Error{err.Error(), W.filename, []string{"Write"}, true}
	}
	return nil
}

// Close flushes the stream and closes the file, if the Writer was
// obtained with Create.
func (W *Writer) Close() error {
	if W == nil || !W.writeable {
		return nil
	}
	W.writeable = false
	if err := W.w.Flush(); err != nil {
		return Error{err.Error(), W.filename, []string{"Close"}, true}
	}
	if err := W.h.Close(); err != nil {
		return Error{err.Error(), W.filename, []string{"Close"}, true}
	}
	if W.f != nil {
		return W.f.Close()
	}
	return nil
}

// Reader reads fragments from a STF stream.
type Reader struct {
	f        *os.File
	dec      *zstd.Decoder
	h        *bufio.Reader
	header   Header
	filename string
	readable bool
}

// NewReader reads the header of the STF stream in r and returns a Reader
// for its fragments.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, Error{"can't start decompression: " + err.Error(), "", []string{"NewReader"}, true}
	}
	R := &Reader{dec: dec, h: bufio.NewReader(dec), readable: true}
	if err := R.readHeader(); err != nil {
		dec.Close()
		return nil, errDecorate(err, "NewReader")
	}
	return R, nil
}

// Open opens the STF file name for reading.
func Open(name string) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, Error{err.Error(), name, []string{"Open"}, true}
	}
	R, err := NewReader(f)
	if err != nil {
		f.Close()
		if e, ok := err.(Error); ok {
			e.filename = name
			err = e
		}
		return nil, errDecorate(err, "Open")
	}
	R.f = f
	R.filename = name
	return R, nil
}

func (R *Reader) readHeader() error {
	m := make(map[string]string)
	for {
		str, err := R.h.ReadString('\n')
		if err != nil {
			return Error{"can't read header: " + err.Error(), R.filename, []string{"readHeader"}, true}
		}
		str = strings.TrimSpace(str)
		if str == "**" {
			break
		}
		k, v, ok := strings.Cut(str, "=")
		if !ok {
			return Error{fmt.Sprintf("malformed header line %q", str), R.filename, []string{"readHeader"}, true}
		}
		m[k] = v
	}
	H := Header{Extra: make(map[string]string)}
	var err error
	atoi := func(key string) int {
		if err != nil {
			return 0
		}
		var i int
		i, err = strconv.Atoi(m[key])
		return i
	}
	H.Prec = atoi("prec")
	H.Dims.NumFoci = atoi("foci")
	H.Dims.MaxTargets = atoi("targets")
	if err == nil {
		H.Cutoff, err = strconv.ParseFloat(m["cutoff"], 64)
	}
	if err == nil {
		for _, z := range strings.Split(m["species"], ",") {
			var i int
			if i, err = strconv.Atoi(z); err != nil {
				break
			}
			H.Table = append(H.Table, i)
		}
	}
	if err != nil {
		return Error{"malformed header: " + err.Error(), R.filename, []string{"readHeader"}, true}
	}
	H.Dims.NumSpecies = H.Table.Len()
	for k, v := range m {
		switch k {
		case "prec", "species", "cutoff", "foci", "targets":
		default:
			H.Extra[k] = v
		}
	}
	R.header = H
	return nil
}

// Header returns the header of the stream.
func (R *Reader) Header() Header {
	return R.header
}

func coordsDecode(fields []string, prec int) (r3.Vec, error) {
	p := math.Pow(10.0, float64(prec))
	var t [3]float64
	if len(fields) != 3 {
		return r3.Vec{}, fmt.Errorf("%d coordinates instead of 3", len(fields))
	}
	for i, v := range fields {
		f, err := strconv.Atoi(v)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("can't parse coordinate %d (%s): %w", i, v, err)
		}
		t[i] = float64(f) / p
	}
	return r3.Vec{X: t[0], Y: t[1], Z: t[2]}, nil
}

// Next returns the next fragment, or io.EOF at the end of the stream.
func (R *Reader) Next() (*fragments.Fragment, error) {
	if !R.readable {
		return nil, Error{UnIniRead, R.filename, []string{"Next"}, true}
	}
	bad := func(msg string) error {
		return Error{msg, R.filename, []string{"Next"}, true}
	}
	line, err := R.h.ReadString('\n')
	if err == io.EOF && strings.TrimSpace(line) == "" {
		return nil, io.EOF
	}
	if err != nil && err != io.EOF {
		return nil, bad(err.Error())
	}
	var natoms, stop int
	if _, err := fmt.Sscanf(strings.TrimSpace(line), "> %d %d", &natoms, &stop); err != nil {
		return nil, bad(fmt.Sprintf("%s in fragment start %q", WrongFormat, line))
	}
	pos := make([]r3.Vec, natoms)
	species := make([]int, natoms)
	focus := make([]bool, natoms)
	for i := 0; i < natoms; i++ {
		line, err := R.h.ReadString('\n')
		if err != nil {
			return nil, bad(fmt.Sprintf("reading atom %d: %s", i, err))
		}
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, bad(fmt.Sprintf("%s in atom line %q", WrongFormat, line))
		}
		if species[i], err = strconv.Atoi(fields[0]); err != nil {
			return nil, bad(err.Error())
		}
		if pos[i], err = coordsDecode(fields[1:4], R.header.Prec); err != nil {
			return nil, bad(err.Error())
		}
		focus[i] = fields[4] == "1"
	}
	g, err := chem.NewGraph(v3.FromVecs(pos), species, R.header.Cutoff)
	if err != nil {
		return nil, errDecorate(err, "Next")
	}
	F := fragments.EmptyAnnotations(g, R.header.Dims)
	F.FocusMask = focus
	F.Stop = stop == 1
	filled := make([]int, R.header.Dims.NumFoci)
	for {
		line, err := R.h.ReadString('\n')
		if err != nil {
			return nil, bad(fmt.Sprintf("reading fragment annotations: %s", err))
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "*":
			return F, nil
		case "p":
			var a, s int
			var v float64
			if _, err := fmt.Sscanf(strings.TrimSpace(line), "p %d %d %g", &a, &s, &v); err != nil || a < 0 || a >= natoms || s < 0 || s >= R.header.Dims.NumSpecies {
				return nil, bad(fmt.Sprintf("%s in probability line %q", WrongFormat, line))
			}
			F.FocusAndTargetSpeciesProbs[a][s] = v
		case "t":
			if len(fields) != 6 {
				return nil, bad(fmt.Sprintf("%s in target line %q", WrongFormat, line))
			}
			k, err1 := strconv.Atoi(fields[1])
			s, err2 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil || k < 0 || k >= len(filled) || filled[k] >= R.header.Dims.MaxTargets {
				return nil, bad(fmt.Sprintf("%s in target line %q", WrongFormat, line))
			}
			off, err := coordsDecode(fields[3:], R.header.Prec)
			if err != nil {
				return nil, bad(err.Error())
			}
			F.TargetSpecies[k] = s
			F.TargetPositions[k][filled[k]] = off
			F.TargetPositionsMask[k][filled[k]] = true
			filled[k]++
		default:
			return nil, bad(fmt.Sprintf("%s: unexpected line %q", WrongFormat, line))
		}
	}
}

// Close closes the Reader and, if it was obtained with Open, its file.
func (R *Reader) Close() {
	if !R.readable {
		return
	}
	R.readable = false
	R.dec.Close()
	if R.f != nil {
		R.f.Close()
	}
}

//errDecorate decorates errors that can be decorated, and returns the others as they are.
func errDecorate(err error, caller string) error {
	switch e := err.(type) {
	case Error:
		e.deco = append(e.deco, caller)
		return e
	default:
		return chem.ErrDecorate(err, caller)
	}
}

// Error is the general structure for STF errors.
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	if err.filename == "" {
		return fmt.Sprintf("stf error: %s", err.message)
	}
	return fmt.Sprintf("stf file %s error: %s", err.filename, err.message)
}

// Decorate adds new information to the error
func (err Error) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// FileName returns the file to which the failing stream was associated
func (err Error) FileName() string { return err.filename }

// Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	UnIniRead   = "stream not initialized for reading"
	UnIniWrite  = "stream not initialized for writing"
	WrongFormat = "wrong format in the STF stream"
)
