/*
 * json.go, part of fraggrow.
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

package chemjson

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	chem "github.com/rmera/fraggrow"
	"github.com/rmera/fraggrow/batch"
	"github.com/rmera/fraggrow/fragments"
	"github.com/rmera/fraggrow/generate"
	"github.com/rmera/fraggrow/rng"
	v3 "github.com/rmera/fraggrow/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// An easily JSON-serializable error type.
type Error struct {
	deco       []string
	IsError    bool   //If this is false (no error) all the other fields will be at their zero-values.
	InRequest  bool   //was it in encoding or decoding a request?
	InResponse bool   //was it in a response?
	InProcess  bool   //was it in the prediction itself?
	Function   string //which function gave the error
	Message    string //the error itself
}

// Error implements the error interface
func (J *Error) Error() string {
	return J.Message
}

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (J *Error) Decorate(dec string) []string {
	if dec == "" {
		return J.deco
	}
	J.deco = append(J.deco, dec)
	return J.deco
}

// Serializes the error. Panics on failure.
func (J *Error) Marshal() []byte {
	ret, err2 := json.Marshal(J)
	if err2 != nil {
		panic(strings.Join([]string{J.Error(), err2.Error()}, " - "))
	}
	return ret
}

// Takes an error and some additional info to create a json-marshal-ble error
func NewError(where, function string, err error) *Error {
	jerr := new(Error)
	jerr.IsError = true
	switch where {
	case "request":
		jerr.InRequest = true
	case "response":
		jerr.InResponse = true
	default:
		jerr.InProcess = true
	}
	jerr.Function = function
	jerr.Message = err.Error()
	return jerr
}

func vecs(v []r3.Vec) [][3]float64 {
	ret := make([][3]float64, len(v))
	for i, w := range v {
		ret[i] = [3]float64{w.X, w.Y, w.Z}
	}
	return ret
}

func unvecs(v [][3]float64) []r3.Vec {
	ret := make([]r3.Vec, len(v))
	for i, w := range v {
		ret[i] = r3.Vec{X: w[0], Y: w[1], Z: w[2]}
	}
	return ret
}

// Request is a padded batch sent to an external predictor.
type Request struct {
	Seed         uint64 //for the sampling of the predictor
	Temperatures generate.Temperatures
	Cutoff       float64
	Budget       batch.Budget
	Positions    [][3]float64
	Species      []int
	Senders      []int
	Receivers    []int
	NNode        []int
	NEdge        []int
	NodeMask     []bool
	EdgeMask     []bool
	GraphMask    []bool
}

// NewRequest returns the request for batch b.
func NewRequest(key rng.Key, b *batch.Batch, t generate.Temperatures) *Request {
	R := &Request{
		Seed:         key.Uint64(),
		Temperatures: t,
		Budget:       b.Budget,
		Positions:    vecs(b.Positions),
		Species:      b.Species,
		Senders:      b.Senders,
		Receivers:    b.Receivers,
		NNode:        b.NNode,
		NEdge:        b.NEdge,
		NodeMask:     b.NodeMask,
		EdgeMask:     b.EdgeMask,
		GraphMask:    b.GraphMask,
	}
	if g := b.Unbatch(); len(g) > 0 {
		R.Cutoff = g[0].Cutoff()
	}
	return R
}

// Target is a predicted atom, with its offset from the focus.
type Target struct {
	Offset  [3]float64
	Species int
}

// Focus holds the atoms predicted around the atom Index of a graph.
type Focus struct {
	Index   int
	Targets []Target
}

// Prediction is the prediction for one graph of a request.
type Prediction struct {
	Stop bool
	Foci []Focus
}

// Response answers a Request, with one Prediction per real graph of the
// batch, in order, or an error.
type Response struct {
	Predictions []Prediction
	Error       *Error
}

// FromPredictions returns the wire form of p.
func FromPredictions(p []generate.Prediction) []Prediction {
	ret := make([]Prediction, len(p))
	for i, v := range p {
		ret[i].Stop = v.Stop
		for _, f := range v.Foci {
			jf := Focus{Index: f.Index}
			for _, t := range f.Targets {
				jf.Targets = append(jf.Targets, Target{Offset: [3]float64{t.Offset.X, t.Offset.Y, t.Offset.Z}, Species: t.Species})
			}
			ret[i].Foci = append(ret[i].Foci, jf)
		}
	}
	return ret
}

// ToPredictions returns the predictions encoded in p.
func ToPredictions(p []Prediction) []generate.Prediction {
	ret := make([]generate.Prediction, len(p))
	for i, v := range p {
		ret[i].Stop = v.Stop
		for _, f := range v.Foci {
			gf := generate.FocusPrediction{Index: f.Index}
			for _, t := range f.Targets {
				gf.Targets = append(gf.Targets, generate.Target{Offset: r3.Vec{X: t.Offset[0], Y: t.Offset[1], Z: t.Offset[2]}, Species: t.Species})
			}
			ret[i].Foci = append(ret[i].Foci, gf)
		}
	}
	return ret
}

// PipePredictor is a generate.Predictor that delegates to an external
// program. Each batch is written as one Request line to w, and one
// Response line is read back from r. Calls to Predict are serialized.
type PipePredictor struct {
	mu  sync.Mutex
	enc *json.Encoder
	dec *bufio.Reader
}

// NewPipePredictor returns a PipePredictor reading responses from r and
// writing requests to w.
func NewPipePredictor(r io.Reader, w io.Writer) *PipePredictor {
	return &PipePredictor{enc: json.NewEncoder(w), dec: bufio.NewReader(r)}
}

// Predict sends b to the external predictor and returns its answer.
// ctx is only checked before the request is sent.
func (P *PipePredictor) Predict(ctx context.Context, key rng.Key, b *batch.Batch, t generate.Temperatures) ([]generate.Prediction, error) {
	const funcname = "PipePredictor.Predict"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	P.mu.Lock()
	defer P.mu.Unlock()
	if err := P.enc.Encode(NewRequest(key, b, t)); err != nil {
		return nil, NewError("request", funcname, err)
	}
	line, err := P.dec.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return nil, NewError("response", funcname, fmt.Errorf("reading response: %w", err))
	}
	resp := new(Response)
	if err := json.Unmarshal(line, resp); err != nil {
		return nil, NewError("response", funcname, err)
	}
	if resp.Error != nil && resp.Error.IsError {
		resp.Error.Decorate(funcname)
		return nil, resp.Error
	}
	if len(resp.Predictions) != b.NGraphs() {
		return nil, chem.NewError(chem.ErrInput, fmt.Sprintf("%d predictions for a batch of %d graphs", len(resp.Predictions), b.NGraphs()), funcname)
	}
	return ToPredictions(resp.Predictions), nil
}

// Fragment is a ready-to-serialize container for a fragment.
type Fragment struct {
	Species                    []int
	Positions                  [][3]float64
	FocusMask                  []bool
	FocusAndTargetSpeciesProbs [][]float64
	TargetSpecies              []int
	TargetPositions            [][][3]float64
	TargetPositionsMask        [][]bool
	Stop                       bool
}

// EncodeFragment encodes F into a single JSON line.
func EncodeFragment(F *fragments.Fragment, enc *json.Encoder) *Error {
	J := &Fragment{
		Species:                    F.Species(),
		Positions:                  vecs(F.Coords().Vecs()),
		FocusMask:                  F.FocusMask,
		FocusAndTargetSpeciesProbs: F.FocusAndTargetSpeciesProbs,
		TargetSpecies:              F.TargetSpecies,
		TargetPositionsMask:        F.TargetPositionsMask,
		Stop:                       F.Stop,
	}
	for _, t := range F.TargetPositions {
		J.TargetPositions = append(J.TargetPositions, vecs(t))
	}
	if err := enc.Encode(J); err != nil {
		return NewError("process", "chemjson.EncodeFragment", err)
	}
	return nil
}

// DecodeFragment decodes the next JSON line of stream into a fragment,
// rebuilding its graph with the given cutoff. It returns io.EOF when
// there are no fragments left.
func DecodeFragment(stream *bufio.Reader, cutoff float64) (*fragments.Fragment, error) {
	const funcname = "DecodeFragment"
	line, err := stream.ReadBytes('\n')
	if err == io.EOF && len(strings.TrimSpace(string(line))) == 0 {
		return nil, io.EOF
	}
	if err != nil && err != io.EOF {
		return nil, NewError("process", funcname, err)
	}
	J := new(Fragment)
	if err := json.Unmarshal(line, J); err != nil {
		return nil, NewError("process", funcname, err)
	}
	n := len(J.Species)
	if len(J.Positions) != n || len(J.FocusMask) != n || len(J.FocusAndTargetSpeciesProbs) != n ||
		len(J.TargetSpecies) != len(J.TargetPositions) || len(J.TargetPositions) != len(J.TargetPositionsMask) {
		return nil, NewError("process", funcname, fmt.Errorf("fragment of %d atoms with inconsistent annotations", n))
	}
	g, err := chem.NewGraph(v3.FromVecs(unvecs(J.Positions)), J.Species, cutoff)
	if err != nil {
		return nil, chem.ErrDecorate(err, funcname)
	}
	F := &fragments.Fragment{
		Molecule:                   g,
		FocusMask:                  J.FocusMask,
		FocusAndTargetSpeciesProbs: J.FocusAndTargetSpeciesProbs,
		TargetSpecies:              J.TargetSpecies,
		TargetPositionsMask:        J.TargetPositionsMask,
		Stop:                       J.Stop,
	}
	for i, t := range J.TargetPositions {
		if len(t) != len(J.TargetPositionsMask[i]) {
			return nil, NewError("process", funcname, fmt.Errorf("slot %d has %d targets and a mask of %d", i, len(t), len(J.TargetPositionsMask[i])))
		}
		F.TargetPositions = append(F.TargetPositions, unvecs(t))
	}
	return F, nil
}
