/*
 * interfaces.go, part of fraggrow.
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

package chem

import (
	"fmt"
	"strings"

	v3 "github.com/rmera/fraggrow/v3"
)

// Grapher is anything that can give a molecular graph, such as a
// training fragment or a molecule being generated.
type Grapher interface {
	Graph() *Graph
}

// Coorder gives the coordinates and species of a set of atoms.
type Coorder interface {
	Coords() *v3.Matrix
	Species() []int
}

//Errors

// Decorator is the interface for errors that all packages in this library implement. The Decorate method allows to add and retrieve info from the
// error, without changing its type or wrapping it around something else.
type Decorator interface {
	Error() string
	Decorate(string) []string //Each call also returns the "decoration" slice of strings resulting from the current call. If passed an empty string, it should just return the current value, not add the empty string to the slice.
}

// ErrorKind classifies the errors returned by the library.
// An ErrorKind is itself an error, so it can be used as the target of errors.Is.
type ErrorKind int

const (
	// ErrConfig marks invalid options or parameter combinations. They are
	// detected before any growth begins.
	ErrConfig ErrorKind = iota + 1
	// ErrStarvation marks a molecule for which no candidate targets could be
	// found at some growth step.
	ErrStarvation
	// ErrInput marks malformed input data, such as a bad XYZ file or
	// inconsistent slice lengths.
	ErrInput
)

func (k ErrorKind) Error() string {
	switch k {
	case ErrConfig:
		return "configuration error"
	case ErrStarvation:
		return "no targets found"
	case ErrInput:
		return "invalid input"
	}
	return "unknown error"
}

// Error is the error type returned by the library.
type Error struct {
	kind ErrorKind
	msg  string
	deco []string
}

// NewError returns an error of the given kind, decorated with the name of caller.
func NewError(kind ErrorKind, msg string, caller string) *Error {
	err := &Error{kind: kind, msg: msg}
	err.Decorate(caller)
	return err
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s: %s", err.kind, err.msg)
}

// Kind returns the kind of the error.
func (err *Error) Kind() ErrorKind {
	return err.kind
}

// Is allows errors.Is(err, ErrStarvation) and friends.
func (err *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == err.kind
}

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (err *Error) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

// Trail returns the functions the error went through, innermost first.
func (err *Error) Trail() string {
	return strings.Join(err.deco, " < ")
}

// errDecorate is a helper function that decorates err with the caller's name if it is a
// Decorator, and wraps it otherwise.
func errDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(Decorator); ok {
		e.Decorate(caller)
		return err
	}
	return fmt.Errorf("%s: %w", caller, err)
}

// ErrDecorate is errDecorate for other packages of the library.
func ErrDecorate(err error, caller string) error {
	return errDecorate(err, caller)
}

// PanicMsg is a message used for panics, even though it does satisfy the error interface.
// for errors use Error.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrSpeciesOutOfRange = PanicMsg("fraggrow: species index out of range")
	ErrBadGraph          = PanicMsg("fraggrow: inconsistent molecular graph")
)
