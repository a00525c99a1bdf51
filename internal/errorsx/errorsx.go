// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package errorsx re-exports the stdlib errors package and adds wrapping
// helpers that keep a readable causal chain without losing errors.Is/As
// compatibility with the wrapped error.
package errorsx

import (
	stderrors "errors" //nolint:depguard
	"fmt"
)

var New = stderrors.New
var As = stderrors.As
var Is = stderrors.Is
var Join = stderrors.Join
var Unwrap = stderrors.Unwrap

func Errorf(format string, args ...interface{}) error {
	return New(fmt.Sprintf(format, args...))
}

// Wrap attaches a human message in front of err, preserving err in the
// Unwrap chain so errors.Is/As still see through to it.
func Wrap(err error, wrapping string) error {
	if err == nil {
		return nil
	}
	return &wrapErr{cause: err, messageErr: New(wrapping)}
}

func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

func WrapErr(err error, wrapping error) error {
	if err == nil {
		return nil
	}
	return &wrapErr{cause: err, messageErr: wrapping}
}

type wrapErr struct {
	cause      error
	messageErr error
}

func (e *wrapErr) Error() string {
	return e.messageErr.Error() + " caused by: " + e.cause.Error()
}

func (e *wrapErr) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprint(s, e.messageErr)
			fmt.Fprintf(s, " caused by: %+v", e.cause)
			return
		}
		fallthrough
	case 's', 'q':
		fmt.Fprint(s, e.Error())
	}
}

func (e *wrapErr) Unwrap() []error {
	return []error{e.messageErr, e.cause}
}
