// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package ext

import (
	"fmt"

	"github.com/probechain/gophp/value"
)

// nativeMachine is the subset of *vm.Machine the builtin Throwable
// hierarchy needs, expressed as an interface so this package does not
// import package vm (which would create vm <-> ext <-> vm, since the
// engine builder wires both together; package vm itself stays unaware of
// ext entirely). The engine builder's adapter satisfies this with the real
// *vm.Machine.
type nativeMachine interface {
	SetObjectProperty(receiver value.Value, prop string, v value.Value)
	GetObjectProperty(receiver value.Value, prop string) value.Value
	Alloc(v value.Value) value.Handle
}

// BuildThrowableHierarchy returns the native Throwable/Exception/Error
// class definitions the engine registers by default, giving thrown
// objects a concrete settled shape (message, code, file, line, previous,
// trace) even though spec.md never specifies one beyond "some throwable
// object exists".
func BuildThrowableHierarchy() []*NativeClassDef {
	throwable := &NativeClassDef{
		Name:       "Throwable",
		Abstract:   true,
		Interfaces: nil,
	}
	exception := &NativeClassDef{
		Name:   "Exception",
		Parent: "Throwable",
		Methods: map[string]*NativeMethodEntry{
			"__construct":  {Handler: throwableConstruct, Visibility: value.Public},
			"getmessage":   {Handler: throwableGetMessage, Visibility: value.Public},
			"getcode":      {Handler: throwableGetCode, Visibility: value.Public},
			"getfile":      {Handler: throwableGetFile, Visibility: value.Public},
			"getline":      {Handler: throwableGetLine, Visibility: value.Public},
			"getprevious":  {Handler: throwableGetPrevious, Visibility: value.Public},
			"gettrace":     {Handler: throwableGetTrace, Visibility: value.Public},
			"gettraceasstring": {Handler: throwableGetTraceAsString, Visibility: value.Public},
			"__tostring":   {Handler: throwableToString, Visibility: value.Public},
		},
	}
	exception.Constructor = exception.Methods["__construct"]

	errorClass := &NativeClassDef{Name: "Error", Parent: "Throwable", Methods: exception.Methods}
	errorClass.Constructor = errorClass.Methods["__construct"]
	typeError := &NativeClassDef{Name: "TypeError", Parent: "Error"}
	valueError := &NativeClassDef{Name: "ValueError", Parent: "Error"}
	divisionByZero := &NativeClassDef{Name: "DivisionByZeroError", Parent: "Error"}
	runtimeException := &NativeClassDef{Name: "RuntimeException", Parent: "Exception"}
	logicException := &NativeClassDef{Name: "LogicException", Parent: "Exception"}
	invalidArgument := &NativeClassDef{Name: "InvalidArgumentException", Parent: "LogicException"}

	return []*NativeClassDef{
		throwable, exception, errorClass, typeError, valueError,
		divisionByZero, runtimeException, logicException, invalidArgument,
	}
}

func throwableConstruct(vmi interface{}, this value.Value, args []value.Value) (value.Value, error) {
	m := vmi.(nativeMachine)
	message := value.String(nil)
	if len(args) > 0 {
		message = value.String(args[0].ToPHPString())
	}
	code := value.Int(0)
	if len(args) > 1 {
		code = value.Int(args[1].ToInt())
	}
	previous := value.Null()
	if len(args) > 2 {
		previous = args[2]
	}
	m.SetObjectProperty(this, "message", message)
	m.SetObjectProperty(this, "code", code)
	m.SetObjectProperty(this, "previous", previous)
	return value.Null(), nil
}

func throwableGetMessage(vmi interface{}, this value.Value, _ []value.Value) (value.Value, error) {
	return vmi.(nativeMachine).GetObjectProperty(this, "message"), nil
}

func throwableGetCode(vmi interface{}, this value.Value, _ []value.Value) (value.Value, error) {
	return vmi.(nativeMachine).GetObjectProperty(this, "code"), nil
}

func throwableGetFile(vmi interface{}, this value.Value, _ []value.Value) (value.Value, error) {
	return vmi.(nativeMachine).GetObjectProperty(this, "file"), nil
}

func throwableGetLine(vmi interface{}, this value.Value, _ []value.Value) (value.Value, error) {
	return vmi.(nativeMachine).GetObjectProperty(this, "line"), nil
}

func throwableGetPrevious(vmi interface{}, this value.Value, _ []value.Value) (value.Value, error) {
	return vmi.(nativeMachine).GetObjectProperty(this, "previous"), nil
}

func throwableGetTrace(vmi interface{}, this value.Value, _ []value.Value) (value.Value, error) {
	return vmi.(nativeMachine).GetObjectProperty(this, "trace"), nil
}

func throwableGetTraceAsString(vmi interface{}, this value.Value, _ []value.Value) (value.Value, error) {
	return value.String([]byte("#0 {main}")), nil
}

func throwableToString(vmi interface{}, this value.Value, _ []value.Value) (value.Value, error) {
	m := vmi.(nativeMachine)
	msg := m.GetObjectProperty(this, "message")
	return value.String([]byte(fmt.Sprintf("%s", msg.ToPHPString()))), nil
}
