package statesync

import (
	"context"
	"reflect"

	"github.com/arkitektio/rekuest-next/errors"
	"github.com/arkitektio/rekuest-next/serial"
)

// Proxy wraps a pointer to a state struct and turns field mutations into
// Patches queued on a Worker. The Python original achieves this by
// swizzling the instance's class at runtime (`__setattr__` interception);
// Go has no equivalent, and the Design Note rejecting inheritance-based
// hot-patching rules out a comparable trick here, so Proxy exposes an
// explicit Set/AppendTo/Remove API that callers route field mutations
// through instead of assigning struct fields directly.
type Proxy struct {
	ctx    context.Context
	target reflect.Value // addressable struct (Elem of the original pointer)
	worker *Worker
}

// Observe wraps ptr (a pointer to a state struct) for mutation-observing
// field sets through worker. ctx must carry any lock names the state's
// Config.RequiredLockNames demands (see locks.WithHeld); it is passed to
// Worker.PutPatch for every mutation made through this Proxy.
func Observe(ctx context.Context, ptr any, worker *Worker) (*Proxy, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, errors.Newf("statesync: Observe requires a pointer to a struct, got %T", ptr)
	}
	return &Proxy{ctx: ctx, target: rv.Elem(), worker: worker}, nil
}

// Set assigns value to the named field, both on the underlying struct and
// as a queued "replace" Patch at "/<key>", where <key> is the field's wire
// key (see serial.FieldKey) rather than its Go name, so the path lands on
// the same key the Shrinker/Expander and the state's schema Ports use.
func (p *Proxy) Set(field string, value any) error {
	fv, key, err := p.fieldFor(field)
	if err != nil {
		return err
	}
	fv.Set(reflect.ValueOf(value))
	return p.worker.PutPatch(p.ctx, Patch{Op: OpReplace, Path: "/" + key, Value: value})
}

// AppendTo appends value to the named slice field and emits an "add"
// Patch at "/<key>/-" per the RFC 6901 list-append convention.
func (p *Proxy) AppendTo(field string, value any) error {
	fv, key, err := p.fieldFor(field)
	if err != nil {
		return err
	}
	if fv.Kind() != reflect.Slice {
		return errors.Newf("statesync: field %q is not a slice", field)
	}
	fv.Set(reflect.Append(fv, reflect.ValueOf(value)))
	return p.worker.PutPatch(p.ctx, Patch{Op: OpAdd, Path: "/" + key + "/-", Value: value})
}

// Remove clears the named field to its zero value and emits a "remove"
// Patch at "/<key>".
func (p *Proxy) Remove(field string) error {
	fv, key, err := p.fieldFor(field)
	if err != nil {
		return err
	}
	fv.Set(reflect.Zero(fv.Type()))
	return p.worker.PutPatch(p.ctx, Patch{Op: OpRemove, Path: "/" + key})
}

// fieldFor resolves field (the struct's Go field name, as callers name
// it) to both its settable reflect.Value and its wire key.
func (p *Proxy) fieldFor(field string) (reflect.Value, string, error) {
	fv := p.target.FieldByName(field)
	if !fv.IsValid() {
		return reflect.Value{}, "", errors.Newf("statesync: no such field %q", field)
	}
	if !fv.CanSet() {
		return reflect.Value{}, "", errors.Newf("statesync: field %q is not settable", field)
	}
	sf, ok := p.target.Type().FieldByName(field)
	if !ok {
		return reflect.Value{}, "", errors.Newf("statesync: no such field %q", field)
	}
	return fv, serial.FieldKey(sf), nil
}
