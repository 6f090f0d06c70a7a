package serial

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arkitektio/rekuest-next/port"
	"github.com/arkitektio/rekuest-next/registry"
	"github.com/arkitektio/rekuest-next/shelf"
)

// Expander holds the collaborators every recursive Expand/Shrink call
// needs, bundled so neither signature grows a long parameter list as the
// Port kinds it handles grow. Grounded on aexpand_arg/ashrink_return's
// (structure_registry, shelver) parameter pair.
type Expander struct {
	Registry *registry.Registry
	Shelf    *shelf.Shelf
}

// New bundles reg and sh into an Expander.
func New(reg *registry.Registry, sh *shelf.Shelf) *Expander {
	return &Expander{Registry: reg, Shelf: sh}
}

// ExpandArgs expands every argument Port of a Definition against raw,
// a JSON-decoded wire payload (map[string]any, []any, string, float64,
// bool, nil per encoding/json's default decode), returning the typed
// argument map the Actor invokes its callable with. Mirrors
// rekuest_next/structures/serialization/actor.py's expand_inputs.
func (e *Expander) ExpandArgs(ctx context.Context, args []*port.Port, raw map[string]any) (map[string]any, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]any, len(args))

	for i, p := range args {
		i, p := i, p
		g.Go(func() error {
			v, present := raw[p.Key]
			expanded, err := e.Expand(ctx, p, v, present, []string{p.Key}, 1)
			if err != nil {
				return err
			}
			results[i] = expanded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(args))
	for i, p := range args {
		out[p.Key] = results[i]
	}
	return out, nil
}

// Expand converts a single wire value to its typed in-memory
// representation per p's Kind, recursing into children for
// LIST/DICT/UNION/MODEL. present distinguishes "key absent from the
// payload" from "key present with a null value", since only the former
// falls back to p.Default.
func (e *Expander) Expand(ctx context.Context, p *port.Port, value any, present bool, path []string, depth int) (any, error) {
	if !present {
		if p.Default != nil {
			value = p.Default
			present = true
		} else if p.Nullable {
			return nil, nil
		} else {
			return nil, newExpandError(p, path, depth, "port is required but no value was provided and no default is set")
		}
	}

	if value == nil {
		if p.Nullable {
			return nil, nil
		}
		return nil, newExpandError(p, path, depth, "port is not nullable but received null")
	}

	switch p.Kind {
	case port.KindDict:
		return e.expandDict(ctx, p, value, path, depth)
	case port.KindUnion:
		return e.expandUnion(ctx, p, value, path, depth)
	case port.KindList:
		return e.expandList(ctx, p, value, path, depth)
	case port.KindModel:
		return e.expandModel(ctx, p, value, path, depth)
	case port.KindInt:
		return expandInt(p, value, path, depth)
	case port.KindFloat:
		return expandFloat(p, value, path, depth)
	case port.KindDate:
		return expandDate(p, value, path, depth)
	case port.KindBool:
		return expandBool(p, value, path, depth)
	case port.KindString:
		s, ok := value.(string)
		if !ok {
			return nil, newExpandError(p, path, depth, fmt.Sprintf("expected string, got %T", value))
		}
		return s, nil
	case port.KindEnum:
		return e.expandByIdentifier(ctx, p, value, path, depth)
	case port.KindStructure:
		return e.expandByIdentifier(ctx, p, value, path, depth)
	case port.KindMemoryStructure:
		return e.expandMemoryStructure(p, value, path, depth)
	default:
		return nil, newExpandError(p, path, depth, "no expander for this port kind")
	}
}

func (e *Expander) expandDict(ctx context.Context, p *port.Port, value any, path []string, depth int) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, newExpandError(p, path, depth, fmt.Sprintf("expected a JSON object for a dict port, got %T", value))
	}
	if len(p.Children) != 1 {
		return nil, newExpandError(p, path, depth, "dict port must have exactly one child")
	}
	child := p.Children[0]

	g, ctx := errgroup.WithContext(ctx)
	type kv struct {
		key string
		val any
	}
	results := make([]kv, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for idx, k := range keys {
		idx, k := idx, k
		g.Go(func() error {
			v, err := e.Expand(ctx, child, m[k], true, appendPath(path, k), depth+1)
			if err != nil {
				return err
			}
			results[idx] = kv{key: k, val: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(results))
	for _, r := range results {
		out[r.key] = r.val
	}
	return out, nil
}

func (e *Expander) expandUnion(ctx context.Context, p *port.Port, value any, path []string, depth int) (any, error) {
	if len(p.Children) == 0 {
		return nil, newExpandError(p, path, depth, "union port has no children")
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, newExpandError(p, path, depth, "union values must be a JSON object of the form {use, value}")
	}
	rawUse, ok := m["use"]
	if !ok {
		return nil, newExpandError(p, path, depth, "union value is missing \"use\"")
	}
	index, err := toInt(rawUse)
	if err != nil {
		return nil, newExpandError(p, path, depth, "union \"use\" must be an int-like value")
	}
	if index < 0 || index >= len(p.Children) {
		return nil, newExpandError(p, path, depth, fmt.Sprintf("union index %d out of range for %d children", index, len(p.Children)))
	}
	child := p.Children[index]
	seg := fmt.Sprintf("%s[%d]", p.Key, index)
	return e.Expand(ctx, child, m["value"], true, appendPath(path, seg), depth+1)
}

func (e *Expander) expandList(ctx context.Context, p *port.Port, value any, path []string, depth int) (any, error) {
	arr, ok := value.([]any)
	if !ok {
		return nil, newExpandError(p, path, depth, fmt.Sprintf("expected a JSON array for a list port, got %T", value))
	}
	if len(p.Children) != 1 {
		return nil, newExpandError(p, path, depth, "list port must have exactly one child")
	}
	child := p.Children[0]

	g, ctx := errgroup.WithContext(ctx)
	results := make([]any, len(arr))
	for idx, item := range arr {
		idx, item := idx, item
		g.Go(func() error {
			seg := fmt.Sprintf("%s[%d]", p.Key, idx)
			v, err := e.Expand(ctx, child, item, true, appendPath(path, seg), depth+1)
			if err != nil {
				return err
			}
			results[idx] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Expander) expandModel(ctx context.Context, p *port.Port, value any, path []string, depth int) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, newExpandError(p, path, depth, fmt.Sprintf("expected a JSON object for a model port, got %T", value))
	}
	if len(p.Children) == 0 {
		return nil, newExpandError(p, path, depth, "model port has no children")
	}
	if p.Identifier == nil {
		return nil, newExpandError(p, path, depth, "model port has no identifier")
	}

	g, ctx := errgroup.WithContext(ctx)
	results := make([]any, len(p.Children))
	for idx, child := range p.Children {
		idx, child := idx, child
		g.Go(func() error {
			v, present := m[child.Key]
			expanded, err := e.Expand(ctx, child, v, present, appendPath(path, child.Key), depth+1)
			if err != nil {
				return err
			}
			results[idx] = expanded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	params := make(map[string]any, len(p.Children))
	for idx, child := range p.Children {
		params[child.Key] = results[idx]
	}

	s, err := e.Registry.GetStructureForIdentifier(*p.Identifier)
	if err != nil {
		return nil, newExpandError(p, path, depth, "no model type registered for identifier "+*p.Identifier)
	}
	return instantiate(s.Type, params)
}

func (e *Expander) expandByIdentifier(ctx context.Context, p *port.Port, value any, path []string, depth int) (any, error) {
	if p.Identifier == nil {
		return nil, newExpandError(p, path, depth, "port has no identifier")
	}
	idStr, err := toIDString(value)
	if err != nil {
		return nil, newExpandError(p, path, depth, err.Error())
	}
	expanded, err := e.Registry.Expand(ctx, *p.Identifier, idStr)
	if err != nil {
		return nil, newExpandError(p, path, depth, fmt.Sprintf("error expanding %q with structure %s: %v", idStr, *p.Identifier, err))
	}
	return expanded, nil
}

func (e *Expander) expandMemoryStructure(p *port.Port, value any, path []string, depth int) (any, error) {
	idStr, err := toIDString(value)
	if err != nil {
		return nil, newExpandError(p, path, depth, err.Error())
	}
	v, err := e.Shelf.Get(idStr)
	if err != nil {
		return nil, newExpandError(p, path, depth, err.Error())
	}
	return v, nil
}

func expandInt(p *port.Port, value any, path []string, depth int) (any, error) {
	n, err := toInt(value)
	if err != nil {
		return nil, newExpandError(p, path, depth, "can't expand to int: "+err.Error())
	}
	return n, nil
}

func expandFloat(p *port.Port, value any, path []string, depth int) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, newExpandError(p, path, depth, "can't expand string to float: "+err.Error())
		}
		return f, nil
	default:
		return nil, newExpandError(p, path, depth, fmt.Sprintf("can't expand %T to float", value))
	}
}

func expandBool(p *port.Port, value any, path []string, depth int) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case float64:
		if v == 0 {
			return false, nil
		} else if v == 1 {
			return true, nil
		}
	case string:
		switch strings.ToLower(v) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, newExpandError(p, path, depth, fmt.Sprintf("can't expand %v (%T) to bool", value, value))
}

// expandDate parses an ISO-8601 timestamp. Go's time.RFC3339 layout
// already accepts a trailing "Z" natively (unlike the Python original's
// pre-3.11 fromisoformat, which required the literal replace(Z, +00:00)
// spec.md §4.C calls out) so no textual substitution is needed here.
func expandDate(p *port.Port, value any, path []string, depth int) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, newExpandError(p, path, depth, fmt.Sprintf("can't expand %T to date, expected a string", value))
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return nil, newExpandError(p, path, depth, "can't parse ISO-8601 timestamp: "+err.Error())
	}
	return t, nil
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported int-like type %T", value)
	}
}

func toIDString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", fmt.Errorf("expected a string or number identifier, got %T", value)
	}
}

// instantiate builds a new value of t (a struct or pointer-to-struct)
// populating its exported fields from params by matching each field's
// `rekuest` tag (falling back to its `json` tag, then its lowercased Go
// name) against a port key. This stands in for the codegen'd model
// constructors the original calls through `structure_registry
// .get_fullfilled_model(identifier).cls(**params)` -- Go has no runtime
// class construction from a field dict, so reflection does the same job
// explicitly.
func instantiate(t reflect.Type, params map[string]any) (any, error) {
	target := t
	if target.Kind() == reflect.Ptr {
		target = target.Elem()
	}
	if target.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model identifier resolves to non-struct type %s", t)
	}

	ptr := reflect.New(target)
	elem := ptr.Elem()
	for i := 0; i < target.NumField(); i++ {
		field := target.Field(i)
		fv := elem.Field(i)
		if !fv.CanSet() {
			continue
		}
		v, ok := params[FieldKey(field)]
		if !ok {
			continue
		}
		setField(fv, v)
	}

	if t.Kind() == reflect.Ptr {
		return ptr.Interface(), nil
	}
	return elem.Interface(), nil
}

func setField(fv reflect.Value, v any) {
	if v == nil {
		return
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(fv.Type()):
		fv.Set(rv)
	case rv.Type().ConvertibleTo(fv.Type()):
		fv.Set(rv.Convert(fv.Type()))
	}
}

// FieldKey derives the wire key a struct field corresponds to, preferring
// an explicit `rekuest` tag, then `json`, then the lowercased field name.
// Exported so callers outside this package (statesync's Proxy, building
// JSON-Patch paths that must land on the same key the Shrinker/Expander
// use) apply the identical rule rather than drifting from it.
func FieldKey(f reflect.StructField) string {
	if tag := f.Tag.Get("rekuest"); tag != "" {
		return tag
	}
	if tag := f.Tag.Get("json"); tag != "" {
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		if tag != "" && tag != "-" {
			return tag
		}
	}
	return strings.ToLower(f.Name)
}
