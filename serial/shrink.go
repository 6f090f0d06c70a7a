package serial

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arkitektio/rekuest-next/port"
)

// ShrinkReturns shrinks a Definition's return values into the wire-safe
// map keyed by return Port. Mirrors
// rekuest_next/structures/serialization/actor.py's shrink_outputs.
func (e *Expander) ShrinkReturns(ctx context.Context, returns []*port.Port, values map[string]any) (map[string]any, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]any, len(returns))

	for i, p := range returns {
		i, p := i, p
		g.Go(func() error {
			shrunk, err := e.Shrink(ctx, p, values[p.Key], []string{p.Key}, 0)
			if err != nil {
				return err
			}
			results[i] = shrunk
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(returns))
	for i, p := range returns {
		out[p.Key] = results[i]
	}
	return out, nil
}

// Shrink converts a typed in-memory value to its wire-safe representation
// per p's Kind, recursing into children for LIST/DICT/UNION/MODEL.
func (e *Expander) Shrink(ctx context.Context, p *port.Port, value any, path []string, depth int) (any, error) {
	if value == nil {
		if p.Nullable {
			return nil, nil
		}
		return nil, newShrinkError(p, path, depth, "port is not nullable but received nil")
	}

	switch p.Kind {
	case port.KindUnion:
		return e.shrinkUnion(ctx, p, value, path, depth)
	case port.KindDict:
		return e.shrinkDict(ctx, p, value, path, depth)
	case port.KindList:
		return e.shrinkList(ctx, p, value, path, depth)
	case port.KindModel:
		return e.shrinkModel(ctx, p, value, path, depth)
	case port.KindInt:
		return shrinkInt(p, value, path, depth)
	case port.KindFloat:
		return shrinkFloat(p, value, path, depth)
	case port.KindDate:
		return shrinkDate(p, value, path, depth)
	case port.KindMemoryStructure:
		return e.shrinkMemoryStructure(p, value, path, depth)
	case port.KindStructure:
		return e.shrinkByIdentifier(ctx, p, value, path, depth)
	case port.KindBool:
		return shrinkBool(p, value, path, depth)
	case port.KindString:
		s, ok := value.(string)
		if !ok {
			return nil, newShrinkError(p, path, depth, fmt.Sprintf("expected string, got %T", value))
		}
		return s, nil
	case port.KindEnum:
		return shrinkEnum(p, value, path, depth)
	default:
		return nil, newShrinkError(p, path, depth, "unsupported port kind")
	}
}

func (e *Expander) shrinkUnion(ctx context.Context, p *port.Port, value any, path []string, depth int) (any, error) {
	if len(p.Children) == 0 {
		return nil, newShrinkError(p, path, depth, "union port has no children")
	}
	for index, child := range p.Children {
		if e.matches(child, value) {
			seg := fmt.Sprintf("%s[%d]", p.Key, index)
			shrunk, err := e.Shrink(ctx, child, value, appendPath(path, seg), depth+1)
			if err != nil {
				return nil, err
			}
			return map[string]any{"use": index, "value": shrunk}, nil
		}
	}
	return nil, newShrinkError(p, path, depth, "no union child's predicate matched the value")
}

// matches reports whether value could be shrunk through child. STRUCTURE/
// MEMORY_STRUCTURE/MODEL/ENUM kinds delegate to the registered
// Predicator; scalar and collection kinds check by Go type, mirroring
// the original's predicate_port_input dispatch.
func (e *Expander) matches(child *port.Port, value any) bool {
	switch child.Kind {
	case port.KindStructure, port.KindMemoryStructure, port.KindModel, port.KindEnum:
		if child.Identifier == nil {
			return false
		}
		pred, err := e.Registry.GetPredicator(*child.Identifier)
		if err != nil {
			return false
		}
		return pred(value)
	case port.KindInt:
		switch value.(type) {
		case int, int32, int64:
			return true
		}
		return false
	case port.KindFloat:
		_, ok := value.(float64)
		return ok
	case port.KindBool:
		_, ok := value.(bool)
		return ok
	case port.KindString:
		_, ok := value.(string)
		return ok
	case port.KindDate:
		_, ok := value.(time.Time)
		return ok
	case port.KindList:
		return reflect.ValueOf(value).Kind() == reflect.Slice
	case port.KindDict:
		return reflect.ValueOf(value).Kind() == reflect.Map
	default:
		return false
	}
}

func (e *Expander) shrinkDict(ctx context.Context, p *port.Port, value any, path []string, depth int) (any, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil, newShrinkError(p, path, depth, fmt.Sprintf("expected a map, got %T", value))
	}
	if len(p.Children) != 1 {
		return nil, newShrinkError(p, path, depth, "dict port must have exactly one child")
	}
	child := p.Children[0]

	keys := rv.MapKeys()
	g, ctx := errgroup.WithContext(ctx)
	type kv struct {
		key string
		val any
	}
	results := make([]kv, len(keys))
	for idx, k := range keys {
		idx, k := idx, k
		g.Go(func() error {
			key := fmt.Sprintf("%v", k.Interface())
			v, err := e.Shrink(ctx, child, rv.MapIndex(k).Interface(), appendPath(path, key), depth+1)
			if err != nil {
				return err
			}
			results[idx] = kv{key: key, val: v}
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

func (e *Expander) shrinkList(ctx context.Context, p *port.Port, value any, path []string, depth int) (any, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, newShrinkError(p, path, depth, fmt.Sprintf("expected a list, got %T", value))
	}
	if len(p.Children) != 1 {
		return nil, newShrinkError(p, path, depth, "list port must have exactly one child")
	}
	child := p.Children[0]

	g, ctx := errgroup.WithContext(ctx)
	results := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		i := i
		item := rv.Index(i).Interface()
		g.Go(func() error {
			seg := fmt.Sprintf("%s[%d]", p.Key, i)
			v, err := e.Shrink(ctx, child, item, appendPath(path, seg), depth+1)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Expander) shrinkModel(ctx context.Context, p *port.Port, value any, path []string, depth int) (any, error) {
	if len(p.Children) == 0 {
		return nil, newShrinkError(p, path, depth, "model port has no children")
	}
	if p.Identifier == nil {
		return nil, newShrinkError(p, path, depth, "model port has no identifier")
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, newShrinkError(p, path, depth, fmt.Sprintf("expected a struct for a model port, got %T", value))
	}

	g, ctx := errgroup.WithContext(ctx)
	results := make([]any, len(p.Children))
	for idx, child := range p.Children {
		idx, child := idx, child
		g.Go(func() error {
			fv := fieldByKey(rv, child.Key)
			if !fv.IsValid() {
				return newShrinkError(child, appendPath(path, child.Key), depth+1, "struct has no field matching this port key")
			}
			v, err := e.Shrink(ctx, child, fv.Interface(), appendPath(path, child.Key), depth+1)
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

	out := make(map[string]any, len(p.Children))
	for idx, child := range p.Children {
		out[child.Key] = results[idx]
	}
	return out, nil
}

func fieldByKey(rv reflect.Value, key string) reflect.Value {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		if FieldKey(t.Field(i)) == key {
			return rv.Field(i)
		}
	}
	return reflect.Value{}
}

func (e *Expander) shrinkByIdentifier(ctx context.Context, p *port.Port, value any, path []string, depth int) (any, error) {
	if p.Identifier == nil {
		return nil, newShrinkError(p, path, depth, "port has no identifier")
	}
	id, err := e.Registry.Shrink(ctx, value)
	if err != nil {
		return nil, newShrinkError(p, path, depth, fmt.Sprintf("error shrinking with structure %s: %v", *p.Identifier, err))
	}
	return id, nil
}

func (e *Expander) shrinkMemoryStructure(p *port.Port, value any, path []string, depth int) (any, error) {
	if p.Identifier == nil {
		return nil, newShrinkError(p, path, depth, "port has no identifier")
	}
	return e.Shelf.Put(value), nil
}

func shrinkInt(p *port.Port, value any, path []string, depth int) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return nil, newShrinkError(p, path, depth, fmt.Sprintf("expected int, got %T", value))
	}
}

func shrinkFloat(p *port.Port, value any, path []string, depth int) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return nil, newShrinkError(p, path, depth, fmt.Sprintf("expected float (or int), got %T", value))
	}
}

func shrinkDate(p *port.Port, value any, path []string, depth int) (any, error) {
	t, ok := value.(time.Time)
	if !ok {
		return nil, newShrinkError(p, path, depth, fmt.Sprintf("expected time.Time, got %T", value))
	}
	return t.Format(time.RFC3339Nano), nil
}

func shrinkBool(p *port.Port, value any, path []string, depth int) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, newShrinkError(p, path, depth, "can't shrink string to bool, only \"true\"/\"false\" accepted")
	case int:
		if v == 1 {
			return true, nil
		} else if v == 0 {
			return false, nil
		}
		return nil, newShrinkError(p, path, depth, "can't shrink int to bool, only 0/1 accepted")
	default:
		return nil, newShrinkError(p, path, depth, fmt.Sprintf("expected bool, str, or int, got %T", value))
	}
}

func shrinkEnum(p *port.Port, value any, path []string, depth int) (any, error) {
	if e, ok := value.(interface{ EnumName() string }); ok {
		return e.EnumName(), nil
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return nil, newShrinkError(p, path, depth, fmt.Sprintf("expected an Enumer or string, got %T", value))
}
