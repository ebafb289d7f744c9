package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vk/graphunit/internal/container"
	"github.com/vk/graphunit/internal/ctxlog"
	"github.com/vk/graphunit/internal/script"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// formatVersion is bumped on incompatible changes to the encoding.
const formatVersion = 1

// envelope is the encoded form of a bundle. Containers and parameters are
// written once in objects and referred to by id everywhere else, so objects
// shared between slots stay shared after decoding.
type envelope struct {
	Version  int       `json:"version"`
	Code     string    `json:"code"`
	Training *bool     `json:"training,omitempty"`
	Slots    []slotRef `json:"slots"`
	Objects  []object  `json:"objects"`
}

type slotRef struct {
	Name string `json:"name"`
	Ref  int    `json:"ref"`
}

type object struct {
	ID        int              `json:"id"`
	Container *containerObject `json:"container,omitempty"`
	Param     *paramObject     `json:"param,omitempty"`
}

type containerObject struct {
	Kind     string    `json:"kind"`
	Training bool      `json:"training"`
	Code     string    `json:"code,omitempty"`
	Slots    []slotRef `json:"slots"`
}

type paramObject struct {
	Buffer bool            `json:"buffer,omitempty"`
	Type   json.RawMessage `json:"type"`
	Value  json.RawMessage `json:"value"`
}

// Encode writes bundle to w as JSON. Parameter values keep their exact cty
// types. Containers keep their kind, mode and, when their method is bound
// source, that source.
func (c *Codec) Encode(w io.Writer, bundle StateBundle) error {
	code, ok := bundle.Code()
	if !ok {
		return fmt.Errorf("encoding bundle: no %q string", CodeKey)
	}
	env := &envelope{Version: formatVersion, Code: code, Slots: []slotRef{}, Objects: []object{}}
	if v, ok := bundle[TrainingKey].(bool); ok {
		env.Training = &v
	}

	enc := &encoder{env: env, ids: make(map[any]int)}
	for _, name := range bundle.Slots() {
		v := bundle[name]
		if val, ok := v.(cty.Value); ok {
			v = container.NewParam(val)
		}
		id, err := enc.add(v)
		if err != nil {
			return fmt.Errorf("encoding slot %q: %w", name, err)
		}
		env.Slots = append(env.Slots, slotRef{Name: name, Ref: id})
	}

	out := json.NewEncoder(w)
	out.SetIndent("", "  ")
	return out.Encode(env)
}

type encoder struct {
	env *envelope
	ids map[any]int
}

// add assigns v an id and appends it, and everything it holds, to the
// object table. Objects seen before keep their id.
func (e *encoder) add(v any) (int, error) {
	if id, ok := e.ids[v]; ok {
		return id, nil
	}
	id := len(e.env.Objects) + 1
	e.ids[v] = id

	switch slot := v.(type) {
	case *container.Param:
		val := slot.Value()
		ty, err := ctyjson.MarshalType(val.Type())
		if err != nil {
			return 0, err
		}
		data, err := ctyjson.Marshal(val, val.Type())
		if err != nil {
			return 0, err
		}
		e.env.Objects = append(e.env.Objects, object{ID: id, Param: &paramObject{Buffer: slot.IsBuffer(), Type: ty, Value: data}})
		return id, nil

	case *container.Container:
		obj := &containerObject{Kind: slot.Kind(), Training: slot.Training(), Slots: []slotRef{}}
		if fn, ok := slot.Method().(*script.Func); ok {
			obj.Code = fn.Source()
		}
		// Reserve the position before descending so ids follow table order.
		e.env.Objects = append(e.env.Objects, object{ID: id, Container: obj})
		for _, name := range slot.Names() {
			child, _ := slot.Get(name)
			cid, err := e.add(child)
			if err != nil {
				return 0, fmt.Errorf("%s: %w", name, err)
			}
			obj.Slots = append(obj.Slots, slotRef{Name: name, Ref: cid})
		}
		return id, nil

	default:
		return 0, fmt.Errorf("cannot encode slot value of type %T", v)
	}
}

// Decode reads a bundle written by Encode. Containers get the method of
// their kind when one is known, or their stored source bound again.
func (c *Codec) Decode(ctx context.Context, r io.Reader) (StateBundle, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, env.Version)
	}

	objects := make(map[int]any, len(env.Objects))
	for _, obj := range env.Objects {
		if _, dup := objects[obj.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate object id %d", ErrFormat, obj.ID)
		}
		v, err := c.decodeObject(ctx, obj)
		if err != nil {
			return nil, fmt.Errorf("%w: object %d: %v", ErrFormat, obj.ID, err)
		}
		objects[obj.ID] = v
	}

	for _, obj := range env.Objects {
		if obj.Container == nil {
			continue
		}
		parent := objects[obj.ID].(*container.Container)
		for _, s := range obj.Container.Slots {
			child, ok := objects[s.Ref]
			if !ok {
				return nil, fmt.Errorf("%w: object %d slot %q refers to missing object %d", ErrFormat, obj.ID, s.Name, s.Ref)
			}
			if err := parent.Set(s.Name, child); err != nil {
				return nil, fmt.Errorf("%w: object %d: %v", ErrFormat, obj.ID, err)
			}
		}
	}

	bundle := StateBundle{CodeKey: env.Code}
	if env.Training != nil {
		bundle[TrainingKey] = *env.Training
	}
	for _, s := range env.Slots {
		v, ok := objects[s.Ref]
		if !ok {
			return nil, fmt.Errorf("%w: slot %q refers to missing object %d", ErrFormat, s.Name, s.Ref)
		}
		bundle[s.Name] = v
	}
	ctxlog.FromContext(ctx).Debug("Bundle decoded.", "objects", len(env.Objects), "slots", len(env.Slots))
	return bundle, nil
}

func (c *Codec) decodeObject(ctx context.Context, obj object) (any, error) {
	switch {
	case obj.Param != nil && obj.Container == nil:
		ty, err := ctyjson.UnmarshalType(obj.Param.Type)
		if err != nil {
			return nil, err
		}
		val, err := ctyjson.Unmarshal(obj.Param.Value, ty)
		if err != nil {
			return nil, err
		}
		if obj.Param.Buffer {
			return container.NewBuffer(val), nil
		}
		return container.NewParam(val), nil

	case obj.Container != nil && obj.Param == nil:
		co := obj.Container
		ct := container.New(co.Kind)
		ct.SetMode(co.Training)
		if c.kinds != nil {
			if m, ok := c.kinds.Method(co.Kind); ok {
				ct.SetMethod(m)
			}
		}
		if co.Code != "" {
			fn, err := script.Bind(ctx, c.reg, co.Code, c.ns)
			if err != nil {
				return nil, err
			}
			ct.SetMethod(fn)
		}
		return ct, nil

	default:
		return nil, fmt.Errorf("object must be exactly one of container or param")
	}
}
