// Package js evaluates annotation spec scripts. A script sees the target
// image size through the image global and produces a spec document either
// as its completion value or by assigning the spec global.
package js

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// ErrNoSpec is returned when a script neither evaluates to an object nor
// assigns the spec global.
var ErrNoSpec = errors.New("script produced no spec")

// Engine runs spec scripts on a fresh goja runtime.
type Engine struct {
	vm *goja.Runtime
}

// New creates an engine with console logging registered.
func New() *Engine {
	vm := goja.New()
	e := &Engine{vm: vm}

	// Register console API
	c := &consoleAPI{}
	c.register(vm)

	return e
}

// Evaluate runs src with image.width and image.height set and returns the
// exported document: a []any for a bare list, a map[string]any otherwise.
func (e *Engine) Evaluate(name, src string, width, height int) (any, error) {
	img := e.vm.NewObject()
	img.Set("width", width)
	img.Set("height", height)
	if err := e.vm.Set("image", img); err != nil {
		return nil, fmt.Errorf("set image global: %w", err)
	}

	prog, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	result, err := e.vm.RunProgram(prog)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}

	if v := exportObject(result); v != nil {
		return v, nil
	}
	if v := exportObject(e.vm.Get("spec")); v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNoSpec)
}

func exportObject(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	switch exported := Normalize(v.Export()).(type) {
	case map[string]any:
		return exported
	case []any:
		return exported
	}
	return nil
}

// Normalize converts exported script values into the shapes produced by
// encoding/json: float64 numbers, []any arrays and map[string]any objects.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	}
	return v
}
