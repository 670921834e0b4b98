package js

import (
	"errors"
	"testing"
)

func TestEvaluateCompletionValue(t *testing.T) {
	engine := New()
	v, err := engine.Evaluate("spec.js", `
		({
			defaults: {units: "px"},
			annotations: [
				{type: "rect", x: image.width / 4, y: 10, w: 50, h: 20},
			],
		})
	`, 200, 100)
	if err != nil {
		t.Fatal(err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", v)
	}
	anns, ok := doc["annotations"].([]any)
	if !ok || len(anns) != 1 {
		t.Fatalf("expected 1 annotation, got %#v", doc["annotations"])
	}
	rect := anns[0].(map[string]any)
	if rect["x"] != float64(50) {
		t.Errorf("expected x=50 as float64, got %#v", rect["x"])
	}
}

func TestEvaluateSpecGlobal(t *testing.T) {
	engine := New()
	v, err := engine.Evaluate("spec.js", `
		var spec = [];
		for (var i = 0; i < 3; i++) {
			spec.push({type: "text", text: "step " + (i + 1), x: 10, y: 10 + i * 20});
		}
		console.log("built", spec.length, "labels");
	`, 640, 480)
	if err != nil {
		t.Fatal(err)
	}
	list, ok := v.([]any)
	if !ok || len(list) != 3 {
		t.Fatalf("expected 3 element list, got %#v", v)
	}
	if got := list[2].(map[string]any)["text"]; got != "step 3" {
		t.Errorf("unexpected text: %v", got)
	}
}

func TestEvaluateNoSpec(t *testing.T) {
	engine := New()
	_, err := engine.Evaluate("empty.js", `var x = 1; x + 1;`, 10, 10)
	if !errors.Is(err, ErrNoSpec) {
		t.Errorf("expected ErrNoSpec, got %v", err)
	}
}

func TestScriptError(t *testing.T) {
	engine := New()
	if _, err := engine.Evaluate("bad.js", `throw new Error("test error");`, 10, 10); err == nil {
		t.Error("expected error from throw")
	}
	if _, err := engine.Evaluate("syntax.js", `({`, 10, 10); err == nil {
		t.Error("expected compile error")
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(map[string]any{
		"n":    int64(3),
		"list": []any{int64(1), "a", map[any]any{"k": int64(2)}},
	})
	m := got.(map[string]any)
	if m["n"] != float64(3) {
		t.Errorf("int64 not converted: %#v", m["n"])
	}
	inner := m["list"].([]any)[2].(map[string]any)
	if inner["k"] != float64(2) {
		t.Errorf("nested map not normalized: %#v", inner)
	}
}
