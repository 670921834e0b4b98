package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vizloop/pkg/images"
	"vizloop/pkg/logging"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Cleanup(func() { logging.SetLogger(nil) })
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// inTempDir runs the test from an empty directory so no vizloop.yaml or
// earlier outputs are picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writePNG(t *testing.T, path string, w, h int, patch image.Rectangle) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			if image.Pt(x, y).In(patch) {
				c = color.NRGBA{0, 0, 0, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestIntegration_Commands(t *testing.T) {
	inTempDir(t)
	code, out, _ := runCLI(t, "commands")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	var doc struct {
		Commands []struct {
			Name string `json:"name"`
		} `json:"commands"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("commands output is not JSON: %v\n%s", err, out)
	}
	var names []string
	for _, c := range doc.Commands {
		names = append(names, c.Name)
	}
	want := "commands,spec-help,annotate,diff,loop,capture"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("commands = %s, want %s", got, want)
	}
}

func TestIntegration_SpecHelp(t *testing.T) {
	inTempDir(t)
	code, out, _ := runCLI(t, "spec-help")
	if code != 0 || !strings.Contains(out, "annotations") {
		t.Errorf("spec-help exit %d, output %q", code, out)
	}
	code, out2, _ := runCLI(t, "annotate", "--spec-help")
	if code != 0 || out2 != out {
		t.Errorf("annotate --spec-help should print the same schema")
	}
}

func TestIntegration_Annotate(t *testing.T) {
	dir := inTempDir(t)
	writePNG(t, "in.png", 80, 60, image.Rectangle{})
	spec := `{"annotations":[{"type":"rect","x":10,"y":10,"w":30,"h":20,"color":"#0000FF","width":2,"outline":false,"fit":false}]}`
	if err := os.WriteFile("spec.json", []byte(spec), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := runCLI(t, "annotate", "in.png", "out.png", "--spec", "spec.json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if got := strings.TrimSpace(out); got != filepath.Join(dir, "out.png") {
		t.Errorf("printed %q", got)
	}
	img, err := images.LoadNRGBA("out.png")
	if err != nil {
		t.Fatal(err)
	}
	if got := img.NRGBAAt(10, 10); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("rect corner = %v", got)
	}
	if _, err := os.Stat("out.json"); err != nil {
		t.Errorf("expected metadata sidecar: %v", err)
	}

	code, _, _ = runCLI(t, "annotate", "in.png", "bare.png", "--spec", "spec.json", "--no-meta")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if _, err := os.Stat("bare.json"); !os.IsNotExist(err) {
		t.Errorf("--no-meta should skip the sidecar")
	}
}

func TestIntegration_AnnotateErrors(t *testing.T) {
	inTempDir(t)
	code, _, errOut := runCLI(t, "annotate", "missing.png", "out.png", "--spec", "spec.json")
	if code != 1 || !strings.HasPrefix(errOut, "error: ") {
		t.Errorf("missing input: exit %d, stderr %q", code, errOut)
	}
	if _, err := os.Stat("out.png"); !os.IsNotExist(err) {
		t.Errorf("no output should be written on failure")
	}

	writePNG(t, "in.png", 20, 20, image.Rectangle{})
	os.WriteFile("bad.json", []byte(`{"annotations":{}}`), 0o644)
	code, _, _ = runCLI(t, "annotate", "in.png", "out.png", "--spec", "bad.json")
	if code != 1 {
		t.Errorf("bad spec shape: exit %d, want 1", code)
	}

	code, _, _ = runCLI(t, "annotate", "in.png")
	if code != 2 {
		t.Errorf("missing arguments: exit %d, want 2", code)
	}
}

func TestIntegration_Diff(t *testing.T) {
	inTempDir(t)
	writePNG(t, "a.png", 100, 60, image.Rectangle{})
	writePNG(t, "b.png", 100, 60, image.Rect(20, 10, 40, 30))

	code, out, errOut := runCLI(t, "diff", "a.png", "b.png", "--json-out", "report.json", "--annotate-spec-out", "spec.json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	var report map[string]any
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("diff output is not JSON: %v", err)
	}
	if report["change_region_count"] != float64(1) {
		t.Errorf("change_region_count = %v", report["change_region_count"])
	}
	if report["diff_image"] != nil {
		t.Errorf("diff_image should be null when not requested")
	}
	for _, p := range []string{"report.json", "spec.json"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s: %v", p, err)
		}
	}

	code, out, _ = runCLI(t, "diff", "a.png", "b.png", "--bbox-min-area", "1000")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(out, `"change_region_count":0`) {
		t.Errorf("min area flag not applied: %s", out)
	}
}

func TestIntegration_DiffConfig(t *testing.T) {
	inTempDir(t)
	writePNG(t, "a.png", 100, 60, image.Rectangle{})
	writePNG(t, "b.png", 100, 60, image.Rect(20, 10, 40, 30))
	os.WriteFile("vizloop.yaml", []byte("diff:\n  min_area: 1000\n"), 0o644)

	_, out, _ := runCLI(t, "diff", "a.png", "b.png")
	if !strings.Contains(out, `"change_region_count":0`) {
		t.Errorf("config min_area not applied: %s", out)
	}
	_, out, _ = runCLI(t, "diff", "--bbox-min-area", "10", "a.png", "b.png")
	if !strings.Contains(out, `"change_region_count":1`) {
		t.Errorf("flag should override config: %s", out)
	}
}

func TestIntegration_DiffSizeMismatch(t *testing.T) {
	inTempDir(t)
	writePNG(t, "a.png", 40, 30, image.Rectangle{})
	writePNG(t, "b.png", 20, 15, image.Rectangle{})

	code, _, errOut := runCLI(t, "diff", "a.png", "b.png", "--json-out", "report.json")
	if code != 1 || !strings.Contains(errOut, "resize") {
		t.Errorf("size mismatch: exit %d, stderr %q", code, errOut)
	}
	if _, err := os.Stat("report.json"); !os.IsNotExist(err) {
		t.Errorf("no report should be written on failure")
	}

	code, out, _ := runCLI(t, "diff", "a.png", "b.png", "--resize")
	if code != 0 || !strings.Contains(out, `"resized":true`) {
		t.Errorf("resize: exit %d, output %s", code, out)
	}
}

func TestIntegration_Loop(t *testing.T) {
	inTempDir(t)
	writePNG(t, "first.png", 100, 60, image.Rectangle{})
	writePNG(t, "second.png", 100, 60, image.Rect(20, 10, 40, 30))

	code, out, errOut := runCLI(t, "loop", "first.png", "home screen")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, `"baseline_created"`) {
		t.Errorf("first run should create the baseline: %s", out)
	}
	if _, err := os.Stat(filepath.Join(".vizloop", "loop", "baselines", "home_screen.png")); err != nil {
		t.Errorf("baseline missing: %v", err)
	}

	code, out, _ = runCLI(t, "loop", "second.png", "home screen", "--update-baseline")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(out, `"change_region_count":1`) {
		t.Errorf("second run should diff: %s", out)
	}

	_, out, _ = runCLI(t, "loop", "second.png", "home screen")
	if !strings.Contains(out, `"change_region_count":0`) {
		t.Errorf("updated baseline should match: %s", out)
	}
}

type fakeGrabber struct{}

func (fakeGrabber) NumDisplays() int { return 1 }

func (fakeGrabber) Bounds(int) image.Rectangle { return image.Rect(0, 0, 32, 24) }

func (fakeGrabber) Capture(r image.Rectangle) (*image.RGBA, error) {
	return image.NewRGBA(r), nil
}

func TestIntegration_Capture(t *testing.T) {
	dir := inTempDir(t)
	oldGrabber, oldNow := grabber, now
	grabber = fakeGrabber{}
	now = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }
	t.Cleanup(func() { grabber, now = oldGrabber, oldNow })

	code, out, errOut := runCLI(t, "capture", "--label", "Demo App", "--step", "before")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	want := filepath.Join(dir, ".vizloop", "captures", "demo-app-20260203-040506.png")
	if got := strings.TrimSpace(out); got != want {
		t.Errorf("printed %q, want %q", got, want)
	}

	code, out, _ = runCLI(t, "capture", "shot.png", "--rect", "4,4,10,8", "--json", "--no-sidecar")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("capture json: %v", err)
	}
	bounds := rec["bounds"].(map[string]any)
	if bounds["width"] != float64(10) || bounds["height"] != float64(8) {
		t.Errorf("bounds = %v", bounds)
	}
	if _, err := os.Stat("shot.json"); !os.IsNotExist(err) {
		t.Errorf("--no-sidecar should skip the sidecar")
	}

	code, _, _ = runCLI(t, "capture", "shot.png", "--rect", "1,2,3")
	if code != 1 {
		t.Errorf("bad rect: exit %d, want 1", code)
	}
}

func TestIntegration_UnknownCommand(t *testing.T) {
	inTempDir(t)
	if code, _, _ := runCLI(t, "observe"); code != 2 {
		t.Errorf("exit %d, want 2", code)
	}
	if code, _, _ := runCLI(t); code != 2 {
		t.Errorf("no command: exit %d, want 2", code)
	}
}
