package visualtest

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vizloop/pkg/annotate"
	"vizloop/pkg/errs"
	"vizloop/pkg/images"
	"vizloop/pkg/regions"
)

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

// writePair saves a white baseline and a copy with a red patch.
func writePair(t *testing.T, dir string, w, h int, patch image.Rectangle) (string, string) {
	t.Helper()
	white := color.RGBA{255, 255, 255, 255}

	base := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(base, base.Bounds(), white)
	cur := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(cur, cur.Bounds(), white)
	fill(cur, patch, color.RGBA{255, 0, 0, 255})

	basePath := filepath.Join(dir, "baseline.png")
	curPath := filepath.Join(dir, "current.png")
	saveTestImage(t, base, basePath)
	saveTestImage(t, cur, curPath)
	return basePath, curPath
}

func TestRun_SinglePatch(t *testing.T) {
	tmpDir := t.TempDir()
	basePath, curPath := writePair(t, tmpDir, 100, 60, image.Rect(20, 10, 40, 30))

	opts := DefaultOptions()
	opts.DiffOut = filepath.Join(tmpDir, "out", "diff.png")
	opts.JSONOut = filepath.Join(tmpDir, "out", "report.json")
	opts.AnnotatedOut = filepath.Join(tmpDir, "out", "annotated.png")
	opts.AnnotateSpecOut = filepath.Join(tmpDir, "out", "spec.json")

	report, err := Run(basePath, curPath, opts)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}

	if report.ChangeRegionCount != 1 || len(report.ChangeRegions) != 1 {
		t.Fatalf("expected 1 region, got %d", report.ChangeRegionCount)
	}
	r := report.ChangeRegions[0]
	want := regions.ChangeRegion{
		X: 18, Y: 8, W: 24, H: 24, X2: 42, Y2: 32,
		Pixels: 400, Area: 576, Coverage: 0.6944,
		Intent: "changed-region", Action: "inspect", ID: "change-1",
		Rel: regions.Rel{X: 0.18, Y: 0.133333, W: 0.24, H: 0.4},
	}
	if r != want {
		t.Errorf("region = %+v, want %+v", r, want)
	}
	if report.PercentChanged != 6.667 {
		t.Errorf("percent_changed = %v, want 6.667", report.PercentChanged)
	}
	if report.AvgDiffPercent != 6.667 {
		t.Errorf("avg_diff_percent = %v, want 6.667", report.AvgDiffPercent)
	}
	if report.Resized {
		t.Errorf("expected resized=false")
	}
	if report.DiffImage == nil || *report.DiffImage != opts.DiffOut {
		t.Errorf("diff_image = %v", report.DiffImage)
	}

	diff, err := images.LoadNRGBA(opts.DiffOut)
	if err != nil {
		t.Fatalf("load diff: %v", err)
	}
	if got := diff.NRGBAAt(25, 15); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("heatmap inside patch = %v", got)
	}
	if got := diff.NRGBAAt(80, 50); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("heatmap outside patch = %v", got)
	}

	annotated, err := images.LoadNRGBA(opts.AnnotatedOut)
	if err != nil {
		t.Fatalf("load annotated: %v", err)
	}
	if got := annotated.NRGBAAt(18, 8); got != (color.NRGBA{255, 69, 58, 255}) {
		t.Errorf("annotated corner = %v", got)
	}
}

func TestRun_ReportDocument(t *testing.T) {
	tmpDir := t.TempDir()
	basePath, curPath := writePair(t, tmpDir, 100, 60, image.Rect(20, 10, 40, 30))

	opts := DefaultOptions()
	opts.JSONOut = filepath.Join(tmpDir, "report.json")
	if _, err := Run(basePath, curPath, opts); err != nil {
		t.Fatalf("diff failed: %v", err)
	}

	data, err := os.ReadFile(opts.JSONOut)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	text := string(data)
	keys := []string{
		`"baseline"`, `"current"`, `"diff_image"`, `"annotated_image"`, `"annotate_spec"`,
		`"percent_changed"`, `"avg_diff_percent"`, `"size"`, `"resized"`,
		`"change_regions"`, `"change_region_count"`,
	}
	last := -1
	for _, k := range keys {
		i := strings.Index(text, k)
		if i <= last {
			t.Fatalf("key %s out of order in report", k)
		}
		last = i
	}
	if strings.Contains(text, "sheet_image") {
		t.Errorf("sheet_image should be omitted when not requested")
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if doc["diff_image"] != nil {
		t.Errorf("expected null diff_image, got %v", doc["diff_image"])
	}
	if !filepath.IsAbs(doc["baseline"].(string)) {
		t.Errorf("baseline path should be absolute")
	}
}

func TestRun_Identical(t *testing.T) {
	tmpDir := t.TempDir()
	basePath, _ := writePair(t, tmpDir, 10, 10, image.Rectangle{})

	report, err := Run(basePath, basePath, DefaultOptions())
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	if report.PercentChanged != 0 || report.ChangeRegionCount != 0 {
		t.Errorf("expected no change, got %+v", report)
	}
	if report.ChangeRegions == nil {
		t.Errorf("change_regions should be an empty list, not null")
	}
}

func TestRun_DifferentDimensions(t *testing.T) {
	tmpDir := t.TempDir()

	img1 := image.NewRGBA(image.Rect(0, 0, 10, 10))
	path1 := filepath.Join(tmpDir, "img1.png")
	saveTestImage(t, img1, path1)

	img2 := image.NewRGBA(image.Rect(0, 0, 20, 20))
	path2 := filepath.Join(tmpDir, "img2.png")
	saveTestImage(t, img2, path2)

	opts := DefaultOptions()
	opts.JSONOut = filepath.Join(tmpDir, "report.json")
	_, err := Run(path1, path2, opts)
	if !errors.Is(err, errs.ErrSizeMismatch) {
		t.Fatalf("expected size mismatch, got %v", err)
	}
	if _, err := os.Stat(opts.JSONOut); !os.IsNotExist(err) {
		t.Errorf("no report should be written on failure")
	}

	opts.Resize = true
	report, err := Run(path1, path2, opts)
	if err != nil {
		t.Fatalf("diff with resize failed: %v", err)
	}
	if !report.Resized {
		t.Errorf("expected resized=true")
	}
	if report.Size != (Size{Width: 10, Height: 10}) {
		t.Errorf("size = %+v, want baseline size", report.Size)
	}
}

func TestRun_MissingInput(t *testing.T) {
	tmpDir := t.TempDir()
	basePath, _ := writePair(t, tmpDir, 10, 10, image.Rectangle{})

	_, err := Run(filepath.Join(tmpDir, "nope.png"), basePath, DefaultOptions())
	if !errors.Is(err, errs.ErrInput) {
		t.Errorf("expected input error for missing baseline, got %v", err)
	}
	_, err = Run(basePath, filepath.Join(tmpDir, "nope.png"), DefaultOptions())
	if !errors.Is(err, errs.ErrInput) {
		t.Errorf("expected input error for missing current, got %v", err)
	}
}

func TestRun_FailedWriteLeavesNoOutputs(t *testing.T) {
	tmpDir := t.TempDir()
	basePath, curPath := writePair(t, tmpDir, 40, 30, image.Rect(5, 5, 20, 20))
	blocker := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions()
	opts.DiffOut = filepath.Join(tmpDir, "diff.png")
	opts.AnnotateSpecOut = filepath.Join(tmpDir, "spec.json")
	opts.AnnotatedOut = filepath.Join(blocker, "annotated.png")
	opts.JSONOut = filepath.Join(tmpDir, "report.json")

	if _, err := Run(basePath, curPath, opts); err == nil {
		t.Fatalf("expected write error under a regular file")
	}
	for _, p := range []string{opts.DiffOut, opts.AnnotateSpecOut, opts.JSONOut} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should not remain after a failed run", filepath.Base(p))
		}
	}
}

func TestRun_Sheet(t *testing.T) {
	tmpDir := t.TempDir()
	basePath, curPath := writePair(t, tmpDir, 40, 30, image.Rect(5, 5, 20, 20))

	opts := DefaultOptions()
	opts.SheetOut = filepath.Join(tmpDir, "sheet.png")
	report, err := Run(basePath, curPath, opts)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	if report.SheetImage == nil {
		t.Fatalf("expected sheet_image")
	}
	w, h, err := images.GetImageDimensions(opts.SheetOut)
	if err != nil {
		t.Fatalf("load sheet: %v", err)
	}
	if w <= 3*40 || h <= 30 {
		t.Errorf("sheet too small: %dx%d", w, h)
	}
}

func TestBuildAnnotateSpec(t *testing.T) {
	rs := []regions.ChangeRegion{
		{X: 18, Y: 8, W: 24, H: 24, ID: "change-1"},
		{X: 60, Y: 30, W: 10, H: 10, ID: "change-2"},
	}
	spec := BuildAnnotateSpec(rs)
	if len(spec.Annotations) != 4 {
		t.Fatalf("expected 4 annotations, got %d", len(spec.Annotations))
	}
	label := spec.Annotations[3].(SpecLabel)
	if label.Text != "2" || label.Anchor != "change-2" || label.AnchorOffset != [2]int{0, -18} {
		t.Errorf("unexpected label %+v", label)
	}

	data, err := json.Marshal(spec.Annotations[0])
	if err != nil {
		t.Fatal(err)
	}
	wantRect := `{"type":"rect","id":"change-1","x":18,"y":8,"w":24,"h":24,"color":"#FF453A","width":3,"intent":"changed-region","action":"inspect"}`
	if string(data) != wantRect {
		t.Errorf("rect = %s", data)
	}

	empty := BuildAnnotateSpec(nil)
	data, _ = json.Marshal(empty)
	if !strings.Contains(string(data), `"annotations":[]`) {
		t.Errorf("empty spec = %s", data)
	}
}

// The generated spec renders through the annotation pipeline: the rect
// auto-fits to the patch and the label sits above its top-left corner.
func TestAnnotateSpecRenders(t *testing.T) {
	tmpDir := t.TempDir()
	basePath, curPath := writePair(t, tmpDir, 100, 60, image.Rect(20, 10, 40, 30))

	report, err := Run(basePath, curPath, DefaultOptions())
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	doc, err := BuildAnnotateSpec(report.ChangeRegions).Document()
	if err != nil {
		t.Fatalf("spec document: %v", err)
	}
	cur, err := images.LoadNRGBA(curPath)
	if err != nil {
		t.Fatal(err)
	}

	res, err := annotate.Render(cur, doc)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}
	rect, label := res.Items[0], res.Items[1]
	if rect.Geometry["x"] != int64(20) || rect.Geometry["w"] != int64(20) {
		t.Errorf("rect geometry = %v", rect.Geometry)
	}
	if label.Geometry["x"] != int64(20) || label.Geometry["y"] != int64(-8) {
		t.Errorf("label geometry = %v", label.Geometry)
	}
	if label.Intent != "change-label" {
		t.Errorf("label intent = %v", label.Intent)
	}
}

// Helper function to save test images
func saveTestImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
}
