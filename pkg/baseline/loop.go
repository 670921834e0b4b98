package baseline

import (
	"time"

	"vizloop/pkg/errs"
	"vizloop/pkg/fileio"
	"vizloop/pkg/logging"
	"vizloop/pkg/visualtest"
)

// Options configures one loop run.
type Options struct {
	Diff           visualtest.Options
	UpdateBaseline bool
	NoAnnotated    bool
	// Now stamps history entries; nil means time.Now.
	Now func() time.Time
}

// Created is reported by the first run of a name.
type Created struct {
	BaselineCreated string `json:"baseline_created"`
	Latest          string `json:"latest"`
	History         string `json:"history"`
}

// Result is exactly one of Created or Report.
type Result struct {
	Created *Created
	Report  *visualtest.Report
}

// Value is the document printed for the run.
func (r *Result) Value() any {
	if r.Created != nil {
		return r.Created
	}
	return r.Report
}

// Run records current under name. The capture is always copied to latest
// and history. The first run of a name makes it the baseline; later runs
// diff against the baseline and write the diff, report and, unless
// disabled, the annotated image and change spec.
func (s *Store) Run(current, name string, opts Options) (*Result, error) {
	if !fileio.Exists(current) {
		return nil, errs.Input("current image not found", current, nil)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	p := s.Paths(name, now())
	log := logging.Logger().With("name", SanitizeName(name))

	if err := fileio.CopyFile(current, p.Latest); err != nil {
		return nil, err
	}
	if err := fileio.CopyFile(current, p.History); err != nil {
		return nil, err
	}

	if !fileio.Exists(p.Baseline) {
		if err := fileio.CopyFile(current, p.Baseline); err != nil {
			return nil, err
		}
		log.Info("baseline created", "path", p.Baseline)
		return &Result{Created: &Created{
			BaselineCreated: fileio.Abs(p.Baseline),
			Latest:          fileio.Abs(p.Latest),
			History:         fileio.Abs(p.History),
		}}, nil
	}

	d := opts.Diff
	d.DiffOut = p.Diff
	d.JSONOut = p.Report
	d.AnnotatedOut, d.AnnotateSpecOut = "", ""
	if !opts.NoAnnotated {
		d.AnnotatedOut = p.Annotated
		d.AnnotateSpecOut = p.AnnotateSpec
	}
	report, err := visualtest.Run(p.Baseline, current, d)
	if err != nil {
		return nil, err
	}
	log.Info("loop diff", "percent_changed", report.PercentChanged, "regions", report.ChangeRegionCount)

	if opts.UpdateBaseline {
		if err := fileio.CopyFile(current, p.Baseline); err != nil {
			return nil, err
		}
		log.Info("baseline updated", "path", p.Baseline)
	}
	return &Result{Report: report}, nil
}
