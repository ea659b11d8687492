package cli

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"imcreg/internal/alignment"
	"imcreg/internal/app"
	"imcreg/internal/controlpoints"
	"imcreg/internal/viewer"
	"imcreg/pkg/geometry"
)

// openSession builds a session from the command's flags. With probe set,
// both images of every displayed pair are opened by a header probe.
func openSession(cmd *cobra.Command, o *sessionOptions, probe bool) (*app.Session, [2]*viewer.Probe, error) {
	var probes [2]*viewer.Probe

	p, err := o.resolve(cmd)
	if err != nil {
		return nil, probes, err
	}
	cfg, err := sessionConfig(p)
	if err != nil {
		return nil, probes, err
	}

	opts := []app.Option{app.WithLogger(log.Default())}
	if probe {
		probes = [2]*viewer.Probe{viewer.New(log.Default()), viewer.New(log.Default())}
		opts = append(opts, app.WithViewers(probes[0], probes[1]))
	}

	s, err := app.NewSession(cmd.Context(), cfg, opts...)
	if err != nil {
		return nil, probes, err
	}
	printVerbose("Session: %d pair(s), %s transform\n", s.Len(), s.Kind())
	return s, probes, nil
}

// pairReport summarises the state of one pair.
type pairReport struct {
	Index          int                 `json:"index"`
	Name           string              `json:"name"`
	Source         string              `json:"source"`
	Target         string              `json:"target"`
	Matched        int                 `json:"matched"`
	MinPoints      int                 `json:"min_points"`
	Transform      *geometry.Transform `json:"transform,omitempty"`
	JointTransform *geometry.Transform `json:"joint_transform,omitempty"`
	Residuals      *alignment.Stats    `json:"residuals,omitempty"`
	Coordinates    int                 `json:"coordinates"`
	SourceImage    *viewer.Info        `json:"source_image,omitempty"`
	TargetImage    *viewer.Info        `json:"target_image,omitempty"`
	// Extent is the bounding box of the matched source points.
	Extent *geometry.Rect `json:"extent,omitempty"`
	// Coverage is the fraction of the source image inside the convex hull
	// of the matched source points.
	Coverage float64 `json:"coverage,omitempty"`
	Saved    bool    `json:"saved"`
	// Skipped names why register left the pair untouched.
	Skipped string `json:"skipped,omitempty"`
}

func report(s *app.Session, probes [2]*viewer.Probe) pairReport {
	pair := s.Current()
	u := s.Snapshot()
	r := pairReport{
		Index:          s.Index(),
		Name:           filepath.Base(pair.Target),
		Source:         pair.Source,
		Target:         pair.Target,
		Matched:        len(u.Matched),
		MinPoints:      s.Kind().MinPoints(),
		Transform:      u.Transform,
		JointTransform: u.JointTransform,
		Coordinates:    u.TransformedCoords.Len(),
	}
	if len(u.Matched) > 0 {
		extent := geometry.BoundingBox(u.Matched.Sources())
		r.Extent = &extent
	}
	if u.Transform != nil {
		stats := alignment.ResidualStats(u.Residuals)
		r.Residuals = &stats
	}
	for i, p := range probes {
		if p == nil {
			continue
		}
		if info, ok := p.Info(); ok {
			if i == 0 {
				r.SourceImage = &info
			} else {
				r.TargetImage = &info
			}
		}
	}
	if img := r.SourceImage; img != nil && img.Width > 0 && img.Height > 0 {
		hull := geometry.ConvexHull(u.Matched.Sources())
		r.Coverage = geometry.PolygonArea(hull) / float64(img.Width*img.Height)
	}
	return r
}

func printReport(r pairReport) {
	printInfo("[%d] %s: %d matched control point(s)", r.Index+1, r.Name, r.Matched)
	if r.Residuals != nil {
		printInfo(", RMS residual %.3f (max %.3f)", r.Residuals.RMS, r.Residuals.Max)
	} else {
		printInfo(", no transform (need at least %d)", r.MinPoints)
	}
	if r.Saved {
		printInfo(", saved")
	}
	if r.Skipped != "" {
		printInfo(", skipped: %s", r.Skipped)
	}
	printInfo("\n")
	for _, img := range []*viewer.Info{r.SourceImage, r.TargetImage} {
		if img != nil && img.Format != "" {
			printVerbose("    %s: %s %dx%d\n", filepath.Base(img.Path), img.Format, img.Width, img.Height)
		}
	}
	if e := r.Extent; e != nil {
		printVerbose("    control points span (%.1f, %.1f) %.1fx%.1f\n", e.X, e.Y, e.Width, e.Height)
	}
	if r.Coverage > 0 {
		printVerbose("    control points cover %.1f%% of the source image\n", 100*r.Coverage)
	}
	if r.JointTransform != nil {
		printVerbose("    joint transform: rotation %.3f°, scale %.4f\n",
			r.JointTransform.RotationDegrees(), r.JointTransform.ScaleFactor())
	}
}

func parseRole(name string) (controlpoints.Role, error) {
	role, err := controlpoints.ParseRole(name)
	if err != nil {
		return 0, fmt.Errorf("invalid --role: %w", err)
	}
	return role, nil
}
