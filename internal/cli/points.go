package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"imcreg/internal/app"
	"imcreg/internal/controlpoints"
	"imcreg/internal/viewer"
	"imcreg/pkg/geometry"
)

// pointsOptions are shared by the points subcommands.
type pointsOptions struct {
	session sessionOptions
	pair    int
	role    string
}

func init() {
	rootCmd.AddCommand(newPointsCmd())
}

func newPointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "List and edit the control points of a pair",
		Long: `The points commands edit the control points of one pair. Every edit
saves the matched control points, the joint transform and the transformed
coordinates, as placing a point in a viewer would.

Example:
  imcreg points list --project study.imcreg.json --pair 2
  imcreg points add --project study.imcreg.json 120.5 88 61.25 44
  imcreg points move --project study.imcreg.json --role target 3 140 90.25
  imcreg points delete --project study.imcreg.json --role source 3`,
	}
	cmd.AddCommand(
		newPointsSubcommand("list", "List the control points of both images", cobra.NoArgs, false, runPointsList),
		newPointsSubcommand("add <x-source> <y-source> <x-target> <y-target>",
			"Place a control point on both images", cobra.ExactArgs(4), false, runPointsAdd),
		newPointsSubcommand("move <id> <x> <y>", "Move a control point", cobra.ExactArgs(3), true, runPointsMove),
		newPointsSubcommand("delete <id>", "Delete a control point", cobra.ExactArgs(1), true, runPointsDelete),
	)
	return cmd
}

type pointsRunner func(s *app.Session, role controlpoints.Role, args []string) error

// newPointsSubcommand builds one points subcommand. Only one-sided edits
// take --role.
func newPointsSubcommand(use, short string, args cobra.PositionalArgs, withRole bool, run pointsRunner) *cobra.Command {
	var opts pointsOptions
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseRole(opts.role)
			if err != nil {
				return err
			}
			s, _, err := openSession(cmd, &opts.session, false)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Seek(opts.pair - 1); err != nil {
				return fmt.Errorf("invalid --pair: %w", err)
			}
			return run(s, role, args)
		},
	}
	addSessionFlags(cmd, &opts.session)
	cmd.Flags().IntVar(&opts.pair, "pair", 1, "Pair number (1-based) in directory mode")
	opts.role = "source"
	if withRole {
		cmd.Flags().StringVar(&opts.role, "role", "source", "Image the point belongs to: source or target")
	}
	return cmd
}

func runPointsList(s *app.Session, _ controlpoints.Role, _ []string) error {
	src := s.Points(controlpoints.Source)
	dst := s.Points(controlpoints.Target)
	if jsonOut {
		return printJSON(map[string]interface{}{
			"pair":    s.Current(),
			"source":  src,
			"target":  dst,
			"matched": s.Snapshot().Matched,
		})
	}
	for _, role := range []controlpoints.Role{controlpoints.Source, controlpoints.Target} {
		pts := s.Points(role)
		printInfo("%s: %d point(s)\n", role, len(pts))
		for _, p := range pts {
			printInfo("  %4d  %10.3f %10.3f\n", p.ID, p.X, p.Y)
		}
	}
	printInfo("%d matched\n", len(s.Snapshot().Matched))
	return nil
}

// runPointsAdd places a correspondence. The matched points file holds only
// points present on both images, so a one-sided add would not survive the
// run.
func runPointsAdd(s *app.Session, _ controlpoints.Role, args []string) error {
	xs, ys, err := parseXY(args[0], args[1])
	if err != nil {
		return err
	}
	xt, yt, err := parseXY(args[2], args[3])
	if err != nil {
		return err
	}
	src := geometry.Point2D{X: xs, Y: ys}
	dst := geometry.Point2D{X: xt, Y: yt}
	id, _, err := s.AddPair(src, dst)
	if err != nil {
		return err
	}
	printVerbose("Added point %d at (%g, %g) -> (%g, %g)\n", id, src.X, src.Y, dst.X, dst.Y)
	return printEdit(s, id)
}

func runPointsMove(s *app.Session, role controlpoints.Role, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	x, y, err := parseXY(args[1], args[2])
	if err != nil {
		return err
	}
	if _, err := s.MovePoint(role, id, x, y); err != nil {
		return err
	}
	return printEdit(s, id)
}

func runPointsDelete(s *app.Session, role controlpoints.Role, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if _, err := s.DeletePoint(role, id); err != nil {
		return err
	}
	return printEdit(s, id)
}

func printEdit(s *app.Session, id int) error {
	r := report(s, [2]*viewer.Probe{})
	r.Saved = true
	if jsonOut {
		return printJSON(map[string]interface{}{"id": id, "pair": r})
	}
	printReport(r)
	return nil
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid point id %q", arg)
	}
	return id, nil
}

func parseXY(xs, ys string) (float64, float64, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x coordinate %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y coordinate %q", ys)
	}
	return x, y, nil
}
