package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-kernel/model"
)

const (
	formatJSON = "json"
	formatText = "text"
)

func render(w io.Writer, format string, rep *report) error {
	switch format {
	case formatText:
		return renderText(w, rep)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
}

func renderText(w io.Writer, rep *report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	res := rep.Result

	fmt.Fprintf(tw, "scene\t%s\n", rep.Scene)
	fmt.Fprintf(tw, "ellipsoid\t%s\n", vec(res.Ellipsoid.Radii))
	fmt.Fprintln(tw)

	for _, c := range res.Curves {
		fmt.Fprintf(tw, "curve %s\t%d points\tgranularity %.4f°\n", c.ID, len(c.Points), mgl64.RadToDeg(c.Granularity))
		fmt.Fprintln(tw, "  #\tlon°\tlat°\tx\ty\tz")
		for i, p := range c.Points {
			lon, lat := c.Geodetic[i].Degrees()
			fmt.Fprintf(tw, "  %d\t%.6f\t%.6f\t%.9g\t%.9g\t%.9g\n", i, lon, lat, p[0], p[1], p[2])
		}
		fmt.Fprintln(tw)
	}

	if len(res.Normals) > 0 {
		fmt.Fprintln(tw, "normal\tlon°\tlat°\tgeodetic\tgeocentric\tdivergence°")
		for _, n := range res.Normals {
			lon, lat := n.At.Degrees()
			fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%s\t%s\t%.6f\n", n.ID, lon, lat, vec(n.GeodeticNormal), vec(n.CentricNormal), n.DivergenceDeg)
		}
		fmt.Fprintln(tw)
	}

	if len(res.Satellites) > 0 {
		fmt.Fprintf(tw, "satellite\tlon°\tlat°\theight m\t(at %s)\n", rep.At.Format(time.RFC3339))
		for _, s := range res.Satellites {
			writeSubPoint(tw, s.ID, s.SubPoint)
		}
		fmt.Fprintln(tw)
	}

	for _, t := range rep.Tracks {
		fmt.Fprintf(tw, "track %s\t%d points\tstep %s\n", t.ID, len(t.Points), t.Step)
		for i, g := range t.Points {
			writeSubPoint(tw, fmt.Sprintf("  %d", i), g)
		}
		fmt.Fprintln(tw)
	}

	return tw.Flush()
}

func writeSubPoint(w io.Writer, label string, g model.Geodetic3D) {
	lon, lat := g.Degrees()
	fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.1f\n", label, lon, lat, g.Height)
}

func vec(v mgl64.Vec3) string {
	return fmt.Sprintf("(%.6g, %.6g, %.6g)", v[0], v[1], v[2])
}
