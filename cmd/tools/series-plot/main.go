// Command series-plot renders a sensor's readings from a daemon database to a
// PNG, optionally rolled up into fixed buckets first.
//
// Usage:
//
//	go run ./cmd/tools/series-plot -db sensor.db -sensor kitchen-temp \
//	    -start 2026-08-01T00:00:00Z -end 2026-08-02T00:00:00Z -period 1h -out kitchen.png
//
// Flags:
//
//	-db      Path to the SQLite database (default: sensor.db)
//	-sensor  Sensor key to plot (required)
//	-start   Range start, RFC3339 or unix seconds (required)
//	-end     Range end, RFC3339 or unix seconds (required)
//	-period  Optional rollup period, e.g. 1h, 15m, 1d
//	-fold    Rollup aggregation (default: mean)
//	-out     Output PNG path (default: <sensor>.png)
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/harrier-data/sensor.report/internal/db"
	"github.com/harrier-data/sensor.report/internal/pipeline"
)

func main() {
	dbPath := flag.String("db", "sensor.db", "Path to SQLite database")
	sensorKey := flag.String("sensor", "", "Sensor key to plot (required)")
	startArg := flag.String("start", "", "Range start, RFC3339 or unix seconds (required)")
	endArg := flag.String("end", "", "Range end, RFC3339 or unix seconds (required)")
	period := flag.String("period", "", "Optional rollup period, e.g. 1h")
	fold := flag.String("fold", string(pipeline.Mean), "Rollup aggregation")
	out := flag.String("out", "", "Output PNG path")
	flag.Parse()

	if *sensorKey == "" {
		log.Fatal("Error: -sensor flag is required")
	}
	start, err := parseTimeArg(*startArg)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}
	end, err := parseTimeArg(*endArg)
	if err != nil {
		log.Fatalf("invalid -end: %v", err)
	}
	if !end.After(start) {
		log.Fatal("Error: -end must be after -start")
	}
	outPath := *out
	if outPath == "" {
		outPath = *sensorKey + ".png"
	}

	if err := render(*dbPath, *sensorKey, start, end, *period, pipeline.Fold(*fold), outPath); err != nil {
		log.Fatal(err)
	}
}

func parseTimeArg(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("value is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	unix, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("not RFC3339 or unix seconds: %q", s)
	}
	return time.Unix(0, int64(unix*float64(time.Second))).UTC(), nil
}

func render(dbPath, sensorKey string, start, end time.Time, period string, fold pipeline.Fold, outPath string) error {
	database, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	sensor, err := database.GetSensorByKey(sensorKey)
	if err != nil {
		return fmt.Errorf("failed to find sensor %q: %w", sensorKey, err)
	}

	series, err := database.SelectSeries(sensor.ID, start, end)
	if err != nil {
		return fmt.Errorf("failed to load readings: %w", err)
	}
	if len(series) == 0 {
		return fmt.Errorf("no readings for %q in the given range", sensorKey)
	}

	p := pipeline.Start()
	title := fmt.Sprintf("%s (%d readings)", sensorKey, len(series))
	if period != "" {
		d, err := pipeline.ParsePeriod(period)
		if err != nil {
			return fmt.Errorf("invalid period: %w", err)
		}
		if !fold.IsValid() {
			return fmt.Errorf("invalid fold %q", fold)
		}
		p = p.Rollup(d, fold)
		title = fmt.Sprintf("%s (%s %s)", sensorKey, fold, period)
	}

	result, err := p.Execute(series)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	plotted := result[pipeline.DefaultOutput]

	pts := make(plotter.XYs, 0, len(plotted))
	for _, pt := range plotted {
		pts = append(pts, plotter.XY{X: float64(pt.Ts.Unix()), Y: pt.Value})
	}

	chart := plot.New()
	chart.Title.Text = title
	chart.X.Label.Text = "time"
	chart.X.Tick.Marker = plot.TimeTicks{Format: "01-02 15:04"}
	chart.Y.Label.Text = sensor.Unit

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build line: %w", err)
	}
	line.Width = vg.Points(1)
	chart.Add(line)
	chart.Add(plotter.NewGrid())

	if err := chart.Save(14*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	log.Printf("wrote %s (%d points)", outPath, len(pts))
	return nil
}
