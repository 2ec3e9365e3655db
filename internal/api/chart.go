package api

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/harrier-data/sensor.report/internal/pipeline"
	"github.com/harrier-data/sensor.report/internal/selector"
)

// renderChart renders a read query as an HTML line chart. This is a
// debugging/report endpoint driven by query params rather than a JSON body:
//
//	/api/chart?keys=a,b&start=...&end=...&period=1h&fold=mean&units=...
//
// Omitting keys charts every sensor; omitting period/fold charts raw points.
func (s *Server) renderChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	req, herr := chartRequest(r)
	if herr != nil {
		s.writeJSONError(w, herr.status, herr.msg)
		return
	}

	series, herr := s.runRead(req)
	if herr != nil {
		s.writeJSONError(w, herr.status, herr.msg)
		return
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Sensor Series", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Sensor Series",
			Subtitle: fmt.Sprintf("%s to %s", req.Start.Format("2006-01-02 15:04"), req.End.Format("2006-01-02 15:04")),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time"}),
	)

	for _, name := range names {
		data := make([]opts.LineData, 0, len(series[name]))
		for _, pt := range series[name] {
			data = append(data, opts.LineData{Value: []interface{}{pt.Ts.In(s.location), pt.Value}})
		}
		line.AddSeries(name, data)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// chartRequest translates chart query params into a read request.
func chartRequest(r *http.Request) (readRequest, *httpError) {
	q := r.URL.Query()
	var req readRequest

	if keys := q.Get("keys"); keys != "" {
		req.Sensors = selector.ByKeys(splitCSV(keys)...)
	} else {
		req.Sensors = selector.AllSensors()
	}

	for name, target := range map[string]*apiTime{"start": &req.Start, "end": &req.End} {
		t, herr := queryTime(q, name)
		if herr != nil {
			return req, herr
		}
		*target = t
	}

	if periodStr := q.Get("period"); periodStr != "" {
		period, err := pipeline.ParsePeriod(periodStr)
		if err != nil {
			return req, badRequest("Invalid 'period' parameter: %v", err)
		}
		fold := pipeline.Fold(q.Get("fold"))
		if fold == "" {
			fold = pipeline.Mean
		}
		req.Pipeline = pipeline.Start().Rollup(period, fold)
	}

	req.Units = q.Get("units")
	return req, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
