// Package report renders forecast results for the command line.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"bi-dashboard/internal/forecast"
)

type Format string

const (
	TableOut Format = "table"
	JSONOut  Format = "json"
	CSVOut   Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case TableOut, JSONOut, CSVOut:
		return f, nil
	case "":
		return TableOut, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or csv)", s)
	}
}

// Options control what is written. History rows are only included when
// IncludeHistory is set.
type Options struct {
	Format         Format
	IncludeHistory bool
	Precision      int
}

const (
	kindHistory  = "history"
	kindForecast = "forecast"
)

var (
	forecastColor    = color.New(color.FgGreen, color.Bold)
	unavailableColor = color.New(color.FgYellow, color.Bold)
)

type row struct {
	month string
	kind  string
	value float64
}

func rows(res *forecast.Result, opts Options) []row {
	var out []row
	if opts.IncludeHistory {
		for _, h := range res.History {
			out = append(out, row{month: h.Month.Format("2006-01-02"), kind: kindHistory, value: h.Revenue})
		}
	}
	for _, p := range res.Forecast {
		out = append(out, row{month: p.Month.Format("2006-01-02"), kind: kindForecast, value: p.Forecast})
	}
	return out
}

// WriteForecast writes res to w in the requested format.
func WriteForecast(w io.Writer, res *forecast.Result, opts Options) error {
	switch opts.Format {
	case JSONOut:
		out := struct {
			Available bool `json:"available"`
			*forecast.Result
		}{Available: true, Result: res}
		if !opts.IncludeHistory {
			trimmed := *res
			trimmed.History = nil
			out.Result = &trimmed
		}
		return writeJSON(w, out)
	case CSVOut:
		return writeCSV(w, rows(res, opts), opts.Precision)
	default:
		return writeTable(w, res, rows(res, opts), opts.Precision)
	}
}

// WriteUnavailable reports a forecast that could not be produced.
func WriteUnavailable(w io.Writer, ue *forecast.UnavailableError, opts Options) error {
	switch opts.Format {
	case JSONOut:
		return writeJSON(w, map[string]any{
			"available": false,
			"reason":    ue.Reason,
			"message":   ue.Message(),
		})
	case CSVOut:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"available", "reason", "message"}); err != nil {
			return err
		}
		if err := cw.Write([]string{"false", string(ue.Reason), ue.Message()}); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	default:
		_, err := fmt.Fprintf(w, "%s %s (%s)\n", unavailableColor.Sprint("Forecast unavailable:"), ue.Message(), ue.Reason)
		return err
	}
}

func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, rs []row, precision int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"month", "kind", "revenue"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rs {
		if err := cw.Write([]string{r.month, r.kind, strconv.FormatFloat(r.value, 'f', precision, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeTable(w io.Writer, res *forecast.Result, rs []row, precision int) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Month", "Kind", "Revenue"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(rs))
	for _, r := range rs {
		kind := r.kind
		if kind == kindForecast {
			kind = forecastColor.Sprint(kind)
		}
		data = append(data, []string{r.month, kind, strconv.FormatFloat(r.value, 'f', precision, 64)})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "alpha=%.4f beta=%.4f gamma=%.4f sse=%.2f months=%d\n",
		res.Params.Alpha, res.Params.Beta, res.Params.Gamma, res.SSE, len(res.History))
	return err
}
