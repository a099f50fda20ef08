package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", f)
	}
}

// table describes how a slice of T is rendered as columns.
type table[T any] struct {
	header []string
	row    func(T) []string
}

// render writes v as JSON, YAML or, for the table format, one row per item.
func render[T any](w io.Writer, format string, items []T, t table[T]) error {
	switch format {
	case formatJSON:
		return writeJSON(w, items)
	case formatYAML:
		return writeYAML(w, items)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.header, "\t"))
	for _, it := range items {
		fmt.Fprintln(tw, strings.Join(t.row(it), "\t"))
	}
	return tw.Flush()
}

// renderOne prints a single record; the table format uses one "key: value"
// line per column.
func renderOne[T any](w io.Writer, format string, item T, t table[T]) error {
	switch format {
	case formatJSON:
		return writeJSON(w, item)
	case formatYAML:
		return writeYAML(w, item)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, v := range t.row(item) {
		fmt.Fprintf(tw, "%s:\t%s\n", t.header[i], v)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML goes through JSON so the keys match the API's field names and
// keep their order.
func writeYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	blockStyle(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// blockStyle drops the flow and quoting styles JSON input parses with.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
