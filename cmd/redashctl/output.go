package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// column renders one table column of T.
type column[T any] struct {
	title string
	value func(T) string
}

// listing is what list commands print in json and yaml formats.
type listing[T any] struct {
	Count int            `json:"count"`
	Page  int            `json:"page"`
	Items []T            `json:"items"`
	Meta  map[string]any `json:"meta,omitempty"`
}

type printer struct {
	out    io.Writer
	format string
}

// printList renders list as a table.
func printList[T any](p printer, list listing[T], columns []column[T]) error {
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	titles := make([]string, len(columns))
	for i, col := range columns {
		titles[i] = strings.ToUpper(col.title)
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))
	for _, item := range list.Items {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = col.value(item)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "page %d, %d total\n", list.Page, list.Count)
	return nil
}

// printValue prints a single resource.
func (p printer) printValue(v any, summary string) error {
	if p.format == "table" || p.format == "" {
		_, err := fmt.Fprintln(p.out, summary)
		return err
	}
	return p.encode(v)
}

// encode writes v as json or yaml. YAML goes through JSON first so keys match the
// API field names.
func (p printer) encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redashctl: encode output: %w", err)
	}
	if p.format == "json" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(p.out)
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("redashctl: encode output: %w", err)
	}
	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}
