package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hupe1980/diskstore/criteria"
)

func newCollectionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "collections <identity>",
		Short: "List collections and their record counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer ds.Close()

			for _, name := range ds.Collections() {
				n, err := ds.Count(cmd.Context(), name, criteria.Criteria{})
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s\t%d\n", name, n)
			}
			return nil
		},
	}
}

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <identity> <collection>",
		Short: "Print the schema and counters of a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer ds.Close()

			sc, err := ds.Describe(args[1])
			if err != nil {
				return err
			}
			counters, err := ds.Counters(args[1])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(map[string]any{
				"schema":   sc,
				"counters": counters,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(out))
			return nil
		},
	}
}

// queryFlags holds the criteria flags shared by find and count.
type queryFlags struct {
	where  string
	sort   []string
	limit  int
	skip   int
	fields []string
}

func (f *queryFlags) bind(cmd *cobra.Command, paginated bool) {
	cmd.Flags().StringVar(&f.where, "where", "", `Where clause as JSON, e.g. '{"age":{">":18}}'`)
	if !paginated {
		return
	}
	cmd.Flags().StringSliceVar(&f.sort, "sort", nil, `Sort keys, e.g. "age desc"`)
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum number of records")
	cmd.Flags().IntVar(&f.skip, "skip", 0, "Number of records to skip")
	cmd.Flags().StringSliceVar(&f.fields, "select", nil, "Attributes to return")
}

func (f *queryFlags) criteria() (criteria.Criteria, error) {
	raw := map[string]any{}
	if f.where != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(f.where)))
		dec.UseNumber()
		var where map[string]any
		if err := dec.Decode(&where); err != nil {
			return criteria.Criteria{}, fmt.Errorf("invalid --where: %w", err)
		}
		raw["where"] = where
	}
	if len(f.sort) > 0 {
		raw["sort"] = f.sort
	}
	if f.limit > 0 {
		raw["limit"] = f.limit
	}
	if f.skip > 0 {
		raw["skip"] = f.skip
	}
	if len(f.fields) > 0 {
		fields := make([]string, len(f.fields))
		for i, s := range f.fields {
			fields[i] = strings.TrimSpace(s)
		}
		raw["select"] = fields
	}
	return criteria.Parse(raw)
}

func newFindCmd(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "find <identity> <collection>",
		Short: "Print matching records as JSON lines",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := q.criteria()
			if err != nil {
				return err
			}
			ds, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer ds.Close()

			records, err := ds.Find(cmd.Context(), args[1], c)
			if err != nil {
				return err
			}
			a.logger.Debug("find completed", zap.String("collection", args[1]), zap.Int("results", len(records)))
			return a.writeRecords(records)
		},
	}
	q.bind(cmd, true)
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "count <identity> <collection>",
		Short: "Count matching records",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := q.criteria()
			if err != nil {
				return err
			}
			ds, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer ds.Close()

			n, err := ds.Count(cmd.Context(), args[1], c)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, n)
			return nil
		},
	}
	q.bind(cmd, false)
	return cmd
}
