package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/viewsearch"
	"github.com/hugr-lab/viewsearch/catalog"
	"github.com/hugr-lab/viewsearch/expr"
	"github.com/hugr-lab/viewsearch/search"
	"github.com/hugr-lab/viewsearch/value"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index documents and save the index to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, view, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := loadDocuments(ctx, cmd, engine, view); err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("out")
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			w, err := engine.Writer(ctx, view)
			if err != nil {
				f.Close()
				return err
			}
			if err := w.Save(f); err != nil {
				f.Close()
				return fmt.Errorf("save index: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents into %s\n", w.Reader().Len(), out)
			return nil
		},
	}
	addDocumentFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "index file to write")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a predicate against indexed documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, view, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := loadDocuments(ctx, cmd, engine, view); err != nil {
				return err
			}
			q, err := queryFromCmd(cmd, view)
			if err != nil {
				return err
			}
			if q.Sort, err = sortFromCmd(cmd); err != nil {
				return err
			}
			q.Offset, _ = cmd.Flags().GetInt("offset")
			q.Limit, _ = cmd.Flags().GetInt("limit")

			res, err := engine.Search(ctx, q)
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "json":
				return printJSON(cmd, res)
			case "arrow":
				columns, err := columnsFromCmd(cmd)
				if err != nil {
					return err
				}
				return res.WriteIPC(cmd.OutOrStdout(), nil, columns...)
			default:
				return fmt.Errorf("unknown output format %q", format)
			}
		},
	}
	addDocumentFlags(cmd)
	addFilterFlags(cmd)
	cmd.Flags().StringSlice("sort", nil, "sort by field, optionally suffixed with :desc (repeatable)")
	cmd.Flags().Bool("score", false, "sort by term frequency, highest first, before --sort keys")
	cmd.Flags().Int("offset", 0, "skip the first hits")
	cmd.Flags().Int("limit", 0, "maximum number of hits (0: unlimited)")
	cmd.Flags().StringP("format", "f", "json", "output format: json or arrow")
	cmd.Flags().StringSlice("column", nil, "extra arrow column: field, or field:geo-analyzer for geometry (repeatable)")
	return cmd
}

func newExplainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the filter a predicate compiles to",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, view, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			q, err := queryFromCmd(cmd, view)
			if err != nil {
				return err
			}
			s, err := engine.Explain(cmd.Context(), q)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func addDocumentFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("docs", nil, "JSON document files: one array or a stream of objects (repeatable)")
	cmd.Flags().String("index", "", "index file written by the index command")
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("filter", "", "JSON expression tree, or @file to read it from a file")
	cmd.Flags().String("var", "d", "variable name the filter uses for view documents")
}

func openEngine(cmd *cobra.Command) (*viewsearch.Engine, string, error) {
	logger, err := loggerFromCmd(cmd)
	if err != nil {
		return nil, "", err
	}

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return nil, "", fmt.Errorf("--config is required")
	}
	cfg, err := catalog.LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	analyzers, views, err := cfg.Build()
	if err != nil {
		return nil, "", err
	}

	view, _ := cmd.Flags().GetString("view")
	if view == "" {
		if len(cfg.Views) != 1 {
			return nil, "", fmt.Errorf("--view is required when the configuration defines %d views", len(cfg.Views))
		}
		view = cfg.Views[0].Name
	}

	strict, _ := cmd.Flags().GetBool("strict")
	engine, err := viewsearch.New(viewsearch.Config{
		Catalog:   views,
		Analyzers: analyzers,
		Strict:    strict,
		Logger:    logger,
	})
	if err != nil {
		return nil, "", err
	}
	return engine, view, nil
}

func loadDocuments(ctx context.Context, cmd *cobra.Command, engine *viewsearch.Engine, view string) error {
	if path, _ := cmd.Flags().GetString("index"); path != "" {
		w, err := engine.Writer(ctx, view)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := w.Load(f); err != nil {
			return fmt.Errorf("load index %s: %w", path, err)
		}
	}

	files, _ := cmd.Flags().GetStringSlice("docs")
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		docs, err := value.DecodeStream(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read documents %s: %w", path, err)
		}
		if _, err := engine.Index(ctx, view, docs...); err != nil {
			return err
		}
	}
	return nil
}

func queryFromCmd(cmd *cobra.Command, view string) (viewsearch.Query, error) {
	name, _ := cmd.Flags().GetString("var")
	scope := expr.NewScope(name)
	q := viewsearch.Query{View: view, Variable: scope.Lookup(name)}

	src, _ := cmd.Flags().GetString("filter")
	if src == "" {
		return q, nil
	}
	data := []byte(src)
	if path, ok := strings.CutPrefix(src, "@"); ok {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return q, err
		}
	}
	n, err := expr.Parse(data, scope)
	if err != nil {
		return q, err
	}
	q.Filter = n
	return q, nil
}

func sortFromCmd(cmd *cobra.Command) ([]search.SortKey, error) {
	var keys []search.SortKey
	if score, _ := cmd.Flags().GetBool("score"); score {
		keys = append(keys, search.SortKey{Scorer: search.TermFrequency{}, Desc: true})
	}
	fields, _ := cmd.Flags().GetStringSlice("sort")
	for _, s := range fields {
		field, dir, _ := strings.Cut(s, ":")
		if field == "" {
			return nil, fmt.Errorf("invalid sort key %q", s)
		}
		switch dir {
		case "", "asc":
			keys = append(keys, search.SortKey{Field: field})
		case "desc":
			keys = append(keys, search.SortKey{Field: field, Desc: true})
		default:
			return nil, fmt.Errorf("invalid sort direction %q", dir)
		}
	}
	return keys, nil
}

func columnsFromCmd(cmd *cobra.Command) ([]search.Column, error) {
	specs, _ := cmd.Flags().GetStringSlice("column")
	columns := make([]search.Column, 0, len(specs))
	for _, s := range specs {
		field, shape, _ := strings.Cut(s, ":")
		if field == "" {
			return nil, fmt.Errorf("invalid column %q", s)
		}
		columns = append(columns, search.Column{Field: field, Shape: shape})
	}
	return columns, nil
}

type jsonHit struct {
	Key      string             `json:"_key"`
	Scores   map[string]float64 `json:"scores,omitempty"`
	Document value.Value        `json:"document"`
}

func printJSON(cmd *cobra.Command, res *search.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, h := range res.Hits {
		out := jsonHit{Key: h.Doc.Key(), Document: h.Doc.Body()}
		if len(h.Scores) > 0 {
			out.Scores = make(map[string]float64, len(h.Scores))
			for i, s := range h.Scores {
				out.Scores[res.Scorers[i]] = s
			}
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}
