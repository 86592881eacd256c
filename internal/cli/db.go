package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ldoblies/ijsoniq/internal/apply"
	"github.com/ldoblies/ijsoniq/internal/docstore"
	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/pul"
	"github.com/ldoblies/ijsoniq/internal/pulfile"
	"github.com/ldoblies/ijsoniq/internal/query"
	"github.com/ldoblies/ijsoniq/internal/store"
)

// DefaultDBPath is the database used when --db is not given.
const DefaultDBPath = "ijsoniq.db"

// AppliedSummary describes one applied or undone PUL.
type AppliedSummary struct {
	Seq         int64          `json:"seq"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Collections []string       `json:"collections"`
	Counts      map[string]int `json:"counts"`
	Created     []string       `json:"created,omitempty"`
	Inverse     any            `json:"inverse,omitempty"`
	Undone      bool           `json:"undone,omitempty"`
}

func addDBFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, "db", DefaultDBPath, "path to the SQLite database")
}

// withStore opens the database, runs fn and closes it again. Open
// failures are reported through f.
func withStore(f *OutputFormatter, path string, fn func(*store.Store) error) error {
	st, err := store.Open(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err)
	}
	defer st.Close()
	f.VerboseLog("Opened %s", path)
	return fn(st)
}

func progressObserver(f *OutputFormatter) apply.Option {
	return apply.WithObserver(func(p apply.Progress) {
		f.VerboseLog("[%d/%d] %s", p.Index, p.Total, p.Primitive)
	})
}

func summarize(res *apply.Result, seq int64) AppliedSummary {
	s := AppliedSummary{
		Seq:         seq,
		Collections: res.Applied.Collections(),
		Counts:      res.Applied.Counts(),
	}
	for _, ref := range res.Created {
		s.Created = append(s.Created, ref.String())
	}
	return s
}

// applyAndReport applies p through st and prints the summary.
func applyAndReport(ctx context.Context, f *OutputFormatter, st *store.Store, p *pul.PUL, showInverse bool) error {
	res, seq, err := st.Apply(ctx, p, progressObserver(f))
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeStore, err)
	}
	summary := summarize(res, seq)
	if showInverse {
		summary.Inverse = ir.ToAny(res.Inverse.ToValue())
	}

	if f.Format == "json" {
		return f.Success(summary)
	}
	if seq == 0 {
		fmt.Fprintf(f.Writer, "%s nothing to apply\n", Mark(true))
		return nil
	}
	fmt.Fprintf(f.Writer, "%s applied #%d: %d primitive(s) on %v\n", Mark(true), seq, res.Applied.Len(), summary.Collections)
	writeLines(f.Writer, "  created ", summary.Created)
	if showInverse {
		fmt.Fprintln(f.Writer, "inverse:")
		return pulfile.Encode(f.Writer, res.Inverse.ToValue(), pulfile.FormatJSON)
	}
	return nil
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dbPath      string
		showInverse bool
	)

	cmd := &cobra.Command{
		Use:   "apply <pul-file>",
		Short: "Apply a PUL to the database",
		Long: `Normalize a PUL and apply it to the documents in the database in one
transaction. The applied PUL and its inverse are recorded in the log so
the change can be undone.

Examples:
  ijsoniq apply update.json --db app.db
  ijsoniq apply update.yaml --show-inverse -v`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			p, err := readPUL(cmd, args[0])
			if err != nil {
				return f.Fail(inputExitCode(err), ErrCodeReadFailed, err)
			}
			return withStore(f, dbPath, func(st *store.Store) error {
				return applyAndReport(cmd.Context(), f, st, p, showInverse)
			})
		},
	}

	addDBFlag(cmd, &dbPath)
	cmd.Flags().BoolVar(&showInverse, "show-inverse", false, "print the inverse PUL")

	return cmd
}

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dbPath string
		steps  int
	)

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Undo the most recently applied PUL",
		Long: `Apply the inverse of the newest log entry that is not undone yet, and
mark that entry undone. Repeating undo walks the log backwards.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if steps < 1 {
				return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("--steps must be at least 1, got %d", steps))
			}
			return withStore(f, dbPath, func(st *store.Store) error {
				var undone []AppliedSummary
				for range steps {
					entry, err := st.Undo(cmd.Context(), progressObserver(f))
					if errors.Is(err, store.ErrNothingToUndo) {
						if len(undone) > 0 {
							break
						}
						return f.Fail(ExitFailure, ErrCodeNoHistory, err)
					}
					if err != nil {
						return f.Fail(ExitFailure, ErrCodeStore, err)
					}
					undone = append(undone, entrySummary(entry))
				}

				if f.Format == "json" {
					return f.Success(undone)
				}
				for _, s := range undone {
					fmt.Fprintf(f.Writer, "%s undid #%d on %v\n", Mark(true), s.Seq, s.Collections)
				}
				return nil
			})
		},
	}

	addDBFlag(cmd, &dbPath)
	cmd.Flags().IntVar(&steps, "steps", 1, "number of entries to undo")

	return cmd
}

func entrySummary(e store.LogEntry) AppliedSummary {
	return AppliedSummary{
		Seq:         e.Seq,
		Fingerprint: e.Fingerprint,
		Collections: e.Collections,
		Counts:      e.PUL.Counts(),
		Undone:      e.Undone,
	}
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "log",
		Short:         "List applied PULs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return withStore(f, dbPath, func(st *store.Store) error {
				entries, err := st.Entries(cmd.Context())
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeStore, err)
				}
				out := make([]AppliedSummary, len(entries))
				for i, e := range entries {
					out[i] = entrySummary(e)
				}

				if f.Format == "json" {
					return f.Success(out)
				}
				if len(out) == 0 {
					fmt.Fprintln(f.Writer, "No applied PULs.")
					return nil
				}
				for _, s := range out {
					state := "applied"
					if s.Undone {
						state = "undone"
					}
					fmt.Fprintf(f.Writer, "#%d  %-7s  %s  %v\n", s.Seq, state, shortFingerprint(s.Fingerprint), s.Collections)
				}
				return nil
			})
		},
	}

	addDBFlag(cmd, &dbPath)

	return cmd
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "load <state-file>",
		Short: "Insert documents from a state file",
		Long: `Read an object mapping collection names to lists of documents and
insert them as one logged PUL. Documents without an "id" get a
generated one. Loading a document whose id already exists fails.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			dec, err := pulfile.NewDecoder()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, err)
			}
			state, err := dec.ReadState(args[0], cmd.InOrStdin())
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeReadFailed, err)
			}

			raw := pul.New()
			for c, docs := range state {
				raw.Add(pul.NewInsert(c, docs...))
			}
			p := pul.Normalize(raw)
			if err := p.Err(); err != nil {
				return f.Fail(ExitFailure, ErrCodeReadFailed, err)
			}
			return withStore(f, dbPath, func(st *store.Store) error {
				return applyAndReport(cmd.Context(), f, st, p, false)
			})
		},
	}

	addDBFlag(cmd, &dbPath)

	return cmd
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "dump [collection...]",
		Short: "Print documents",
		Long: `Print the documents of the named collections, or of every collection,
as an object mapping collection names to documents sorted by id.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return withStore(f, dbPath, func(st *store.Store) error {
				d, err := docstore.Dump(cmd.Context(), st, args...)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeStore, err)
				}
				return writeValue(rootOpts, f, docstore.DumpValue(d))
			})
		},
	}

	addDBFlag(cmd, &dbPath)

	return cmd
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dbPath string
		where  []string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "find <collection>",
		Short: "Print the documents matching conditions",
		Long: `Print the documents of a collection that satisfy every --where
condition, in id order.

A condition is "path=value" or just "path" (the path exists). Paths are
dotted; a numeric segment also indexes arrays. Values are JSON when
they parse as JSON and strings otherwise.

Examples:
  ijsoniq find users --where name=al
  ijsoniq find users --where tags.0=admin --where active=true --limit 10
  ijsoniq find users --where 'meta={"x":1}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			q := query.Select{Collection: args[0], Limit: limit}
			if len(where) > 0 {
				and := query.And{}
				for _, w := range where {
					p, err := query.ParseCondition(w)
					if err != nil {
						return f.Fail(ExitCommandError, ErrCodeGeneric, err)
					}
					and.Predicates = append(and.Predicates, p)
				}
				q.Filter = and
			}
			if err := query.Validate(q); err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, err)
			}

			return withStore(f, dbPath, func(st *store.Store) error {
				docs, err := query.Find(cmd.Context(), st, q)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeStore, err)
				}
				f.VerboseLog("%d document(s) matched", len(docs))
				out := make(ir.Array, len(docs))
				for i, d := range docs {
					out[i] = d
				}
				return writeValue(rootOpts, f, out)
			})
		},
	}

	addDBFlag(cmd, &dbPath)
	cmd.Flags().StringArrayVar(&where, "where", nil, "condition path=value or path (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of documents (0 = all)")

	return cmd
}
