package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/cityvec/internal/config"
	"github.com/kailas-cloud/cityvec/internal/domain/search/result"
	"github.com/kailas-cloud/cityvec/internal/usecase/session"
)

type queryEnv struct {
	root   *rootEnv
	topK   int
	format string
}

// getQueryCmd returns the definition of the query command.
func getQueryCmd(root *rootEnv) *cobra.Command {
	env := &queryEnv{root: root}
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Print the cities closest to the given name.",
		Long: `
Encodes the text with the configured model and ranks the catalog by cosine similarity.
Words after the command are joined with spaces, so quoting is optional.`,
		Args: cobra.MinimumNArgs(1),
		RunE: env.run,
	}
	cmd.Flags().IntVarP(&env.topK, "top-k", "k", 0, "Number of matches, defaults to http.default_top_k")
	cmd.Flags().StringVarP(&env.format, "format", "f", string(result.Tabular), "Output format: records or table")
	return cmd
}

func (q *queryEnv) run(cmd *cobra.Command, args []string) error {
	format, err := result.ParseFormat(q.format)
	if err != nil {
		return err //nolint:wrapcheck // user-facing
	}
	text := strings.Join(args, " ")

	ctx := cmd.Context()
	return q.root.withSession(ctx, func(cfg *config.Config, sess *session.Session) error {
		k := q.topK
		if k == 0 {
			k = cfg.HTTP.DefaultTopK
		}
		out, err := sess.Query(ctx, text, k, format)
		if err != nil {
			return err //nolint:wrapcheck // carries the op
		}
		return writeOutput(cmd.OutOrStdout(), out)
	})
}

// writeOutput prints records as JSON lines and tables as an ASCII grid.
func writeOutput(w io.Writer, out session.Output) error {
	if out.Table == nil {
		enc := json.NewEncoder(w)
		for _, rec := range out.Records {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
		return nil
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(out.Table.Columns)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	for _, row := range out.Table.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		tw.Append(cells)
	}
	tw.Render()
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', 4, 64)
	default:
		return fmt.Sprint(x)
	}
}
