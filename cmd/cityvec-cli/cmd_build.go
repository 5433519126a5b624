package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/cityvec/internal/config"
	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/usecase/session"
)

type buildEnv struct {
	root     *rootEnv
	force    bool
	reingest bool
}

// getBuildCmd returns the definition of the build command.
func getBuildCmd(root *rootEnv) *cobra.Command {
	env := &buildEnv{root: root}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Create the source, catalog and embedding tables if absent.",
		Long: `
Reads the GeoNames files, joins the catalog for the configured countries and encodes it with
the configured model. Tables already present in the store are loaded instead of rebuilt unless
--force or --reingest is given.`,
		Args: cobra.NoArgs,
		RunE: env.run,
	}
	cmd.Flags().BoolVar(&env.force, "force", false, "Rebuild the catalog and embedding tables")
	cmd.Flags().BoolVar(&env.reingest, "reingest", false, "Also re-read the GeoNames files (implies --force)")
	return cmd
}

func (b *buildEnv) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	return b.root.withSession(ctx, func(_ *config.Config, sess *session.Session) error {
		if needsRebuild(b.force, b.reingest, sess.Stats()) {
			if err := sess.Rebuild(ctx, b.reingest); err != nil {
				return err //nolint:wrapcheck // carries the op
			}
		}
		printStats(cmd.OutOrStdout(), sess.Stats())
		return nil
	})
}

// needsRebuild reports whether a forced build still has work to do after the session
// opened. Opening a cold store already builds the catalog and embeddings from fresh sources.
func needsRebuild(force, reingest bool, st session.Stats) bool {
	if !force && !reingest {
		return false
	}
	return !slices.Contains(st.Built, domain.TableSelectedCities) || !slices.Contains(st.Built, st.EmbeddingTable)
}

func printStats(w io.Writer, st session.Stats) {
	built := "none"
	if len(st.Built) > 0 {
		built = fmt.Sprint(st.Built)
	}
	_, _ = fmt.Fprintf(w, "model:      %s\ntable:      %s\ncities:     %d\ndimensions: %d\nbuilt:      %s\n",
		st.ModelID, st.EmbeddingTable, st.CatalogRows, st.Dimensions, built)
}
