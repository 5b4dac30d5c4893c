package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gensynth/gensynth/internal/config"
	"github.com/gensynth/gensynth/internal/introspect"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

var (
	introspectOut          string
	introspectDatabaseName string
	introspectIncludeViews bool
	introspectIncludeMat   bool
	introspectIncludeIdx   bool
	introspectIncludeCmt   bool
	introspectSchemas      []string
)

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Read a live Postgres catalog and write a canonical schema.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		dbURL, err := cfg.DatabaseURL()
		if err != nil {
			return err
		}

		opts := introspect.Options{
			IncludeViews:             introspectIncludeViews,
			IncludeMaterializedViews: introspectIncludeMat,
			IncludeIndexes:           introspectIncludeIdx,
			IncludeComments:          introspectIncludeCmt,
			Schemas:                  introspectSchemas,
		}

		db, err := introspect.RunPostgres(context.Background(), dbURL, introspectDatabaseName, opts)
		if err != nil {
			return err
		}

		fp, err := schemamodel.Fingerprint(db)
		if err != nil {
			return fmt.Errorf("introspect: computing fingerprint: %w", err)
		}
		db.SchemaFingerprint = fp

		b, err := json.MarshalIndent(db, "", "  ")
		if err != nil {
			return fmt.Errorf("introspect: marshaling schema: %w", err)
		}
		if err := os.WriteFile(introspectOut, b, 0o644); err != nil {
			return fmt.Errorf("introspect: writing %s: %w", introspectOut, err)
		}

		color.New(color.FgGreen, color.Bold).Printf("wrote %s ", introspectOut)
		fmt.Printf("(%d schema(s), fingerprint %s)\n", len(db.Schemas), fp)
		return nil
	},
}

func init() {
	introspectCmd.Flags().StringVar(&introspectOut, "out", "schema.json", "output path for the schema document")
	introspectCmd.Flags().StringVar(&introspectDatabaseName, "database", "", "database name recorded in the schema document")
	introspectCmd.Flags().BoolVar(&introspectIncludeViews, "include-views", false, "capture views")
	introspectCmd.Flags().BoolVar(&introspectIncludeMat, "include-materialized-views", false, "capture materialized views")
	introspectCmd.Flags().BoolVar(&introspectIncludeIdx, "include-indexes", true, "capture index definitions")
	introspectCmd.Flags().BoolVar(&introspectIncludeCmt, "include-comments", true, "capture table/column comments")
	introspectCmd.Flags().StringSliceVar(&introspectSchemas, "schema", nil, "restrict introspection to these schemas (repeatable)")
	rootCmd.AddCommand(introspectCmd)
}
