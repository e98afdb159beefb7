package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parqtable/parqtable/internal/blobstore"
	"github.com/parqtable/parqtable/internal/parquetio"
)

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <file.parquet>",
		Short: "Print a Parquet file's physical schema and row-group statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, args[0])
		},
	}
}

func runDescribe(cmd *cobra.Command, path string) error {
	ctx := context.Background()
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	store, err := blobstore.NewFilesystem(dir)
	if err != nil {
		return fmt.Errorf("open filesystem: %w", err)
	}

	src, err := parquetio.NewSource(ctx, store, name)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	reader := parquetio.New()
	cols, err := reader.GetColumns(src)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "schema:\n")
	for _, c := range cols {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %-10s nullable=%v\n", c.Path, c.PhysicalType, c.Nullable)
	}

	metas, err := reader.RowGroupStats(src)
	if err != nil {
		return fmt.Errorf("read row group stats: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "row groups: %d\n", len(metas))
	for _, m := range metas {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] rows=%d bytes=%d columns=%d\n", m.Index, m.NumRows, m.TotalByteSize, len(m.ColumnStats))
	}

	return nil
}
