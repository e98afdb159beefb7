package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parqtable/parqtable/internal/blobstore"
	"github.com/parqtable/parqtable/internal/discovery"
)

func newDiscoverCmd() *cobra.Command {
	var delta bool
	cmd := &cobra.Command{
		Use:   "discover <root>",
		Short: "List the partitions and files a table root discovers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, args[0], delta)
		},
	}
	cmd.Flags().BoolVar(&delta, "delta", false, "discover via the Delta Lake transaction log instead of Hive directory layout")
	return cmd
}

func runDiscover(cmd *cobra.Command, root string, delta bool) error {
	ctx := context.Background()
	store, err := blobstore.NewFilesystem(root)
	if err != nil {
		return fmt.Errorf("open filesystem: %w", err)
	}

	var partitions []*discovery.Partition
	if delta {
		partitions, err = discovery.NewDelta(store, "", discovery.DefaultSnapshotTTL, nil).DiscoverPartitions(ctx)
	} else {
		partitions, err = discovery.NewHive(store, "", nil).DiscoverPartitions(ctx)
	}
	if err != nil {
		return fmt.Errorf("discover partitions: %w", err)
	}

	for _, p := range partitions {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", p.Path)
		if p.Values.Len() == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  (no partition key; id=%s)\n", p.SyntheticID)
		}
		for _, k := range p.Values.Keys() {
			v, _ := p.Values.Get(k)
			fmt.Fprintf(cmd.OutOrStdout(), "  %s=%s\n", k, v)
		}
		for _, f := range p.Files {
			fmt.Fprintf(cmd.OutOrStdout(), "  file: %s\n", f.Path)
		}
	}
	return nil
}
