// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/AleutianAI/depslice/services/slice/scaffold"
	"github.com/spf13/cobra"
)

func newMergeCmd(c *cli) *cobra.Command {
	var (
		removeSource bool
		verbose      bool
	)
	cmd := &cobra.Command{
		Use:   "merge [source target]",
		Short: "Copy the files of one project that another project lacks",
		Long: `Merge walks the source project and copies every file the target does not
already have, creating directories as needed. Existing target files are never
changed.

Without arguments the merge.source and merge.target keys of the project
config are used.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 args, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var source, target string
			if len(args) == 2 {
				var err error
				if source, err = filepath.Abs(args[0]); err != nil {
					return fmt.Errorf("resolving source: %w", err)
				}
				if target, err = filepath.Abs(args[1]); err != nil {
					return fmt.Errorf("resolving target: %w", err)
				}
			} else {
				cfg, err := c.loadConfig()
				if err != nil {
					return err
				}
				source, target = cfg.MergePaths()
				if source == "" || target == "" {
					return errors.New("merge needs source and target arguments or merge.source and merge.target in the project config")
				}
			}

			result, err := scaffold.Merge(cmd.Context(), c.fs, source, target,
				scaffold.WithRemoveSource(removeSource),
				scaffold.WithMergeLogger(c.logger),
			)
			if err != nil {
				return err
			}
			for _, f := range result.Files {
				switch {
				case f.Action == scaffold.MergeFailed:
					fmt.Fprintf(c.out, "  failed: %s: %s\n", f.Path, f.Error)
				case verbose:
					fmt.Fprintf(c.out, "  %s: %s\n", f.Action, f.Path)
				}
			}
			fmt.Fprintf(c.out, "Merged %s into %s: %d files, %d copied, %d skipped, %d failed\n",
				source, target, result.Total, result.Copied, result.Skipped, result.Failed)
			if result.SourceRemoved {
				fmt.Fprintf(c.out, "Removed %s\n", source)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&removeSource, "remove-source", false, "delete the source project after a merge without failures")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every file")
	return cmd
}
