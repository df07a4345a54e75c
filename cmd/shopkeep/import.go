// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/shopkeep-dev/shopkeep/internal/knowledge"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <glob>...",
		Short: "Register every matching description file with a running server",
		Long: `Register store descriptions in bulk. Each file matching a glob (** is
supported) becomes one store whose id is the file name without its
extension, e.g. stores/cafe-1.txt registers store "cafe-1".`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}
	addServerFlag(cmd)
	cmd.Flags().Bool("dry-run", false, "list the store ids and files without registering")
	return cmd
}

type importJob struct {
	storeID string
	path    string
}

func runImport(cmd *cobra.Command, args []string) error {
	jobs, err := collectImportJobs(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(jobs) == 0 {
		_, _ = fmt.Fprintln(out, "No files matched.")
		return nil
	}

	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		for _, j := range jobs {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", j.storeID, j.path)
		}
		return nil
	}

	client := clientFor(cmd)
	ctx := commandContext(cmd)
	errOut := cmd.ErrOrStderr()
	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetWriter(errOut),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Registering"),
		progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(errOut) }),
	)

	var failed []string
	sentences := 0
	for _, j := range jobs {
		bar.Describe(j.storeID)
		n, err := importOne(ctx, client, j)
		_ = bar.Add(1)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", j.storeID, err))
			continue
		}
		sentences += n
	}

	_, _ = fmt.Fprintf(out, "Registered %d of %d stores (%d sentences)\n", len(jobs)-len(failed), len(jobs), sentences)
	if len(failed) > 0 {
		return shoperr.Errorf(shoperr.CodeCLIRequestFailure, "%d stores failed:\n  %s", len(failed), strings.Join(failed, "\n  "))
	}
	return nil
}

func importOne(ctx context.Context, client *apiClient, j importJob) (int, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return 0, shoperr.Errorf(shoperr.CodeCLIInputInvalid, "reading %s: %w", j.path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return 0, shoperr.Errorf(shoperr.CodeCLIInputInvalid, "%s is empty", j.path)
	}

	var reg knowledge.Registration
	req := map[string]string{"store_id": j.storeID, "description": string(data)}
	if err := client.do(ctx, http.MethodPost, "/store/register", req, &reg); err != nil {
		return 0, err
	}
	return len(reg.Sentences), nil
}

// collectImportJobs expands the globs and derives one store per file.
// Duplicate store ids are rejected before anything is sent.
func collectImportJobs(patterns []string) ([]importJob, error) {
	seen := map[string]string{}
	var jobs []importJob
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, shoperr.Errorf(shoperr.CodeCLIInputInvalid, "invalid glob %q: %w", pattern, err)
		}
		for _, path := range matches {
			if _, dup := seen[path]; dup {
				continue
			}
			id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if id == "" {
				return nil, shoperr.Errorf(shoperr.CodeCLIInputInvalid, "cannot derive a store id from %s", path)
			}
			for other, otherID := range seen {
				if otherID == id {
					return nil, shoperr.Errorf(shoperr.CodeCLIInputInvalid, "store id %q comes from both %s and %s", id, other, path)
				}
			}
			seen[path] = id
			jobs = append(jobs, importJob{storeID: id, path: path})
		}
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].storeID < jobs[b].storeID })
	return jobs, nil
}
