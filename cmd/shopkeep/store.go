// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shopkeep-dev/shopkeep/internal/knowledge"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

func addServerFlag(cmd *cobra.Command) {
	cmd.Flags().String("server", "", "shopkeep server address (default networking.listen)")
}

func clientFor(cmd *cobra.Command) *apiClient {
	addr, _ := cmd.Flags().GetString("server")
	if addr == "" {
		addr = viper.GetString("networking.listen")
	}
	return newAPIClient(addr)
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <store-id> [description]",
		Short: "Register a store description with a running server",
		Long:  "Register a store description. The description is read from --file, the second argument, or stdin, in that order. Any previous registration for the store is replaced.",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runRegister,
	}
	addServerFlag(cmd)
	cmd.Flags().StringP("file", "f", "", "read the description from a file")
	return cmd
}

func runRegister(cmd *cobra.Command, args []string) error {
	description, err := readDescription(cmd, args)
	if err != nil {
		return err
	}

	var reg knowledge.Registration
	req := map[string]string{"store_id": args[0], "description": description}
	if err := clientFor(cmd).do(commandContext(cmd), http.MethodPost, "/store/register", req, &reg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, reg.Message)
	for i, s := range reg.Sentences {
		_, _ = fmt.Fprintf(out, "%3d  %s\n", i, s)
	}
	return nil
}

func readDescription(cmd *cobra.Command, args []string) (string, error) {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", shoperr.Errorf(shoperr.CodeCLIInputInvalid, "reading description: %w", err)
		}
		return string(data), nil
	}
	if len(args) > 1 {
		return args[1], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", shoperr.Errorf(shoperr.CodeCLIInputInvalid, "reading description from stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", shoperr.New(shoperr.CodeCLIInputInvalid, "description is empty")
	}
	return string(data), nil
}

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <store-id> <question>",
		Short: "Ask a running server a question about a store",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runAsk,
	}
	addServerFlag(cmd)
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	var ans knowledge.Answer
	req := map[string]string{"store_id": args[0], "question": strings.Join(args[1:], " ")}
	if err := clientFor(cmd).do(commandContext(cmd), http.MethodPost, "/store/question", req, &ans); err != nil {
		return err
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), ans.Answer)
	return err
}

func newForgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forget <store-id>",
		Short: "Delete everything indexed for a store",
		Args:  cobra.ExactArgs(1),
		RunE:  runForget,
	}
	addServerFlag(cmd)
	return cmd
}

func runForget(cmd *cobra.Command, args []string) error {
	var resp struct {
		StoreID string `json:"store_id"`
		Deleted int    `json:"deleted"`
	}
	path := "/store/" + url.PathEscape(args[0])
	if err := clientFor(cmd).do(commandContext(cmd), http.MethodDelete, path, nil, &resp); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d sentences for %s\n", resp.Deleted, resp.StoreID)
	return err
}
