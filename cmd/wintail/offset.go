package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/webzook/wintail/internal/position"
	"github.com/webzook/wintail/pkg/wintail"
)

var (
	// offset get flags
	offsetJSON bool
)

var offsetCmd = &cobra.Command{
	Use:   "offset",
	Short: "Inspect or change stored offsets",
	Long: `Inspect or change how far into each source wintail has read.

Examples:
  # List every stored offset
  wintail offset get

  # One source, as JSON
  wintail offset get webzook --json

  # Skip ahead or rewind
  wintail offset set webzook 1300

  # Forget a source; its next poll is a cold start
  wintail offset reset webzook`,
}

var offsetGetCmd = &cobra.Command{
	Use:               "get [source...]",
	Short:             "Show stored offsets",
	ValidArgsFunction: completeSources,
	RunE:              runOffsetGet,
}

var offsetSetCmd = &cobra.Command{
	Use:               "set SOURCE OFFSET",
	Short:             "Store an offset for a source",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeSources,
	RunE:              runOffsetSet,
}

var offsetResetCmd = &cobra.Command{
	Use:               "reset SOURCE",
	Short:             "Forget the offset of a source",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSources,
	RunE:              runOffsetReset,
}

func init() {
	offsetGetCmd.Flags().BoolVar(&offsetJSON, "json", false,
		"Output entries as a JSON array")
	offsetCmd.AddCommand(offsetGetCmd, offsetSetCmd, offsetResetCmd)
}

// runOffsetGet reads without taking the writer lock, so it works while a
// follow or serve process owns the store.
func runOffsetGet(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := position.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	var entries []position.Entry
	if len(args) == 0 {
		entries, err = store.List(ctx)
		if err != nil {
			return err
		}
	} else {
		for _, id := range args {
			offset, err := store.Get(ctx, id)
			if errors.Is(err, wintail.ErrOffsetNotFound) {
				return fmt.Errorf("no offset stored for %q", id)
			}
			if err != nil {
				return err
			}
			entries = append(entries, position.Entry{SourceID: id, Offset: offset})
		}
	}

	out := cmd.OutOrStdout()
	if offsetJSON {
		if entries == nil {
			entries = []position.Entry{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No offsets stored.")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		updated := "-"
		if !e.UpdatedAt.IsZero() {
			updated = e.UpdatedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{e.SourceID, strconv.FormatInt(e.Offset, 10), updated})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"SOURCE", "OFFSET", "UPDATED"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	))
	return nil
}

func runOffsetSet(cmd *cobra.Command, args []string) error {
	offset, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || offset < 0 {
		return fmt.Errorf("invalid offset %q: must be a non-negative integer", args[1])
	}

	a, err := openApp(commandContext(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Set(commandContext(cmd), args[0], offset); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: offset set to %d\n", args[0], offset)
	return nil
}

func runOffsetReset(cmd *cobra.Command, args []string) error {
	a, err := openApp(commandContext(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Delete(commandContext(cmd), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: offset reset, next poll starts near the end of the log\n", args[0])
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
