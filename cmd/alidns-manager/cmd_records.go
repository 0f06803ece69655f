package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/alidns-manager/internal/dns"
)

const (
	recordsTimeout = time.Minute
	maxValueWidth  = 48
)

var flagOutput string

func newCmdRecords() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and change records of the managed domain",
		RunE:  func(cmd *cobra.Command, args []string) error { return fmt.Errorf("invalid command") },
	}
	cmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "Output format (table|json)")
	cmd.AddCommand(newCmdRecordsList(), newCmdRecordsGet(), newCmdRecordsSet(), newCmdRecordsDelete())
	return cmd
}

// withProvider loads the config, builds a client and runs fn with a
// bounded context.
func withProvider(cmd *cobra.Command, fn func(ctx context.Context, p dns.Provider, domain string) error) error {
	if flagOutput != "table" && flagOutput != "json" {
		return fmt.Errorf("unknown output format %q", flagOutput)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newProvider(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), recordsTimeout)
	defer cancel()
	return fn(ctx, client, cfg.Domain)
}

func newCmdRecordsList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all records of the domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd, func(ctx context.Context, p dns.Provider, domain string) error {
				list, err := p.ListAll(ctx, domain)
				if err != nil {
					return fmt.Errorf("failed to list records: %w", err)
				}
				return writeRecords(cmd.OutOrStdout(), list, flagOutput)
			})
		},
	}
}

func newCmdRecordsGet() *cobra.Command {
	return &cobra.Command{
		Use:   "get <rr>",
		Short: "List records of one host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd, func(ctx context.Context, p dns.Provider, domain string) error {
				list, err := p.ListForHost(ctx, dns.FullName(args[0], domain), domain)
				if err != nil {
					return fmt.Errorf("failed to list records for %s: %w", args[0], err)
				}
				return writeRecords(cmd.OutOrStdout(), list, flagOutput)
			})
		},
	}
}

func newCmdRecordsSet() *cobra.Command {
	return &cobra.Command{
		Use:   "set <rr> <ip>",
		Short: "Replace the records of a host with one A record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := netip.ParseAddr(args[1])
			if err != nil || !addr.Is4() {
				return fmt.Errorf("invalid IPv4 address %q", args[1])
			}
			return withProvider(cmd, func(ctx context.Context, p dns.Provider, domain string) error {
				id, err := dns.ReplaceAddress(ctx, p, args[0], domain, addr)
				if err != nil {
					return fmt.Errorf("failed to set %s: %w", args[0], err)
				}
				return writeResult(cmd.OutOrStdout(), flagOutput, map[string]any{
					"host":      dns.FullName(args[0], domain),
					"ip":        addr.String(),
					"record_id": id,
				})
			})
		},
	}
}

func newCmdRecordsDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rr>",
		Short: "Delete every record of a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd, func(ctx context.Context, p dns.Provider, domain string) error {
				n, err := p.DeleteForHost(ctx, args[0], domain)
				if err != nil {
					return fmt.Errorf("failed to delete %s: %w", args[0], err)
				}
				return writeResult(cmd.OutOrStdout(), flagOutput, map[string]any{
					"host":    dns.FullName(args[0], domain),
					"deleted": n,
				})
			})
		},
	}
}

func writeRecords(w io.Writer, list *dns.RecordList, output string) error {
	if output == "json" {
		return writeJSON(w, list)
	}

	records := append([]dns.Record(nil), list.Records...)
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].RR != records[j].RR {
			return records[i].RR < records[j].RR
		}
		return records[i].Type < records[j].Type
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Type", "Value", "TTL", "Status"})
	table.SetAutoWrapText(false)
	for _, r := range records {
		table.Append([]string{r.ID, r.RR, string(r.Type), truncate(r.Value, maxValueWidth), strconv.FormatInt(r.TTL, 10), r.Status})
	}
	table.Render()
	if list.TotalCount > len(records) {
		fmt.Fprintf(w, "showing %d of %d records\n", len(records), list.TotalCount)
	}
	return nil
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func writeResult(w io.Writer, output string, v map[string]any) error {
	if output == "json" {
		return writeJSON(w, v)
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %v\n", k, v[k])
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
