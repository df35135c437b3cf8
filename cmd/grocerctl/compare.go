package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/backend-grocer/internal/compare"
	"github.com/noah-isme/backend-grocer/internal/pricefeed"
	"github.com/noah-isme/backend-grocer/internal/pricing"
)

var (
	compareFile     string
	comparePriority []string
	compareJSON     bool
)

// catalogFile is the on-disk catalog. Prices are in major units, e.g. "52.50".
type catalogFile struct {
	Priority []string `yaml:"priority"`
	Items    []struct {
		ID     string            `yaml:"id"`
		Name   string            `yaml:"name"`
		Prices map[string]string `yaml:"prices"`
	} `yaml:"items"`
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare a catalog file across vendors without a database",
	Long: `Reads a YAML catalog and prints the cheapest vendor per item, the optimal
split total, every complete single-vendor total and the savings.

Example file:

  priority: [flipkart, blinkit, jiomart, amazon]
  items:
    - id: milk
      name: Milk 1L
      prices: {amazon: "58", flipkart: "52"}`,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareFile, "file", "f", "", "Catalog YAML file")
	compareCmd.Flags().StringSliceVar(&comparePriority, "priority", nil, "Vendor priority for tie-breaks, overrides the file")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "Print the result as JSON")
	_ = compareCmd.MarkFlagRequired("file")
}

func loadCatalog(r io.Reader) ([]compare.ItemQuote, []compare.VendorID, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, nil, fmt.Errorf("parse catalog: %w", err)
	}
	items := make([]compare.ItemQuote, 0, len(f.Items))
	seen := map[compare.VendorID]bool{}
	var vendors []compare.VendorID
	for _, it := range f.Items {
		q := compare.ItemQuote{ItemID: it.ID, Name: it.Name, Prices: make(map[compare.VendorID]pricing.Money, len(it.Prices))}
		for slug, raw := range it.Prices {
			price, err := pricefeed.ParsePrice(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("item %s, vendor %s: %w", it.ID, slug, err)
			}
			v := compare.VendorID(strings.ToLower(strings.TrimSpace(slug)))
			q.Prices[v] = price
			if !seen[v] {
				seen[v] = true
				vendors = append(vendors, v)
			}
		}
		items = append(items, q)
	}

	var priority []compare.VendorID
	for _, p := range f.Priority {
		priority = append(priority, compare.VendorID(strings.ToLower(strings.TrimSpace(p))))
	}
	if len(priority) == 0 {
		sort.Slice(vendors, func(i, j int) bool { return vendors[i] < vendors[j] })
		priority = vendors
	}
	return items, priority, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	fh, err := os.Open(compareFile)
	if err != nil {
		return err
	}
	defer fh.Close()

	items, priority, err := loadCatalog(fh)
	if err != nil {
		return err
	}
	if len(comparePriority) > 0 {
		priority = priority[:0]
		for _, p := range comparePriority {
			priority = append(priority, compare.VendorID(strings.ToLower(strings.TrimSpace(p))))
		}
	}
	res, err := compare.Compare(items, priority)
	if err != nil {
		return err
	}
	if compareJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printComparison(cmd.OutOrStdout(), items, priority, res)
}

func printComparison(w io.Writer, items []compare.ItemQuote, priority []compare.VendorID, res compare.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "ITEM")
	for _, v := range priority {
		fmt.Fprintf(tw, "\t%s", strings.ToUpper(string(v)))
	}
	fmt.Fprintln(tw, "\tBEST")
	for _, it := range items {
		fmt.Fprint(tw, label(it))
		for _, v := range priority {
			if p, ok := it.Prices[v]; ok {
				fmt.Fprintf(tw, "\t%s", major(p))
			} else {
				fmt.Fprint(tw, "\t-")
			}
		}
		fmt.Fprintf(tw, "\t%s\n", res.PerItemBestVendor[it.ItemID])
	}
	fmt.Fprint(tw, "TOTAL")
	for _, v := range priority {
		if t, ok := res.SingleVendorTotals[v]; ok {
			fmt.Fprintf(tw, "\t%s", major(t))
		} else {
			fmt.Fprint(tw, "\tincomplete")
		}
	}
	fmt.Fprintln(tw, "\t")
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\noptimal split: %s\nsavings:       %s\n", major(res.OptimalSplitTotal), major(res.Savings))
	if v, total, ok := compare.CheapestSingleVendor(res, priority); ok {
		fmt.Fprintf(w, "cheapest single vendor: %s (%s)\n", v, major(total))
	}
	return nil
}

func label(it compare.ItemQuote) string {
	if it.Name != "" {
		return it.Name
	}
	return it.ItemID
}

func major(m pricing.Money) string {
	return fmt.Sprintf("%d.%02d", m/100, m%100)
}
