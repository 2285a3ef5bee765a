package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/agrinet/becknmart/internal/client"
	"github.com/agrinet/becknmart/internal/domain"
	"github.com/agrinet/becknmart/internal/marketplace"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every item published to the network",
	RunE:  runList,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog <marketplace>",
	Short: "Print the composed catalog of a marketplace",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalog,
}

var (
	listCategory string
	listQuery    string
)

func init() {
	for _, c := range []*cobra.Command{listCmd, catalogCmd} {
		c.Flags().StringVar(&listCategory, "category", "", "only items of this category")
		c.Flags().StringVarP(&listQuery, "query", "q", "", "free text filter")
	}
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderItems writes items as a bordered table
func renderItems(w io.Writer, items []domain.CatalogItem) {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.ID,
			it.Title,
			it.Category,
			it.Provider,
			it.PriceLabel(),
			strconv.FormatFloat(it.Rating, 'f', 1, 64),
			it.Origin(),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "CATEGORY", "PROVIDER", "PRICE", "RATING", "ORIGIN").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "%d items\n", len(items))
}

func currentFilter() marketplace.Filter {
	return marketplace.Filter{Category: listCategory, Query: listQuery}
}

func runList(cmd *cobra.Command, args []string) error {
	var items []domain.CatalogItem
	if serverURL != "" {
		var err error
		items, err = client.New(serverURL).ListAll(cmd.Context())
		if err != nil {
			return err
		}
	} else {
		a, err := openLocal()
		if err != nil {
			return err
		}
		defer a.Release()
		items, err = a.Network().ListAll()
		if err != nil {
			return err
		}
	}
	// store order is backend specific
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	renderItems(cmd.OutOrStdout(), currentFilter().Apply(items))
	return nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	name := args[0]
	var items []domain.CatalogItem
	if serverURL != "" {
		var err error
		items, err = client.New(serverURL).Catalog(cmd.Context(), name)
		if err != nil {
			return err
		}
	} else {
		a, err := openLocal()
		if err != nil {
			return err
		}
		defer a.Release()
		v, ok := a.Marketplaces().Get(name)
		if !ok {
			return errors.Errorf("unknown marketplace %q", name)
		}
		items = v.Catalog()
	}
	renderItems(cmd.OutOrStdout(), currentFilter().Apply(items))
	return nil
}
