package main

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/backend-grocer/internal/app"
	"github.com/noah-isme/backend-grocer/internal/config"
	"github.com/noah-isme/backend-grocer/internal/pricefeed"
	"github.com/noah-isme/backend-grocer/internal/store"
)

//go:embed seed.yaml
var seedYAML []byte

type seedVendor struct {
	Slug                  string `yaml:"slug"`
	Name                  string `yaml:"name"`
	Website               string `yaml:"website"`
	DeliveryFee           string `yaml:"deliveryFee"`
	FreeDeliveryThreshold string `yaml:"freeDeliveryThreshold"`
	MinOrderValue         string `yaml:"minOrderValue"`
	Priority              int32  `yaml:"priority"`
}

type seedProduct struct {
	Name          string            `yaml:"name"`
	Category      string            `yaml:"category"`
	Unit          string            `yaml:"unit"`
	ShelfLifeDays int32             `yaml:"shelfLifeDays"`
	Prices        map[string]string `yaml:"prices"`
}

type seedData struct {
	Vendors  []seedVendor  `yaml:"vendors"`
	Products []seedProduct `yaml:"products"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample vendors, products and quotes",
	RunE:  runSeed,
}

func loadSeed(raw []byte) (seedData, error) {
	var data seedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return seedData{}, fmt.Errorf("parse seed: %w", err)
	}
	slugs := make(map[string]bool, len(data.Vendors))
	for _, v := range data.Vendors {
		slugs[v.Slug] = true
	}
	for _, p := range data.Products {
		for slug := range p.Prices {
			if !slugs[slug] {
				return seedData{}, fmt.Errorf("seed: product %q priced by unknown vendor %q", p.Name, slug)
			}
		}
	}
	return data, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := requireDatabaseURL(); err != nil {
		return err
	}
	data, err := loadSeed(seedYAML)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	pool, err := app.OpenPostgres(ctx, &config.Config{DatabaseURL: databaseURL}, "grocerctl")
	if err != nil {
		return err
	}
	defer pool.Close()

	var quotes int
	err = store.InTx(ctx, pool, func(q *store.Queries) error {
		vendorIDs := make(map[string]pgtype.UUID, len(data.Vendors))
		for _, v := range data.Vendors {
			fee, err := pricefeed.ParsePrice(v.DeliveryFee)
			if err != nil {
				return fmt.Errorf("vendor %s delivery fee: %w", v.Slug, err)
			}
			free, err := pricefeed.ParsePrice(v.FreeDeliveryThreshold)
			if err != nil {
				return fmt.Errorf("vendor %s free delivery threshold: %w", v.Slug, err)
			}
			minOrder, err := pricefeed.ParsePrice(v.MinOrderValue)
			if err != nil {
				return fmt.Errorf("vendor %s min order: %w", v.Slug, err)
			}
			row, err := q.UpsertVendor(ctx, store.UpsertVendorParams{
				Slug:                  v.Slug,
				Name:                  v.Name,
				Status:                "active",
				WebsiteUrl:            pgtype.Text{String: v.Website, Valid: v.Website != ""},
				DeliveryFee:           fee,
				FreeDeliveryThreshold: free,
				MinOrderValue:         minOrder,
				Priority:              v.Priority,
			})
			if err != nil {
				return fmt.Errorf("upsert vendor %s: %w", v.Slug, err)
			}
			vendorIDs[v.Slug] = row.ID
		}

		for _, p := range data.Products {
			product, err := q.UpsertProduct(ctx, store.UpsertProductParams{
				Name:                 p.Name,
				NormalizedName:       normalizeName(p.Name),
				Category:             p.Category,
				Unit:                 p.Unit,
				TypicalShelfLifeDays: pgtype.Int4{Int32: p.ShelfLifeDays, Valid: p.ShelfLifeDays > 0},
			})
			if err != nil {
				return fmt.Errorf("upsert product %s: %w", p.Name, err)
			}
			for slug, raw := range p.Prices {
				price, err := pricefeed.ParsePrice(raw)
				if err != nil {
					return fmt.Errorf("price of %s at %s: %w", p.Name, slug, err)
				}
				if err := q.UpsertQuote(ctx, store.UpsertQuoteParams{
					ProductID:    product.ID,
					VendorID:     vendorIDs[slug],
					CurrentPrice: price,
					InStock:      true,
				}); err != nil {
					return fmt.Errorf("upsert quote %s/%s: %w", p.Name, slug, err)
				}
				quotes++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d vendors, %d products, %d quotes\n", len(data.Vendors), len(data.Products), quotes)
	return nil
}
