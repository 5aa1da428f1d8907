package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/smartvending/vendledger/internal/catalog"
	"github.com/smartvending/vendledger/internal/common"
	"github.com/smartvending/vendledger/internal/parser"
	"github.com/smartvending/vendledger/internal/pipeline"
	"github.com/smartvending/vendledger/internal/service"
	"github.com/smartvending/vendledger/internal/storage"
)

// mappingTables bundles the reference data a pipeline run needs.
type mappingTables struct {
	catalog      *catalog.Catalog
	locations    *catalog.Locations
	productSales *parser.ProductSalesIndex
}

// loadMappingTables reads the catalog, location directory, and optional
// product-sales-details table from the given paths (flag values falling
// back to config keys).
func loadMappingTables(catalogPath, locationsPath, salesPath string, substring bool) (*mappingTables, error) {
	if catalogPath == "" {
		catalogPath = viper.GetString("catalog.path")
	}
	if locationsPath == "" {
		locationsPath = viper.GetString("locations.path")
	}
	if salesPath == "" {
		salesPath = viper.GetString("catalog.product_sales_path")
	}
	if !substring {
		substring = viper.GetBool("mapping.allow_substring")
	}

	if catalogPath == "" {
		return nil, common.NewUserError("no catalog configured; pass --catalog or set catalog.path", common.ErrMissingCatalog)
	}

	var opts []catalog.Option
	if substring {
		opts = append(opts, catalog.WithSubstringFallback())
	}

	catalogFile, err := os.Open(catalogPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("cannot open catalog %s", catalogPath), err)
	}
	defer func() { _ = catalogFile.Close() }()

	cat, err := catalog.LoadCatalog(catalogPath, catalogFile, opts...)
	if err != nil {
		return nil, err
	}

	tables := &mappingTables{catalog: cat, locations: catalog.NewLocations(nil)}

	if locationsPath != "" {
		locationsFile, err := os.Open(locationsPath)
		if err != nil {
			return nil, common.NewUserError(fmt.Sprintf("cannot open location directory %s", locationsPath), err)
		}
		defer func() { _ = locationsFile.Close() }()

		tables.locations, err = catalog.LoadLocations(locationsPath, locationsFile)
		if err != nil {
			return nil, err
		}
	}

	if salesPath != "" {
		salesFile, err := os.Open(salesPath)
		if err != nil {
			return nil, common.NewUserError(fmt.Sprintf("cannot open product sales details %s", salesPath), err)
		}
		defer func() { _ = salesFile.Close() }()

		tables.productSales, err = parser.LoadProductSales(salesPath, salesFile)
		if err != nil {
			return nil, err
		}
	}

	return tables, nil
}

// newPipeline builds a pipeline over loaded mapping tables.
func (t *mappingTables) newPipeline(cfg pipeline.Config) (*pipeline.Pipeline, error) {
	cfg.Catalog = t.catalog
	cfg.Locations = t.locations
	cfg.ProductSales = t.productSales
	return pipeline.New(cfg)
}

// openStorage opens and migrates the configured ledger database.
func openStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "vendledger", "ledger.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}
