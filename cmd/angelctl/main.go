// cmd/angelctl/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/config"
	"github.com/rfmontes/angel-fit-app/internal/database"
	"github.com/rfmontes/angel-fit-app/internal/models"
	"github.com/rfmontes/angel-fit-app/internal/services"
	"github.com/rfmontes/angel-fit-app/internal/store"
)

const usage = `usage: angelctl <command> [args]

commands:
  status                 count products and list the first few
  reset-min-stock <n>    set min_stock on every product
  export <file.xlsx>     write the products spreadsheet
  sell <customer> <product-id>[:qty]...
                         record a counter sale
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	limit := flag.Int("limit", 5, "products listed by status")
	payment := flag.String("payment", "", "payment method recorded by sell")
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := cfg.NewLogger()
	if cfg.Store.Driver != "postgres" {
		logger.Fatal("angelctl works against the postgres store only")
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	ctx := context.Background()
	inventory := services.NewInventoryService(store.NewGormStore(db), cfg, logger, nil)

	switch cmd := flag.Arg(0); cmd {
	case "status":
		err = status(ctx, inventory, *limit)
	case "reset-min-stock":
		err = resetMinStock(ctx, inventory, flag.Arg(1))
	case "export":
		err = export(ctx, inventory, logger, flag.Arg(1))
	case "sell":
		err = sell(ctx, inventory, *payment, flag.Args()[1:])
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		logger.WithError(err).Error("Command failed")
		database.Close(db)
		os.Exit(1)
	}
}

func status(ctx context.Context, inventory *services.InventoryService, limit int) error {
	count, err := inventory.CountProducts(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Product count in DB: %d\n", count)

	if err := inventory.Load(ctx); err != nil {
		return err
	}
	products := inventory.Products()
	if len(products) > limit {
		products = products[:limit]
	}
	for _, p := range products {
		fmt.Printf("  %s  %-40s stock=%d\n", p.ID, p.Name, p.Stock)
	}
	fmt.Printf("Sales in DB: %d\n", len(inventory.Sales()))
	return nil
}

func resetMinStock(ctx context.Context, inventory *services.InventoryService, arg string) error {
	value, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid min stock %q", arg)
	}
	n, err := inventory.ResetMinStock(ctx, value)
	if err != nil {
		return err
	}
	fmt.Printf("Updated min_stock to %d on %d products\n", value, n)
	return nil
}

func export(ctx context.Context, inventory *services.InventoryService, logger *logrus.Logger, path string) error {
	if path == "" {
		return fmt.Errorf("missing output file")
	}
	if err := inventory.Load(ctx); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	reports := services.NewReportService(inventory, nil, logger)
	if err := reports.WriteProducts(f); err != nil {
		return err
	}
	fmt.Printf("Wrote %d products to %s\n", len(inventory.Products()), path)
	return nil
}

func sell(ctx context.Context, inventory *services.InventoryService, payment string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("sell needs a customer and at least one product")
	}
	if err := inventory.Load(ctx); err != nil {
		return err
	}

	cart, err := fillCart(inventory.Product, args[1:])
	if err != nil {
		return err
	}

	sale, err := inventory.CreateSale(ctx, cart.Checkout(args[0], "", payment))
	if err != nil {
		return err
	}
	fmt.Printf("Sale %s: %d pieces, total %s\n", sale.ID, cart.Count(), sale.Total.StringFixed(2))
	return nil
}

// fillCart turns "<product-id>[:qty]" arguments into a cart. Repeated ids
// add up. A quantity the cart refuses fails the whole command rather than
// recording a smaller sale than was asked for.
func fillCart(lookup func(uuid.UUID) (*models.Product, error), args []string) (*services.Cart, error) {
	var order []uuid.UUID
	wanted := make(map[uuid.UUID]int)
	for _, arg := range args {
		idPart, qtyPart, hasQty := strings.Cut(arg, ":")
		id, err := uuid.Parse(idPart)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q", idPart)
		}
		qty := 1
		if hasQty {
			if qty, err = strconv.Atoi(qtyPart); err != nil || qty < 1 {
				return nil, fmt.Errorf("invalid quantity %q for %s", qtyPart, idPart)
			}
		}
		if _, seen := wanted[id]; !seen {
			order = append(order, id)
		}
		wanted[id] += qty
	}

	cart := services.NewCart()
	for _, id := range order {
		product, err := lookup(id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		if err := cart.Add(*product); err != nil {
			return nil, fmt.Errorf("%s: %w", product.Name, err)
		}
		if err := cart.SetQuantity(id, wanted[id]); err != nil {
			return nil, fmt.Errorf("%s: %w", product.Name, err)
		}
	}
	return cart, nil
}
