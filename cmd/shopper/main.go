package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fjod/shoestore/internal/client"
	"github.com/fjod/shoestore/internal/domain"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type config struct {
	apiURL      string
	timeout     time.Duration
	search      string
	categories  bool
	page        int
	limit       int
	add         idList
	remove      idList
	checkout    bool
	payment     string
	shipping    string
	orders      bool
	adminToken  string
	verboseLogs bool
}

// idList collects a repeatable flag.
type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }

func (l *idList) Set(v string) error {
	*l = append(*l, strings.TrimSpace(v))
	return nil
}

func main() {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fail("%v", err)
	}

	if cfg.verboseLogs {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.New(client.Config{
		BaseURL:    cfg.apiURL,
		Timeout:    cfg.timeout,
		AdminToken: cfg.adminToken,
		Log:        log.StandardLogger(),
	})
	if err != nil {
		fail("%v", err)
	}

	if err := run(ctx, cfg, c, os.Stdout); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fail("request failed: %s: %s", apiErr.Kind, apiErr.Message)
		}
		fail("%v", err)
	}
}

func parseArgs(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("shopper", flag.ContinueOnError)
	fs.StringVar(&cfg.apiURL, "api", firstNonEmpty(os.Getenv("STOREFRONT_API"), "http://localhost:3000"), "storefront API base URL (fallback: STOREFRONT_API)")
	fs.DurationVar(&cfg.timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	fs.StringVar(&cfg.search, "search", "", "search listings by brand")
	fs.BoolVar(&cfg.categories, "categories", false, "print the brand, color and size filters")
	fs.IntVar(&cfg.page, "page", 0, "page of listings to show (1-based)")
	fs.IntVar(&cfg.limit, "limit", 0, "listings per page")
	fs.Var(&cfg.add, "add", "listing id to add to the cart (repeat to increase quantity)")
	fs.Var(&cfg.remove, "remove", "listing id to drop from the cart")
	fs.BoolVar(&cfg.checkout, "checkout", false, "submit the cart as an order")
	fs.StringVar(&cfg.payment, "payment", "", "payment details for -checkout")
	fs.StringVar(&cfg.shipping, "shipping", "", "shipping address for -checkout")
	fs.BoolVar(&cfg.orders, "orders", false, "list submitted orders")
	fs.StringVar(&cfg.adminToken, "admin-token", os.Getenv("ADMIN_TOKEN"), "bearer token for -orders (fallback: ADMIN_TOKEN)")
	fs.BoolVar(&cfg.verboseLogs, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if cfg.checkout {
		if len(cfg.add) == 0 {
			return config{}, errors.New("-checkout needs at least one -add")
		}
		if strings.TrimSpace(cfg.payment) == "" || strings.TrimSpace(cfg.shipping) == "" {
			return config{}, errors.New("-checkout needs -payment and -shipping")
		}
	}
	return cfg, nil
}

// storefront is the part of the API client the shopper uses.
type storefront interface {
	ListShoes(ctx context.Context, page, limit int) ([]domain.Shoe, error)
	Search(ctx context.Context, term string) ([]domain.Shoe, error)
	Categories(ctx context.Context) (*domain.Filters, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	Checkout(ctx context.Context, cart domain.Cart, paymentInfo, shippingInfo string) (string, error)
}

func run(ctx context.Context, cfg config, api storefront, out io.Writer) error {
	switch {
	case cfg.orders:
		orders, err := api.ListOrders(ctx)
		if err != nil {
			return err
		}
		printOrders(out, orders)
		return nil
	case cfg.categories:
		filters, err := api.Categories(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "brands: %s\n", strings.Join(filters.Brands, ", "))
		fmt.Fprintf(out, "colors: %s\n", strings.Join(filters.Colors, ", "))
		fmt.Fprintf(out, "sizes:  %s\n", strings.Join(filters.Sizes, ", "))
		return nil
	case cfg.search != "":
		shoes, err := api.Search(ctx, cfg.search)
		if err != nil {
			return err
		}
		printShoes(out, shoes)
		return nil
	case len(cfg.add) > 0:
		return shop(ctx, cfg, api, out)
	default:
		shoes, err := api.ListShoes(ctx, cfg.page, cfg.limit)
		if err != nil {
			return err
		}
		printShoes(out, shoes)
		return nil
	}
}

func shop(ctx context.Context, cfg config, api storefront, out io.Writer) error {
	shoes, err := api.ListShoes(ctx, 0, 0)
	if err != nil {
		return err
	}
	byID := make(map[string]domain.Shoe, len(shoes))
	for _, s := range shoes {
		byID[s.ID.Hex()] = s
	}

	var cart domain.Cart
	for _, id := range cfg.add {
		shoe, ok := byID[id]
		if !ok {
			return fmt.Errorf("no listing with id %s", id)
		}
		cart = domain.AddToCart(cart, shoe)
	}
	for _, raw := range cfg.remove {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return fmt.Errorf("invalid -remove id %q", raw)
		}
		cart = domain.RemoveFromCart(cart, id)
	}

	printCart(out, cart)
	if !cfg.checkout {
		return nil
	}

	orderID, err := api.Checkout(ctx, cart, cfg.payment, cfg.shipping)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "order placed: %s\n", orderID)
	return nil
}

func printShoes(out io.Writer, shoes []domain.Shoe) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBRAND\tNAME\tCOLOR\tSIZE\tPRICE")
	for _, s := range shoes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\n", s.ID.Hex(), s.Brand, s.Name, s.ShoeDetails.Color, s.ShoeDetails.Size, s.Price)
	}
	tw.Flush()
}

func printCart(out io.Writer, cart domain.Cart) {
	if cart.IsEmpty() {
		fmt.Fprintln(out, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBRAND\tQTY\tSUBTOTAL")
	for _, item := range cart {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", item.ID.Hex(), item.Brand, item.Quantity, item.Subtotal().StringFixed(2))
	}
	tw.Flush()
	fmt.Fprintf(out, "total: %s (%d items)\n", cart.Total().StringFixed(2), cart.Quantity())
}

func printOrders(out io.Writer, orders []domain.Order) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tITEMS\tTOTAL\tSHIPPING")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\n", o.ID.Hex(), o.CreatedAt.Format(time.RFC3339), o.Cart.Quantity(), o.Total, o.ShippingInfo)
	}
	tw.Flush()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
