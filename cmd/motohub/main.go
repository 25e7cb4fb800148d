package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/motohub/go-motohub-client/guards"
	"github.com/motohub/go-motohub-client/internal/config"
	"github.com/motohub/go-motohub-client/internal/metrics"
	"github.com/motohub/go-motohub-client/inventory"
	"github.com/motohub/go-motohub-client/reports"
	"github.com/motohub/go-motohub-client/session"
	"github.com/motohub/go-motohub-client/store"
	"github.com/motohub/go-motohub-client/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func run(args []string) error {
	c := config.New()
	logger := newLogger(c)

	var kvOptions []store.FileKVOption
	if passphrase := c.GetStoragePassphrase(); passphrase != "" {
		kvOptions = append(kvOptions, store.WithPassphrase(passphrase))
	}
	sessionStore := store.New(store.NewFileKV(c.GetStoragePath(), kvOptions...))

	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector(registry)

	// The auth-expired handler closes over the manager, which is built after
	// the client it hangs off.
	var manager *session.Manager
	client := transport.New(c.GetBaseURL(), sessionStore,
		transport.WithHTTPClient(&http.Client{Timeout: c.GetHTTPTimeout()}),
		transport.WithLogger(logger),
		transport.WithMetrics(collector),
		transport.WithAuthExpiredHandler(func() {
			if manager != nil {
				manager.HandleAuthExpired()
			}
			fmt.Fprintln(os.Stderr, "Session expired, please log in again.")
		}),
	)

	manager, err := session.NewManager(client, sessionStore, session.WithLogger(logger))
	if err != nil {
		return err
	}
	manager.Rehydrate()

	if len(args) == 0 {
		usage(c.GetAppName())
		return nil
	}

	ctx := context.Background()
	switch args[0] {
	case "login":
		return cmdLogin(ctx, manager, args[1:])
	case "logout":
		result := manager.Logout(ctx)
		fmt.Println(result.Message)
		return nil
	case "whoami":
		return cmdWhoami(manager)
	case "vehicles":
		return cmdVehicles(ctx, client, args[1:])
	case "dashboard":
		return cmdDashboard(ctx, manager, client)
	default:
		usage(c.GetAppName())
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func cmdLogin(ctx context.Context, manager *session.Manager, args []string) error {
	flags := flag.NewFlagSet("login", flag.ExitOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password (falls back to MOTOHUB_PASSWORD)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("login requires -email")
	}
	if *password == "" {
		*password = os.Getenv("MOTOHUB_PASSWORD")
	}

	result := manager.Login(ctx, *email, *password)
	fmt.Println(result.Message)
	if result.OK {
		fmt.Printf("Logged in as %s (%s)\n", result.User.Name, result.User.Role)
	}
	return nil
}

func cmdWhoami(manager *session.Manager) error {
	if !manager.IsAuthenticated() {
		fmt.Println("Not logged in")
		return nil
	}
	user := manager.CurrentUser()
	fmt.Printf("%s <%s> role=%s mobile=%s\n", user.Name, user.Email, user.Role, user.Mobile)
	return nil
}

func cmdVehicles(ctx context.Context, client *transport.Client, args []string) error {
	flags := flag.NewFlagSet("vehicles", flag.ExitOnError)
	search := flags.String("search", "", "search brand/model/description")
	brand := flags.String("brand", "", "filter by brand")
	if err := flags.Parse(args); err != nil {
		return err
	}

	page, err := inventory.NewClient(client).List(ctx, inventory.ListParams{
		Search: *search,
		Brand:  *brand,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%d vehicle(s)\n", page.Count)
	for _, v := range page.Results {
		fmt.Printf("  #%d %s %s — %s (%d in stock)\n", v.ID, v.Brand, v.Model, v.Price, v.StockQty)
	}
	return nil
}

func cmdDashboard(ctx context.Context, manager *session.Manager, client *transport.Client) error {
	decision := guards.Authenticated{RequireAdmin: true}.Decide(manager, guards.AdminDashboardRoute)
	if decision.Kind == guards.KindRedirect {
		fmt.Printf("Not allowed here, go to %s\n", decision.Target)
		return nil
	}

	dashboard, err := reports.NewClient(client).Dashboard(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Sales (30d):     %d sales, revenue %.2f\n", dashboard.Sales.RecentSalesCount, dashboard.Sales.RecentRevenue)
	fmt.Printf("Inventory:       %d vehicles, %d low stock, %d out of stock\n",
		dashboard.Inventory.TotalVehicles, dashboard.Inventory.LowStockCount, dashboard.Inventory.OutOfStockCount)
	fmt.Printf("Service (30d):   %d pending, %d completed, revenue %.2f\n",
		dashboard.Service.PendingRequests, dashboard.Service.CompletedServices, dashboard.Service.RecentRevenue)
	fmt.Printf("Customers:       %d total, %d new\n", dashboard.Customers.TotalCustomers, dashboard.Customers.NewCustomers)
	return nil
}

func newLogger(c config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func usage(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login -email <email>     authenticate and store a session")
	fmt.Println("  logout                   invalidate and clear the session")
	fmt.Println("  whoami                   show the current user")
	fmt.Println("  vehicles [-search -brand] browse the catalogue")
	fmt.Println("  dashboard                admin key metrics")
}
