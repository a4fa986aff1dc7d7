// Command checkout buys a product from the store API from the terminal: it
// prices the cart, submits the order and payment, and follows the payment
// until it settles.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tokocheckout/internal/api"
	"tokocheckout/internal/checkout"
	"tokocheckout/internal/config"
	"tokocheckout/internal/database"
	"tokocheckout/internal/models"
	"tokocheckout/pkg/logger"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "checkout:", err)
		os.Exit(1)
	}
}

type options struct {
	username  string
	password  string
	email     string
	logout    bool
	product   string
	quantity  int
	shipping  string
	address   string
	method    string
	bank      string
	insurance bool
	warranty  bool
	bonus     int64
	note      string
	simulate  string
	wait      bool
}

// configFlags map command-line flags onto configuration keys.
var configFlags = map[string]string{
	"api":           "API_BASE_URL",
	"session":       "API_SESSION_KEY",
	"token-store":   "API_TOKEN_STORE",
	"poll-interval": "CHECKOUT_POLL_INTERVAL",
	"log-level":     "LOG_LEVEL",
}

func parseFlags(args []string, v *viper.Viper) (options, error) {
	var o options
	fs := pflag.NewFlagSet("checkout", pflag.ContinueOnError)

	fs.String("api", "", "store API base URL")
	fs.String("session", "", "name under which the login token is kept")
	fs.String("token-store", "", "sqlite file holding login tokens")
	fs.Duration("poll-interval", 0, "delay between payment status checks")
	fs.String("log-level", "", "log level")

	fs.StringVarP(&o.username, "username", "u", "", "log in as this user before checking out")
	fs.StringVarP(&o.password, "password", "p", "", "password for --username")
	fs.StringVar(&o.email, "register", "", "register --username with this email first")
	fs.BoolVar(&o.logout, "logout", false, "forget the stored login and exit")
	fs.StringVar(&o.product, "product", "", "product id or name prefix (default: first product)")
	fs.IntVarP(&o.quantity, "quantity", "q", 1, "quantity to buy")
	fs.StringVar(&o.shipping, "shipping", "", "shipping option id (default: cheapest)")
	fs.StringVar(&o.address, "address", "primary", "shipping address id")
	fs.StringVar(&o.method, "method", string(models.PaymentMethodBankTransfer), "payment method: bank_transfer or qris")
	fs.StringVar(&o.bank, "bank", models.BankBCA, "bank for bank_transfer: bca, bni, bri or mandiri")
	fs.BoolVar(&o.insurance, "insurance", false, "insure the shipment")
	fs.BoolVar(&o.warranty, "warranty", false, "add a warranty to every item")
	fs.Int64Var(&o.bonus, "bonus", 0, "bonus credit to apply, in Rupiah")
	fs.StringVar(&o.note, "note", "", "note for the seller")
	fs.StringVar(&o.simulate, "simulate", "", "sandbox only: settle the payment with SUCCESS, FAILED or CANCELLED")
	fs.BoolVar(&o.wait, "wait", true, "follow the payment until it settles")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	for flag, key := range configFlags {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return o, fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	if o.username != "" && o.password == "" {
		return o, errors.New("--password is required with --username")
	}
	if o.email != "" && o.username == "" {
		return o, errors.New("--register needs --username")
	}
	return o, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	v := viper.New()
	opts, err := parseFlags(args, v)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, "console")
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.Open(config.Database{Driver: "sqlite", DSN: cfg.API.TokenStorePath}, log)
	if err != nil {
		return err
	}
	tokens, err := api.NewGORMTokenStore(db)
	if err != nil {
		return err
	}
	client := api.NewClient(api.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		SessionKey: cfg.API.SessionKey,
	}, tokens, log)

	if opts.logout {
		if err := client.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out.")
		return nil
	}
	if opts.email != "" {
		if _, err := client.Register(ctx, opts.username, opts.email, opts.password); err != nil {
			return err
		}
		fmt.Fprintf(out, "Registered %s.\n", opts.username)
	}
	if opts.username != "" {
		if err := client.Login(ctx, api.Credentials{Username: opts.username, Password: opts.password}); err != nil {
			return err
		}
	}

	session, err := buildSession(ctx, client, cfg, opts, log)
	if err != nil {
		return loginHint(err)
	}
	printSummary(out, session.Snapshot())

	payment, err := checkout.NewSubmitter(client, log).Submit(ctx, session)
	if err != nil {
		var subErr *checkout.SubmissionError
		if errors.As(err, &subErr) {
			fmt.Fprintln(out, subErr.Message)
		}
		return loginHint(err)
	}
	printPayment(out, payment)

	if !opts.wait && opts.simulate == "" {
		return nil
	}
	return follow(ctx, client, cfg, opts, payment, out, log)
}

func buildSession(ctx context.Context, client *api.Client, cfg config.Config, opts options, log *zap.Logger) (*checkout.Session, error) {
	products, err := client.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	product, err := pickProduct(products, opts.product)
	if err != nil {
		return nil, err
	}
	shippingOptions, err := client.ListShippingOptions(ctx)
	if err != nil {
		return nil, err
	}
	shipping, err := pickShipping(shippingOptions, opts.shipping)
	if err != nil {
		return nil, err
	}

	session := checkout.NewSession(cfg.Checkout.Fees(), log)
	err = session.Initialize([]models.LineItem{product.LineItem(opts.quantity)}, checkout.Defaults{
		Shipping:            shipping,
		ShippingAddressID:   opts.address,
		PaymentMethod:       models.PaymentMethod(opts.method),
		Bank:                bankFor(opts),
		UseInsurance:        opts.insurance,
		UseWarranty:         opts.warranty,
		WarrantyCostPerItem: cfg.Checkout.WarrantyCostPerItem,
		Bonus:               opts.bonus,
		Note:                opts.note,
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// follow polls the payment until it settles, the login expires or ctx ends.
func follow(ctx context.Context, client *api.Client, cfg config.Config, opts options, payment *models.Payment, out io.Writer, log *zap.Logger) error {
	poller := checkout.NewPoller(client, cfg.Checkout.PollInterval, log)
	sessionExpired := make(chan error, 1)
	unsubscribe := poller.Subscribe(func(u checkout.PollUpdate) {
		printUpdate(out, u)
		if u.IsSessionExpired() {
			select {
			case sessionExpired <- u.Err:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := poller.Start(ctx, *payment); err != nil {
		return err
	}
	defer poller.Stop()

	if opts.simulate != "" {
		status, err := models.ParsePaymentStatus(opts.simulate)
		if err != nil {
			return err
		}
		if _, err := client.SimulatePayment(ctx, payment.ID, status); err != nil {
			return err
		}
	}

	select {
	case <-poller.Done():
	case err := <-sessionExpired:
		return loginHint(err)
	case <-ctx.Done():
		return ctx.Err()
	}

	last := poller.Last()
	if last.State == checkout.PollerTerminal {
		fmt.Fprintf(out, "Payment %s is %s.\n", last.Payment.ID, last.Payment.Status)
	}
	return nil
}

func pickProduct(products []models.Product, want string) (*models.Product, error) {
	if len(products) == 0 {
		return nil, errors.New("the catalogue is empty")
	}
	if want == "" {
		return &products[0], nil
	}
	for i := range products {
		if products[i].ID == want {
			return &products[i], nil
		}
	}
	for i := range products {
		if strings.HasPrefix(strings.ToLower(products[i].Name), strings.ToLower(want)) {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("no product matches %q", want)
}

// pickShipping returns the option with id want, or the cheapest one.
func pickShipping(shippingOptions []models.ShippingOption, want string) (*models.ShippingOption, error) {
	if len(shippingOptions) == 0 {
		return nil, errors.New("no shipping options available")
	}
	best := 0
	for i := range shippingOptions {
		if want != "" && shippingOptions[i].ID == want {
			return &shippingOptions[i], nil
		}
		if shippingOptions[i].Cost < shippingOptions[best].Cost {
			best = i
		}
	}
	if want != "" {
		return nil, fmt.Errorf("no shipping option %q", want)
	}
	return &shippingOptions[best], nil
}

func bankFor(opts options) string {
	if models.PaymentMethod(opts.method) != models.PaymentMethodBankTransfer {
		return ""
	}
	return opts.bank
}

func loginHint(err error) error {
	if errors.Is(err, models.ErrSessionExpired) {
		return fmt.Errorf("%w (log in again with --username and --password)", err)
	}
	return err
}
