package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-donations/app/backend"
	"github.com/vibast-solutions/ms-go-donations/app/service"
	"github.com/vibast-solutions/ms-go-donations/app/types"
	"github.com/vibast-solutions/ms-go-donations/config"
)

var donateFlags struct {
	donationType string
	amount       int64
	phone        string
	donorName    string
	donorEmail   string
	message      string
	anonymous    bool
}

var donateCmd = &cobra.Command{
	Use:   "donate",
	Short: "Submit a donation from the command line",
	Long:  "Submit a one-time or monthly donation directly against the backend, tracking the payment until a terminal status.",
	Run:   runDonate,
}

func init() {
	rootCmd.AddCommand(donateCmd)

	donateCmd.Flags().StringVar(&donateFlags.donationType, "type", types.DonationTypeInstant, "Donation type: instant or monthly")
	donateCmd.Flags().Int64Var(&donateFlags.amount, "amount", 0, "Amount in XAF")
	donateCmd.Flags().StringVar(&donateFlags.phone, "phone", "", "Mobile money phone number")
	donateCmd.Flags().StringVar(&donateFlags.donorName, "name", "", "Donor name")
	donateCmd.Flags().StringVar(&donateFlags.donorEmail, "email", "", "Donor email")
	donateCmd.Flags().StringVar(&donateFlags.message, "message", "", "Message to the organization")
	donateCmd.Flags().BoolVar(&donateFlags.anonymous, "anonymous", false, "Donate anonymously")
}

func runDonate(_ *cobra.Command, _ []string) {
	cfg, backendClient := mustCreateBackendClient()

	req := &types.CreateDonationRequest{
		Type:        strings.ToLower(strings.TrimSpace(donateFlags.donationType)),
		Amount:      donateFlags.amount,
		Phone:       strings.TrimSpace(donateFlags.phone),
		DonorName:   strings.TrimSpace(donateFlags.donorName),
		DonorEmail:  strings.ToLower(strings.TrimSpace(donateFlags.donorEmail)),
		Message:     strings.TrimSpace(donateFlags.message),
		IsAnonymous: donateFlags.anonymous,
	}
	if errs := req.Validate(); len(errs) > 0 {
		logrus.WithField("fields", errs).Fatal("Invalid donation request")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if req.Type == types.DonationTypeMonthly {
		runDonateMonthly(ctx, backendClient, req)
		return
	}
	runDonateInstant(ctx, cfg, backendClient, req)
}

func runDonateInstant(ctx context.Context, cfg *config.Config, backendClient *backend.Client, req *types.CreateDonationRequest) {
	transactionID, err := backendClient.DirectPay(ctx, &backend.DirectPayInput{
		Amount:      req.Amount,
		Phone:       req.Phone,
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		logrus.WithError(err).Fatal(backend.UserMessage(err))
	}
	logrus.WithField("transaction_id", transactionID).Info("Payment request sent, confirm on your phone")

	poller := service.NewStatusPoller(backendClient, cfg.Donations.PollInterval, cfg.Donations.PollMaxAttempts)
	result, err := poller.Wait(ctx, transactionID)
	if err != nil {
		logrus.WithField("transaction_id", transactionID).Warn("Tracking interrupted, the payment may still complete")
		return
	}

	entry := logrus.WithField("transaction_id", transactionID).
		WithField("attempts", result.Attempts)
	switch result.Outcome {
	case service.OutcomeConfirmed:
		entry.Info(result.UserMessage())
	default:
		entry.Error(result.UserMessage())
	}
}

func runDonateMonthly(ctx context.Context, backendClient *backend.Client, req *types.CreateDonationRequest) {
	existing, err := backendClient.MySubscription(ctx, req.DonorEmail)
	if err != nil {
		logrus.WithError(err).Fatal(backend.UserMessage(err))
	}
	if existing != nil && !existing.Status.Cancelled() {
		logrus.WithField("subscription_id", existing.ID).Fatal(service.ErrAlreadySubscribed.Error())
	}

	if err := backendClient.Subscribe(ctx, &backend.SubscribeInput{
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
		Phone:       req.Phone,
		Amount:      req.Amount,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
	}); err != nil {
		logrus.WithError(err).Fatal(backend.UserMessage(err))
	}

	logrus.WithField("email", req.DonorEmail).Info("Monthly subscription created")
}

func mustCreateBackendClient() (*config.Config, *backend.Client) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	return cfg, backend.NewClient(backend.Config{
		BaseURL:     cfg.Backend.BaseURL,
		APIKey:      cfg.Backend.APIKey,
		HTTPTimeout: cfg.Backend.HTTPTimeout,
	})
}
