package cmd

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-donations/app/service"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

var subscriptionFlags struct {
	id           string
	email        string
	amount       int64
	phone        string
	message      string
	pauseMonths  int32
	cancelReason string
}

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Manage a donor's monthly subscription",
}

var subscriptionGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the subscription for an email",
	Run: func(_ *cobra.Command, _ []string) {
		ctx, manager := mustCreateSubscriptionManager()
		item, err := manager.Fetch(ctx, normalizedEmailFlag())
		if err != nil {
			logrus.WithError(err).Fatal("Failed to fetch subscription")
		}
		if item == nil {
			logrus.Fatal(service.ErrSubscriptionNotFound.Error())
		}
		logSubscription(item).Info("Subscription found")
	},
}

var subscriptionUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change the amount, phone, or message of a subscription",
	Run: func(_ *cobra.Command, _ []string) {
		ctx, manager := mustCreateSubscriptionManager()
		item, err := manager.Update(ctx, &types.UpdateSubscriptionRequest{
			ID:         strings.TrimSpace(subscriptionFlags.id),
			DonorEmail: normalizedEmailFlag(),
			Amount:     subscriptionFlags.amount,
			Phone:      strings.TrimSpace(subscriptionFlags.phone),
			Message:    strings.TrimSpace(subscriptionFlags.message),
		})
		if err != nil {
			logrus.WithError(err).Fatal("Failed to update subscription")
		}
		logSubscription(item).Info("Subscription updated")
	},
}

var subscriptionPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause a subscription for 1, 2, 3 or 6 months",
	Run: func(_ *cobra.Command, _ []string) {
		ctx, manager := mustCreateSubscriptionManager()
		item, err := manager.Pause(ctx, &types.PauseSubscriptionRequest{
			ID:            strings.TrimSpace(subscriptionFlags.id),
			DonorEmail:    normalizedEmailFlag(),
			PauseDuration: subscriptionFlags.pauseMonths,
		})
		if err != nil {
			logrus.WithError(err).Fatal("Failed to pause subscription")
		}
		logSubscription(item).Info("Subscription paused")
	},
}

var subscriptionResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused subscription",
	Run: func(_ *cobra.Command, _ []string) {
		ctx, manager := mustCreateSubscriptionManager()
		item, err := manager.Resume(ctx, &types.ResumeSubscriptionRequest{
			ID:         strings.TrimSpace(subscriptionFlags.id),
			DonorEmail: normalizedEmailFlag(),
		})
		if err != nil {
			logrus.WithError(err).Fatal("Failed to resume subscription")
		}
		logSubscription(item).Info("Subscription resumed")
	},
}

var subscriptionCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a subscription",
	Run: func(_ *cobra.Command, _ []string) {
		ctx, manager := mustCreateSubscriptionManager()
		err := manager.Cancel(ctx, &types.CancelSubscriptionRequest{
			ID:           strings.TrimSpace(subscriptionFlags.id),
			DonorEmail:   normalizedEmailFlag(),
			CancelReason: strings.TrimSpace(subscriptionFlags.cancelReason),
		})
		if err != nil {
			logrus.WithError(err).Fatal("Failed to cancel subscription")
		}
		logrus.WithField("subscription_id", subscriptionFlags.id).Info("Subscription cancelled")
	},
}

func init() {
	rootCmd.AddCommand(subscriptionCmd)
	subscriptionCmd.AddCommand(subscriptionGetCmd)
	subscriptionCmd.AddCommand(subscriptionUpdateCmd)
	subscriptionCmd.AddCommand(subscriptionPauseCmd)
	subscriptionCmd.AddCommand(subscriptionResumeCmd)
	subscriptionCmd.AddCommand(subscriptionCancelCmd)

	subscriptionCmd.PersistentFlags().StringVar(&subscriptionFlags.id, "id", "", "Subscription id")
	subscriptionCmd.PersistentFlags().StringVar(&subscriptionFlags.email, "email", "", "Donor email")
	subscriptionUpdateCmd.Flags().Int64Var(&subscriptionFlags.amount, "amount", 0, "New monthly amount in XAF")
	subscriptionUpdateCmd.Flags().StringVar(&subscriptionFlags.phone, "phone", "", "New mobile money phone number")
	subscriptionUpdateCmd.Flags().StringVar(&subscriptionFlags.message, "message", "", "New message to the organization")
	subscriptionPauseCmd.Flags().Int32Var(&subscriptionFlags.pauseMonths, "months", 1, "Pause duration in months (1, 2, 3 or 6)")
	subscriptionCancelCmd.Flags().StringVar(&subscriptionFlags.cancelReason, "reason", "", "Cancellation reason")
}

func mustCreateSubscriptionManager() (context.Context, *service.SubscriptionManager) {
	_, backendClient := mustCreateBackendClient()
	return context.Background(), service.NewSubscriptionManager(backendClient)
}

func normalizedEmailFlag() string {
	return strings.ToLower(strings.TrimSpace(subscriptionFlags.email))
}

func logSubscription(item *types.Subscription) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"subscription_id": item.ID,
		"status":          item.Status,
		"amount":          item.Amount,
		"next_billing":    item.NextBillingDate,
		"paused_until":    item.PausedUntil,
	})
}
