package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/order-fulfillment/internal/core/events"
	"github.com/frahmantamala/order-fulfillment/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event bus tooling",
	Long:  `Publish pipeline events against a local bus to exercise handlers`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a pipeline event",
	Long: `Publish one of the pipeline events (payment.verified, payment.failed,
order.cod_placed, shipment.created) to a local event bus with a logging
subscriber attached, for smoke-testing handler wiring`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishPipelineEvent(args[0])
	},
}

var (
	eventOrderID    int64
	eventTrackingID string
)

func publishPipelineEvent(eventType string) {
	lg := logger.LoggerWrapper()

	eventBus := events.NewEventBus(lg)
	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	var event events.Event
	switch eventType {
	case events.EventTypePaymentVerified:
		event = events.NewPaymentVerifiedEvent(eventOrderID, "order_cli", "pay_cli", 0, "cli")
	case events.EventTypePaymentFailed:
		event = events.NewPaymentFailedEvent(eventOrderID, "order_cli", "published from cli")
	case events.EventTypeCODPlaced:
		event = events.NewCODPlacedEvent(eventOrderID, 0, eventTrackingID)
	case events.EventTypeShipmentCreated:
		event = events.NewShipmentCreatedEvent(eventOrderID, eventTrackingID, "Prepaid")
	default:
		lg.Error("unknown event type",
			"event_type", eventType,
			"known", []string{
				events.EventTypePaymentVerified,
				events.EventTypePaymentFailed,
				events.EventTypeCODPlaced,
				events.EventTypeShipmentCreated,
			})
		return
	}

	lg.Info("publishing event", "event_type", eventType, "event_id", event.EventID())

	if err := eventBus.Publish(context.Background(), event); err != nil {
		lg.Error("failed to publish event", "error", err)
		return
	}

	// async handlers; give them a beat before the process exits
	time.Sleep(100 * time.Millisecond)
	lg.Info("event published")
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventOrderID, "order-id", 1, "Order id to stamp on the event")
	publishEventCmd.Flags().StringVar(&eventTrackingID, "awb", "AWB-CLI", "Tracking id for shipment/COD events")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
