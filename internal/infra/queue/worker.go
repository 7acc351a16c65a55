package queue

import (
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LeadNotifier delivers the back-office notification for a new lead.
type LeadNotifier interface {
	SendLeadNotification(to string, payload LeadEventPayload) error
}

// Worker consumes lead-created events and sends the notification email off the
// request path. Malformed messages are rejected without requeue; delivery
// failures dead-letter so a flaky SMTP host cannot wedge the queue.
type Worker struct {
	Channel  *amqp.Channel
	Notifier LeadNotifier
	NotifyTo string
}

func NewWorker(ch *amqp.Channel, notifier LeadNotifier, notifyTo string) *Worker {
	return &Worker{
		Channel:  ch,
		Notifier: notifier,
		NotifyTo: notifyTo,
	}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack (manual is safer)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		log.Fatalf("❌ failed to register RabbitMQ consumer: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var payload LeadEventPayload
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				log.Printf("❌ [WORKER] invalid message: %s", err)
				d.Nack(false, false)
				continue
			}

			log.Printf("📥 [WORKER] lead.created %s (%s)", payload.LeadID, payload.Origin)

			if err := w.Notifier.SendLeadNotification(w.NotifyTo, payload); err != nil {
				log.Printf("❌ [WORKER] notification failed for lead %s: %s", payload.LeadID, err)
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
	}()

	log.Printf(" [*] worker waiting on queue '%s'", queueName)
	<-forever
}
