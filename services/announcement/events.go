package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/nandak93/go-people-ops-system/shared/models"
)

// AnnouncementEvent is the realtime notification emitted for each
// delivery row, consumed by downstream notification transports.
type AnnouncementEvent struct {
	NotificationID uuid.UUID                `json:"notification_id"`
	OrganizationID uuid.UUID                `json:"organization_id"`
	BatchID        *uuid.UUID               `json:"batch_id,omitempty"`
	TargetUserID   *uuid.UUID               `json:"target_user_id,omitempty"`
	Title          string                   `json:"title"`
	Scope          models.AnnouncementScope `json:"scope"`
	SentAt         time.Time                `json:"sent_at"`
}

// EventProducer publishes announcement events to Kafka through a
// buffered worker pool so sends never block on the broker.
type EventProducer struct {
	writer       *kafka.Writer
	eventChan    chan AnnouncementEvent
	workerCount  int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
}

// NewEventProducer creates the producer and starts its workers.
func NewEventProducer(broker string) *EventProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        "announcement-events",
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	ep := &EventProducer{
		writer:       writer,
		eventChan:    make(chan AnnouncementEvent, 1000),
		workerCount:  4,
		shutdownChan: make(chan struct{}),
	}
	ep.startWorkers()
	return ep
}

func (ep *EventProducer) startWorkers() {
	for i := 0; i < ep.workerCount; i++ {
		ep.wg.Add(1)
		go ep.eventWorker(i)
	}
	logrus.Infof("Started %d announcement event workers", ep.workerCount)
}

func (ep *EventProducer) eventWorker(id int) {
	defer ep.wg.Done()
	for {
		select {
		case event := <-ep.eventChan:
			if err := ep.writeEvent(event); err != nil {
				logrus.WithField("worker", id).Warnf("Failed to publish announcement event: %v", err)
			}
		case <-ep.shutdownChan:
			return
		}
	}
}

// EmitAnnouncement queues a realtime event for one delivery row.
// Safe on a nil producer (Kafka disabled) and never blocks; a full
// queue drops the event, the feed itself is database-derived.
func (ep *EventProducer) EmitAnnouncement(record *models.Notification) {
	if ep == nil {
		return
	}
	event := AnnouncementEvent{
		NotificationID: record.ID,
		OrganizationID: record.OrganizationID,
		BatchID:        record.BatchID,
		TargetUserID:   record.TargetUserID,
		Title:          record.Title,
		Scope:          record.ResolvedScope(),
		SentAt:         record.DeliveredAt(),
	}
	select {
	case ep.eventChan <- event:
	default:
		logrus.Warn("Announcement event queue full, event dropped")
	}
}

func (ep *EventProducer) writeEvent(event AnnouncementEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal announcement event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrganizationID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("announcement")},
			{Key: "organization_id", Value: []byte(event.OrganizationID.String())},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ep.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write announcement event: %w", err)
	}
	return nil
}

// Close drains the workers and closes the Kafka writer.
func (ep *EventProducer) Close() error {
	if ep == nil {
		return nil
	}
	close(ep.shutdownChan)
	ep.wg.Wait()
	close(ep.eventChan)
	if err := ep.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	return nil
}
