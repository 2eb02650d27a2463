package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/shiny-beauty/api/internal/services"
)

func TestPubSubProgramPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "program-changes")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubProgramPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubProgramPublisher: %v", err)
	}

	event := services.ProgramChangeEvent{
		ProgramID:  "sp-1",
		Action:     "updated",
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	if _, err := publisher.PublishProgramChange(ctx, event); err != nil {
		t.Fatalf("PublishProgramChange: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.ProgramChangeEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ProgramID != event.ProgramID || payload.Action != event.Action {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["programId"]; attr != "sp-1" {
		t.Fatalf("expected programId attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["action"]; attr != "updated" {
		t.Fatalf("expected action attribute, got %q", attr)
	}
}

func TestPubSubProgramPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubProgramPublisher(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}
}
