package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// queues of the stac ingester: discovered files and item results
var queues = []string{"stac-ingester-files", "stac-ingester-results"}

func main() {
	ctx := context.Background()

	projectID := flag.String("project", "stac-ingester-emulator", "emulator project")
	host := flag.String("host", "localhost:8085", "emulator host")
	ackDeadline := flag.Duration("ack-deadline", 60*time.Second, "ack deadline of the subscriptions (gdalinfo on a remote file may be slow)")
	flag.Parse()

	os.Setenv("PUBSUB_EMULATOR_HOST", *host)

	log.Print("New client for project " + *projectID)
	client, err := pubsub.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatalf("pubsub.NewClient: %v", err)
	}
	defer client.Close()

	for _, q := range queues {
		log.Print("Create Topic : " + q)
		if _, err = client.CreateTopic(ctx, q); err != nil && status.Code(err) != codes.AlreadyExists {
			log.Fatalf("pubsub.CreateTopic: %v", err)
		}

		log.Print("Create Subscription : " + q)
		if _, err = client.CreateSubscription(ctx, q, pubsub.SubscriptionConfig{
			Topic:       client.Topic(q),
			AckDeadline: *ackDeadline,
		}); err != nil && status.Code(err) != codes.AlreadyExists {
			log.Fatalf("CreateSubscription: %v", err)
		}
	}

	log.Print("Done!")
}
