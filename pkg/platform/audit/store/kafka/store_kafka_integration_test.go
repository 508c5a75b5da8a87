//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	id "verigrant/pkg/domain"
	"verigrant/pkg/platform/audit"
	"verigrant/pkg/platform/audit/store/kafka"
	"verigrant/pkg/testutil/containers"
)

func TestKafkaAuditAppend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	broker := containers.NewRedpandaContainer(t)
	defer broker.Close(ctx)

	const topic = "verigrant.treasury.audit.test"

	adminClient := broker.NewClient(t)
	defer adminClient.Close()
	admin := kadm.NewClient(adminClient)
	_, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	require.NoError(t, err)

	producer, err := kafka.Dial(broker.Brokers)
	require.NoError(t, err)
	defer producer.Close()

	store := kafka.New(producer, kafka.WithTopic(topic))

	actor := id.AccountID(uuid.New())
	grantee := id.AccountID(uuid.New())
	event := audit.Event{
		Category:  audit.CategoryCompliance,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Grantee:   grantee,
		Action:    string(audit.EventGrantDisbursed),
		Amount:    1000,
		RequestID: "req-1",
	}
	require.NoError(t, store.Append(ctx, event))

	consumer := broker.NewClient(t,
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, actor.String(), string(records[0].Key),
		"records are keyed by actor for per-account ordering")

	var decoded struct {
		Category  string `json:"category"`
		Actor     string `json:"actor"`
		Grantee   string `json:"grantee"`
		Action    string `json:"action"`
		Amount    int64  `json:"amount"`
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(records[0].Value, &decoded))
	assert.Equal(t, "compliance", decoded.Category)
	assert.Equal(t, actor.String(), decoded.Actor)
	assert.Equal(t, grantee.String(), decoded.Grantee)
	assert.Equal(t, "grant_disbursed", decoded.Action)
	assert.Equal(t, int64(1000), decoded.Amount)
	assert.Equal(t, "req-1", decoded.RequestID)
}
