//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"lokal/internal/audit"
	"lokal/pkg/testutil/containers"
)

type KafkaSinkSuite struct {
	suite.Suite
	brokers []string
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *KafkaSinkSuite) TestAppendProducesJSONRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "lokal.audit.test"
	sink, err := audit.NewKafkaSink(ctx, s.brokers, topic)
	s.Require().NoError(err)
	defer sink.Close()

	// A second sink on the same topic tolerates the existing topic.
	again, err := audit.NewKafkaSink(ctx, s.brokers, topic)
	s.Require().NoError(err)
	again.Close()

	s.Require().NoError(sink.Append(ctx, audit.Event{
		Category: audit.CategoryContent,
		Action:   audit.ActionResourceCreated,
		Subject:  "user-1",
		Sid:      "WELCOME_MSG",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal("user-1", string(records[0].Key))
	s.Equal(audit.ActionResourceCreated, got.Action)
	s.Equal("WELCOME_MSG", got.Sid)
}
