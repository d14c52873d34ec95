package rabbitmq_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rabbitmq/amqp091-go"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/rabbitmq"
	testlib "github.com/veedubyou/vocal-isolator/src/shared/testing"
)

var _ = Describe("QueuePublisher", func() {
	var (
		conn      *amqp091.Connection
		publisher *rabbitmq.QueuePublisher
		consumer  *testlib.RabbitMQConsumer
	)

	BeforeEach(func() {
		url := testlib.RabbitMQURL()

		publisher = testlib.ExpectSuccess(rabbitmq.NewQueuePublisher(url, testlib.RabbitMQQueueName))
		DeferCleanup(publisher.Close)

		conn = testlib.MakeRabbitMQConnection(url)
		DeferCleanup(func() {
			testlib.AfterSuiteRabbitMQ(conn)
			_ = conn.Close()
		})
		testlib.ResetRabbitMQ(conn)

		consumer = testlib.NewRabbitMQConsumer(conn)
		consumer.AsyncStart()
		DeferCleanup(consumer.Stop)
	})

	It("delivers published messages to the queue", func() {
		err := publisher.Publish(context.Background(), amqp091.Publishing{
			Type: "vocals_isolated",
			Body: []byte(`{"request_id":"req-1"}`),
		})
		Expect(err).NotTo(HaveOccurred())

		Eventually(consumer.Received).Should(HaveLen(1))

		received := consumer.Received()[0]
		Expect(received.Type).To(Equal("vocals_isolated"))
		Expect(received.Body).To(MatchJSON(`{"request_id":"req-1"}`))
	})

	It("reconnects after being closed", func() {
		publisher.Close()

		err := publisher.Publish(context.Background(), amqp091.Publishing{
			Type: "isolation_failed",
			Body: []byte(`{"request_id":"req-2"}`),
		})
		Expect(err).NotTo(HaveOccurred())

		Eventually(consumer.Received).Should(HaveLen(1))
	})
})
