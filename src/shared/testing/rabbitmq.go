package testing

import (
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	"github.com/rabbitmq/amqp091-go"
)

const (
	RabbitMQURLEnvKey = "TEST_RABBITMQ_URL"
	RabbitMQQueueName = "vocal-isolator-test-events"
)

// RabbitMQURL skips the current test when no test broker is configured.
func RabbitMQURL() string {
	url := os.Getenv(RabbitMQURLEnvKey)
	if url == "" {
		Skip(RabbitMQURLEnvKey + " is not set")
	}

	return url
}

func MakeRabbitMQConnection(url string) *amqp091.Connection {
	return ExpectSuccess(amqp091.Dial(url))
}

func ResetRabbitMQ(conn *amqp091.Connection) {
	channel := ExpectSuccess(conn.Channel())
	defer channel.Close()

	ExpectSuccess(channel.QueuePurge(RabbitMQQueueName, false))
}

func AfterSuiteRabbitMQ(conn *amqp091.Connection) {
	channel := ExpectSuccess(conn.Channel())
	defer channel.Close()

	ExpectSuccess(channel.QueueDelete(RabbitMQQueueName, false, false, false))
}

type ReceivedMessage struct {
	Type string
	Body []byte
}

type RabbitMQConsumer struct {
	channel *amqp091.Channel

	mutex            sync.Mutex
	receivedMessages []ReceivedMessage
}

func NewRabbitMQConsumer(conn *amqp091.Connection) *RabbitMQConsumer {
	return &RabbitMQConsumer{
		channel: ExpectSuccess(conn.Channel()),
	}
}

func (r *RabbitMQConsumer) AsyncStart() {
	messageStream := ExpectSuccess(r.channel.Consume(
		RabbitMQQueueName,
		"",
		true,
		false,
		false,
		false,
		nil,
	))

	go func() {
		for message := range messageStream {
			r.mutex.Lock()
			r.receivedMessages = append(r.receivedMessages, ReceivedMessage{
				Type: message.Type,
				Body: message.Body,
			})
			r.mutex.Unlock()
		}
	}()
}

func (r *RabbitMQConsumer) Stop() {
	_ = r.channel.Close()
}

func (r *RabbitMQConsumer) Received() []ReceivedMessage {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return append([]ReceivedMessage(nil), r.receivedMessages...)
}
