package dummy

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/events"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/outputs"
	"github.com/veedubyou/vocal-isolator/src/isolator/internal/secrets"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/rabbitmq"
)

var _ secrets.Store = &SecretStore{}

func NewDummySecretStore() *SecretStore {
	return &SecretStore{
		State: map[string][]byte{},
	}
}

type SecretStore struct {
	Unavailable bool
	State       map[string][]byte
	mutex       sync.RWMutex
}

func (s *SecretStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	if s.Unavailable {
		return nil, false, NetworkFailure
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	value, ok := s.State[name]
	return value, ok, nil
}

var _ outputs.Store = &OutputStore{}

func NewDummyOutputStore() *OutputStore {
	return &OutputStore{
		State: map[string][]byte{},
	}
}

// OutputStore keeps saved artifacts in memory, keyed by artifact name.
type OutputStore struct {
	Unavailable bool
	State       map[string][]byte
	mutex       sync.RWMutex
}

func (o *OutputStore) Save(ctx context.Context, localPath string) (outputs.Artifact, error) {
	if o.Unavailable {
		return outputs.Artifact{}, NetworkFailure
	}

	contents, err := os.ReadFile(localPath)
	if err != nil {
		return outputs.Artifact{}, cerr.Wrap(err).Error("Failed to read artifact")
	}

	name := filepath.Base(localPath)

	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.State[name] = contents
	return outputs.Artifact{
		Name: name,
		URL:  "https://outputs.example.com/" + name,
	}, nil
}

func (o *OutputStore) Get(name string) ([]byte, error) {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	contents, ok := o.State[name]
	if !ok {
		return nil, NotFound
	}

	return contents, nil
}

var _ events.Notifier = &Notifier{}

type Notifier struct {
	mutex  sync.Mutex
	events []events.Event
}

func (n *Notifier) Notify(ctx context.Context, event events.Event) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.events = append(n.events, event)
}

func (n *Notifier) Events() []events.Event {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	return append([]events.Event(nil), n.events...)
}

var _ rabbitmq.Publisher = &Publisher{}

type Publisher struct {
	Unavailable bool
	mutex       sync.Mutex
	messages    []amqp091.Publishing
}

func (p *Publisher) Publish(ctx context.Context, msg amqp091.Publishing) error {
	if p.Unavailable {
		return NetworkFailure
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.messages = append(p.messages, msg)
	return nil
}

func (p *Publisher) Messages() []amqp091.Publishing {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return append([]amqp091.Publishing(nil), p.messages...)
}
