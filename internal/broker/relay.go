package broker

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/rajivgeraev/carswipe-api/internal/config"
	"github.com/rajivgeraev/carswipe-api/internal/logger"
	"github.com/rajivgeraev/carswipe-api/internal/models"
)

// LocalBroadcaster рассылает сообщение соединениям текущего инстанса
type LocalBroadcaster interface {
	BroadcastMessage(ctx context.Context, msg *models.Message) error
}

// Relay публикует сохранённые сообщения в NATS. Каждый инстанс подписан
// на все чаты и пересылает полученное в свои локальные комнаты.
type Relay struct {
	nc     *nats.Conn
	prefix string
	local  LocalBroadcaster
	log    logger.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// Connect подключается к NATS
func Connect(cfg config.NATSConfig, local LocalBroadcaster, log logger.Logger) (*Relay, error) {
	log = log.With("component", "nats-relay")

	nc, err := nats.Connect(cfg.URL,
		nats.Name("carswipe-api"),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Errorf("NATS error on %q: %v", subject, err)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warnf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to NATS")
	}
	log.Infof("Connected to NATS at %s", nc.ConnectedUrl())

	return NewRelay(nc, cfg.SubjectPrefix, local, log), nil
}

// NewRelay создаёт ретранслятор поверх готового соединения
func NewRelay(nc *nats.Conn, prefix string, local LocalBroadcaster, log logger.Logger) *Relay {
	return &Relay{
		nc:     nc,
		prefix: strings.TrimSuffix(prefix, "."),
		local:  local,
		log:    log,
	}
}

// Subject тема NATS для чата
func (r *Relay) Subject(msg *models.Message) string {
	return r.prefix + "." + msg.ChatID.String()
}

// Start подписывается на сообщения всех чатов
func (r *Relay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil {
		return nil
	}

	sub, err := r.nc.Subscribe(r.prefix+".*", r.handle)
	if err != nil {
		return errors.Wrapf(err, "failed to subscribe to %s.*", r.prefix)
	}
	r.sub = sub
	return nil
}

func (r *Relay) handle(m *nats.Msg) {
	var msg models.Message
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		r.log.Warnf("Dropping malformed relay message on %s: %v", m.Subject, err)
		return
	}
	if err := r.local.BroadcastMessage(context.Background(), &msg); err != nil {
		r.log.Warnf("Local broadcast of %s failed: %v", msg.ID, err)
	}
}

// BroadcastMessage публикует сообщение. Локальные комнаты получат его через
// подписку. Если публикация не удалась, рассылаем хотя бы локально.
func (r *Relay) BroadcastMessage(ctx context.Context, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	if err := r.nc.Publish(r.Subject(msg), data); err != nil {
		r.log.Errorf("Failed to publish message %s: %v", msg.ID, err)
		return r.local.BroadcastMessage(ctx, msg)
	}
	return nil
}

// Close отписывается и закрывает соединение, дожидаясь доставки
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil {
			r.log.Warnf("Unsubscribe failed: %v", err)
		}
		r.sub = nil
	}
	return r.nc.Drain()
}
