package mailxqueue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/clientela/clientela/pkg/logx"
	"github.com/clientela/clientela/pkg/mailx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Options parametriza el outbox.
type Options struct {
	// QueueKey es la lista Redis de correos listos para enviar.
	QueueKey string

	MaxRetries   int
	PollInterval time.Duration
	RetryDelay   time.Duration
}

// RedisOutbox es un outbox de correo sobre Redis: una lista de sobres listos
// y un sorted set de reintentos programados. Implementa mailx.Enqueuer.
type RedisOutbox struct {
	rdb  *redis.Client
	opts Options
}

// NewRedisOutbox crea el outbox.
func NewRedisOutbox(rdb *redis.Client, opts Options) *RedisOutbox {
	if opts.QueueKey == "" {
		opts.QueueKey = "mailx:outbox"
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 30 * time.Second
	}
	return &RedisOutbox{rdb: rdb, opts: opts}
}

func (o *RedisOutbox) readyKey() string     { return o.opts.QueueKey }
func (o *RedisOutbox) scheduledKey() string { return o.opts.QueueKey + ":scheduled" }

// Enqueue coloca un correo en el outbox para despacho asíncrono.
func (o *RedisOutbox) Enqueue(ctx context.Context, msg mailx.EmailMessage) (string, error) {
	now := time.Now().UTC()
	env := mailx.Envelope{
		ID:         uuid.NewString(),
		Message:    msg,
		MaxRetries: o.opts.MaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", queueErrors.NewWithCause(ErrMarshal, err)
	}

	if err := o.rdb.LPush(ctx, o.readyKey(), data).Err(); err != nil {
		return "", queueErrors.NewWithCause(ErrEnqueue, err).WithDetail("queue", o.readyKey())
	}

	return env.ID, nil
}

// dequeue bloquea hasta que hay un sobre listo o vence el timeout.
func (o *RedisOutbox) dequeue(ctx context.Context) (*mailx.Envelope, error) {
	result, err := o.rdb.BRPop(ctx, o.opts.PollInterval, o.readyKey()).Result()
	if err != nil {
		if err == redis.Nil || ctx.Err() != nil {
			return nil, nil
		}
		return nil, queueErrors.NewWithCause(ErrDequeue, err)
	}

	// result[0] = key, result[1] = sobre serializado
	var env mailx.Envelope
	if err := json.Unmarshal([]byte(result[1]), &env); err != nil {
		return nil, queueErrors.NewWithCause(ErrMarshal, err)
	}

	return &env, nil
}

// scheduleRetry reprograma un sobre fallido para dentro de RetryDelay.
func (o *RedisOutbox) scheduleRetry(ctx context.Context, env *mailx.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return queueErrors.NewWithCause(ErrMarshal, err)
	}

	score := float64(time.Now().UTC().Add(o.opts.RetryDelay).Unix())
	return o.rdb.ZAdd(ctx, o.scheduledKey(), redis.Z{Score: score, Member: data}).Err()
}

// promoteScript mueve sobres cuyo turno llegó del sorted set a la lista
// de listos. Lua para que mover y borrar sean un solo paso.
var promoteScript = redis.NewScript(`
local scheduled_key = KEYS[1]
local ready_key = KEYS[2]
local now = tonumber(ARGV[1])
local items = redis.call('ZRANGEBYSCORE', scheduled_key, '-inf', now)
if #items > 0 then
    for _, item in ipairs(items) do
        redis.call('LPUSH', ready_key, item)
    end
    redis.call('ZREMRANGEBYSCORE', scheduled_key, '-inf', now)
end
return #items
`)

func (o *RedisOutbox) promoteScheduled(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	err := promoteScript.Run(ctx, o.rdb, []string{o.scheduledKey(), o.readyKey()}, now).Err()
	if err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// Worker drena el outbox y entrega por el Sender configurado.
type Worker struct {
	outbox *RedisOutbox
	sender mailx.Sender
}

// NewWorker crea el worker de despacho.
func NewWorker(outbox *RedisOutbox, sender mailx.Sender) *Worker {
	return &Worker{outbox: outbox, sender: sender}
}

// Start procesa el outbox hasta que se cancele el contexto.
func (w *Worker) Start(ctx context.Context) error {
	logx.Infof("mailx: outbox worker started (queue=%s)", w.outbox.readyKey())

	ticker := time.NewTicker(w.outbox.opts.PollInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.outbox.promoteScheduled(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					logx.WithError(err).Warn("mailx: failed to promote scheduled mail")
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logx.Info("mailx: outbox worker stopped")
			return nil
		default:
		}

		env, err := w.outbox.dequeue(ctx)
		if err != nil {
			logx.WithError(err).Warn("mailx: dequeue error")
			time.Sleep(w.outbox.opts.PollInterval)
			continue
		}
		if env == nil {
			continue
		}

		w.deliver(ctx, env)
	}
}

func (w *Worker) deliver(ctx context.Context, env *mailx.Envelope) {
	env.Attempts++
	env.UpdatedAt = time.Now().UTC()

	if err := w.sender.Send(ctx, env.Message); err != nil {
		env.LastError = err.Error()
		logx.WithError(err).Warnf("mailx: delivery failed (id=%s attempt=%d/%d)", env.ID, env.Attempts, env.MaxRetries)

		if env.Attempts >= env.MaxRetries {
			logx.Errorf("mailx: giving up on mail %s after %d attempts", env.ID, env.Attempts)
			return
		}

		if err := w.outbox.scheduleRetry(ctx, env); err != nil {
			logx.WithError(err).Errorf("mailx: failed to schedule retry for mail %s", env.ID)
		}
		return
	}

	logx.Debugf("mailx: mail %s delivered", env.ID)
}
