// Package queue implements an optional asynq-backed run-ingestion
// front end: an alternative to the HTTP endpoint for callers that want
// to enqueue a processing run and collect its terminal events later
// rather than hold an SSE connection open, grounded on the teacher's
// own internal/queue/consumer.go (Asynq server/mux wiring, per-task
// timeout context, structured status updates) generalized from a
// single-document BullMQ job onto a full processing Request.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/owenffff/infotransform-engine/internal/logging"
	"github.com/owenffff/infotransform-engine/internal/model"
	"github.com/owenffff/infotransform-engine/internal/orchestrator"
	"github.com/owenffff/infotransform-engine/internal/sse"
)

const TaskTypeProcessRun = "process-run"

// RunJob is the payload enqueued for one processing run.
type RunJob struct {
	RunID        string            `json:"run_id"`
	Files        []model.FileEntry `json:"files"`
	SchemaKey    string            `json:"schema_key"`
	Instructions string            `json:"instructions"`
	ModelID      string            `json:"model_id"`
}

// EventSink receives every event a queued run emits, keyed by run ID,
// so a caller that enqueued the run can collect it out of band (e.g.
// persist to the Run Ledger's companion store, or relay over a
// separate notification channel). The orchestrator itself already
// records run-level outcome in the Run Ledger; EventSink exists for
// callers that also want the full per-event stream.
type EventSink func(runID string, evt sse.Event)

// Consumer runs processing tasks pulled from a Redis-backed Asynq
// queue, each one driving a full orchestrator.Process run.
type Consumer struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	orch   *orchestrator.Orchestrator
	sink   EventSink
	log    *logging.Logger

	timeout time.Duration
}

type Config struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	ProcessingTimeout time.Duration // 0 uses a 5 minute default
}

func NewConsumer(cfg Config, orch *orchestrator.Orchestrator, sink EventSink, log *logging.Logger) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("task processing error", "type", task.Type(), "err", err)
			}),
		},
	)

	timeout := cfg.ProcessingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	c := &Consumer{client: client, server: server, mux: asynq.NewServeMux(), orch: orch, sink: sink, log: log, timeout: timeout}
	c.mux.HandleFunc(TaskTypeProcessRun, c.handleProcessRun)
	return c, nil
}

// Enqueue submits one run for background processing, returning
// immediately with the asynq task ID.
func (c *Consumer) Enqueue(ctx context.Context, job RunJob) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run job: %w", err)
	}
	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeProcessRun, payload))
	if err != nil {
		return "", fmt.Errorf("failed to enqueue run: %w", err)
	}
	return info.ID, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("starting run queue consumer", "queue", TaskTypeProcessRun)
	go func() {
		if err := c.server.Run(c.mux); err != nil {
			c.log.Error("run queue consumer stopped with error", "err", err)
		}
	}()
	return nil
}

func (c *Consumer) Stop(ctx context.Context) error {
	c.server.Shutdown()
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close queue client: %w", err)
	}
	return nil
}

func (c *Consumer) handleProcessRun(ctx context.Context, task *asynq.Task) error {
	var job RunJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal run job: %w", err)
	}

	c.log.Info("processing queued run", "run_id", job.RunID, "files", len(job.Files))

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.orch.Process(runCtx, orchestrator.Request{
		Files:        job.Files,
		SchemaKey:    job.SchemaKey,
		Instructions: job.Instructions,
		ModelID:      job.ModelID,
		RunID:        job.RunID,
	}, func(evt sse.Event) {
		if c.sink != nil {
			c.sink(job.RunID, evt)
		}
	})

	return nil
}
