package captchaai

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// lifecycle runs the create -> poll -> terminal state machine over one
// Exchanger. Client keeps one per execution mode.
type lifecycle struct {
	ex       Exchanger
	apiKey   string
	interval time.Duration
	policy   PollPolicy
	sleep    sleepFunc
	now      func() time.Time
}

// createTask validates task, builds the createTask payload and submits it.
func (l *lifecycle) createTask(ctx context.Context, task Task) (*CreateTaskResponse, error) {
	fields, err := taskFields(task)
	if err != nil {
		slog.Warn("captchaai: invalid task", slog.Any("error", err))
		return nil, err
	}
	payload := createTaskRequest{
		ClientKey: l.apiKey,
		Task:      fields,
		AppID:     appID,
	}

	body, err := l.ex.Exchange(ctx, endpointCreateTask, payload)
	if err != nil {
		return nil, err
	}
	res, err := parseCreateTask(body)
	if err != nil {
		slog.Error("captchaai: bad createTask response", slog.Any("error", err))
		return nil, err
	}
	if res.ErrorID {
		slog.Warn("captchaai: createTask rejected",
			slog.String("type", string(task.TaskType())),
			slog.String("code", res.ErrorCode),
			slog.String("description", res.ErrorDescription))
		return res, nil
	}
	slog.Info("captchaai: task created",
		slog.String("type", string(task.TaskType())),
		slog.String("taskId", res.TaskID))
	return res, nil
}

// getTaskResult performs one getTaskResult call without waiting.
func (l *lifecycle) getTaskResult(ctx context.Context, taskID string) (*TaskResultResponse, error) {
	payload := getTaskResultRequest{ClientKey: l.apiKey, TaskID: taskID}

	body, err := l.ex.Exchange(ctx, endpointGetTaskResult, payload)
	if err != nil {
		return nil, err
	}
	res, err := parseTaskResult(body)
	if err != nil {
		slog.Error("captchaai: bad getTaskResult response", slog.String("taskId", taskID), slog.Any("error", err))
		return nil, err
	}
	return res, nil
}

// poll performs one getTaskResult call. While the task is idle or processing
// it waits one interval and reports done=false; otherwise it returns at once.
func (l *lifecycle) poll(ctx context.Context, taskID string) (*TaskResultResponse, bool, error) {
	res, err := l.getTaskResult(ctx, taskID)
	if err != nil {
		return nil, false, err
	}
	if res.Terminal() {
		return res, true, nil
	}
	if err := l.sleep(ctx, l.interval); err != nil {
		slog.Warn("captchaai: stopped waiting for task", slog.String("taskId", taskID), slog.Any("error", err))
		return res, false, err
	}
	return res, false, nil
}

// process creates task and polls until a terminal status, a PollPolicy bound,
// ctx cancellation or an error.
func (l *lifecycle) process(ctx context.Context, task Task) (*TaskResultResponse, error) {
	created, err := l.createTask(ctx, task)
	if err != nil {
		return nil, err
	}
	if created.ErrorID {
		return &TaskResultResponse{Response: created.Response, TaskID: created.TaskID}, nil
	}

	budget := l.policy.start(l.now())
	for {
		res, err := l.getTaskResult(ctx, created.TaskID)
		if err != nil {
			return nil, err
		}
		budget.record()

		if res.Terminal() {
			logResult(res)
			return res, nil
		}

		slog.Debug("captchaai: task pending",
			slog.String("taskId", created.TaskID),
			slog.String("status", string(res.Status)),
			slog.Int("attempt", budget.attempts))

		if err := budget.allowNext(l.now().Add(l.interval)); err != nil {
			slog.Warn("captchaai: giving up on task", slog.String("taskId", created.TaskID), slog.Any("error", err))
			return nil, fmt.Errorf("task %s: %w", created.TaskID, err)
		}
		if err := l.sleep(ctx, l.interval); err != nil {
			slog.Warn("captchaai: stopped waiting for task", slog.String("taskId", created.TaskID), slog.Any("error", err))
			return nil, err
		}
	}
}

func logResult(res *TaskResultResponse) {
	switch {
	case res.ErrorID:
		slog.Warn("captchaai: task error",
			slog.String("taskId", res.TaskID),
			slog.String("code", res.ErrorCode),
			slog.String("description", res.ErrorDescription))
	case res.Status == StatusReady:
		slog.Info("captchaai: task solved", slog.String("taskId", res.TaskID))
	case !res.Status.Known():
		slog.Warn("captchaai: unrecognized task status, treating as terminal",
			slog.String("taskId", res.TaskID),
			slog.String("status", string(res.Status)))
	default:
		slog.Info("captchaai: task finished",
			slog.String("taskId", res.TaskID),
			slog.String("status", string(res.Status)))
	}
}
