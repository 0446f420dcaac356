package a2a

import (
	"context"

	"ai-agents/internal/hub"

	sdka2a "github.com/a2aproject/a2a-go/a2a"
)

// TaskStoreAdapter exposes the hub's TaskManager as an a2asrv.TaskStore.
type TaskStoreAdapter struct {
	manager *hub.TaskManager
}

func NewTaskStoreAdapter(manager *hub.TaskManager) *TaskStoreAdapter {
	return &TaskStoreAdapter{manager: manager}
}

func (s *TaskStoreAdapter) Save(ctx context.Context, task *sdka2a.Task) error {
	internalTask := FromSDKTask(task)
	s.manager.Create(&internalTask)
	return nil
}

func (s *TaskStoreAdapter) Get(ctx context.Context, taskID sdka2a.TaskID) (*sdka2a.Task, error) {
	task, ok := s.manager.Get(string(taskID))
	if !ok {
		return nil, sdka2a.ErrTaskNotFound
	}
	return ToSDKTask(*task), nil
}
