package queue

import (
	"strings"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/service"
)

type Queue struct {
	dispatcher service.Dispatcher
}

func NewQueue(dispatcher service.Dispatcher) *Queue {
	return &Queue{dispatcher: dispatcher}
}

// Mux routes every task type this service consumes.
func (q *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeSchedulePost, q.HandleSchedulePostTask)
	return mux
}

// RedisOpt accepts either a redis:// URI or a bare host:port address.
func RedisOpt(uri string) (asynq.RedisConnOpt, error) {
	if strings.Contains(uri, "://") {
		return asynq.ParseRedisURI(uri)
	}
	return asynq.RedisClientOpt{Addr: uri}, nil
}

const TaskTypeSchedulePost = "schedule:post"

type SchedulePostPayload struct {
	PostID string `json:"post_id"`
}
