package schedule

import "context"

// Task 长期运行的后台任务, ctx 取消后 Run 返回 nil
type Task interface {
	Run(ctx context.Context) error
	Name() string
}
