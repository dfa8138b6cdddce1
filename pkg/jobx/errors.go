package jobx

import "github.com/alebhayan/King-Laminaat/pkg/errx"

var jobxErrors = errx.NewRegistry("JOBX")

var (
	ErrInvalidTask     = jobxErrors.Register("INVALID_TASK", errx.TypeValidation, 400, "Invalid task definition")
	ErrDuplicateTask   = jobxErrors.Register("DUPLICATE_TASK", errx.TypeConflict, 409, "Task already registered")
	ErrTaskNotFound    = jobxErrors.Register("TASK_NOT_FOUND", errx.TypeNotFound, 404, "Task not found")
	ErrAlreadyRunning  = jobxErrors.Register("ALREADY_RUNNING", errx.TypeConflict, 409, "Scheduler is already running")
	ErrShutdownTimeout = jobxErrors.Register("SHUTDOWN_TIMEOUT", errx.TypeInternal, 500, "Graceful shutdown timed out")
)
