package jobxredis

import "github.com/alebhayan/King-Laminaat/pkg/errx"

var redisErrors = errx.NewRegistry("JOBX_REDIS")

var (
	ErrAcquire = redisErrors.Register("ACQUIRE", errx.TypeExternal, 500, "Redis lock acquire failed")
	ErrRelease = redisErrors.Register("RELEASE", errx.TypeExternal, 500, "Redis lock release failed")
	ErrLost    = redisErrors.Register("LOST", errx.TypeConflict, 409, "Redis lock expired or taken over")
)
