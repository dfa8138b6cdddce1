package iam

import (
	"net/http"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("IAM")

var (
	CodeAccessDenied = ErrRegistry.Register("ACCESS_DENIED", errx.TypeAuthorization, http.StatusForbidden, "Access denied")
)

func ErrAccessDenied() *errx.Error {
	return ErrRegistry.New(CodeAccessDenied)
}
