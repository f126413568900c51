package v1

import (
	"errors"
	"net/http"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/errorx"
)

// Gateway handler error codes.
// Code format: 1XXYYZ
//   - 1:  module prefix (gateway handler)
//   - XX: resource group (00=common, 01=chat, 02=task, 03=tool,
//     04=specialist, 05=session)
//   - YY: sequential error number
//   - Z:  reserved (0)

const (
	// Common request errors (100xxx).
	ErrBind       = 100001
	ErrValidation = 100002
	ErrDuplicate  = 100003
	ErrInvariant  = 100004

	// Chat dispatch errors (1001xx).
	ErrDispatch = 100101
	ErrRetry    = 100102

	// Task errors (1002xx).
	ErrTaskNotFound = 100201
	ErrTaskPoll     = 100202
	ErrTaskStream   = 100203

	// Tool errors (1003xx).
	ErrToolNotFound = 100301
	ErrToolCreate   = 100302
	ErrToolUpdate   = 100303
	ErrToolDelete   = 100304
	ErrToolList     = 100305
	ErrToolTest     = 100306

	// Specialist errors (1004xx).
	ErrSpecialistNotFound = 100401
	ErrSpecialistCreate   = 100402
	ErrSpecialistUpdate   = 100403
	ErrSpecialistDelete   = 100404
	ErrSpecialistList     = 100405
	ErrSpecialistClone    = 100406

	// Session errors (1005xx).
	ErrSessionNotFound = 100501
	ErrSessionList     = 100502
	ErrSessionDelete   = 100503
	ErrMessageList     = 100504
)

func init() {
	// Common.
	errorx.MustRegister(newCoder(ErrBind, http.StatusBadRequest, "Request body binding failed"))
	errorx.MustRegister(newCoder(ErrValidation, http.StatusBadRequest, "Request validation failed"))
	errorx.MustRegister(newCoder(ErrDuplicate, http.StatusConflict, "Resource name or symbol already exists"))
	errorx.MustRegister(newCoder(ErrInvariant, http.StatusUnprocessableEntity, "A tool may only be enabled after its current definition passed a test"))

	// Chat dispatch.
	errorx.MustRegister(newCoder(ErrDispatch, http.StatusInternalServerError, "Failed to dispatch chat turn"))
	errorx.MustRegister(newCoder(ErrRetry, http.StatusInternalServerError, "Failed to retry message"))

	// Task.
	errorx.MustRegister(newCoder(ErrTaskNotFound, http.StatusNotFound, "Task not found"))
	errorx.MustRegister(newCoder(ErrTaskPoll, http.StatusInternalServerError, "Failed to poll task"))
	errorx.MustRegister(newCoder(ErrTaskStream, http.StatusInternalServerError, "Failed to stream task"))

	// Tool.
	errorx.MustRegister(newCoder(ErrToolNotFound, http.StatusNotFound, "Tool not found"))
	errorx.MustRegister(newCoder(ErrToolCreate, http.StatusInternalServerError, "Failed to create tool"))
	errorx.MustRegister(newCoder(ErrToolUpdate, http.StatusInternalServerError, "Failed to update tool"))
	errorx.MustRegister(newCoder(ErrToolDelete, http.StatusInternalServerError, "Failed to delete tool"))
	errorx.MustRegister(newCoder(ErrToolList, http.StatusInternalServerError, "Failed to list tools"))
	errorx.MustRegister(newCoder(ErrToolTest, http.StatusInternalServerError, "Failed to run tool test"))

	// Specialist.
	errorx.MustRegister(newCoder(ErrSpecialistNotFound, http.StatusNotFound, "Specialist not found"))
	errorx.MustRegister(newCoder(ErrSpecialistCreate, http.StatusInternalServerError, "Failed to create specialist"))
	errorx.MustRegister(newCoder(ErrSpecialistUpdate, http.StatusInternalServerError, "Failed to update specialist"))
	errorx.MustRegister(newCoder(ErrSpecialistDelete, http.StatusInternalServerError, "Failed to delete specialist"))
	errorx.MustRegister(newCoder(ErrSpecialistList, http.StatusInternalServerError, "Failed to list specialists"))
	errorx.MustRegister(newCoder(ErrSpecialistClone, http.StatusInternalServerError, "Failed to clone specialist template"))

	// Session.
	errorx.MustRegister(newCoder(ErrSessionNotFound, http.StatusNotFound, "Session not found"))
	errorx.MustRegister(newCoder(ErrSessionList, http.StatusInternalServerError, "Failed to list sessions"))
	errorx.MustRegister(newCoder(ErrSessionDelete, http.StatusInternalServerError, "Failed to delete session"))
	errorx.MustRegister(newCoder(ErrMessageList, http.StatusInternalServerError, "Failed to list messages"))
}

type coder struct {
	code int
	http int
	msg  string
}

func newCoder(code, httpStatus int, msg string) *coder {
	return &coder{code: code, http: httpStatus, msg: msg}
}

func (c *coder) Code() int         { return c.code }
func (c *coder) HTTPStatus() int   { return c.http }
func (c *coder) String() string    { return c.msg }
func (c *coder) Reference() string { return "" }

// domainCode maps a domain sentinel onto the handler code space, falling
// back to the caller's default for unclassified errors.
func domainCode(err error, fallback int) int {
	switch {
	case errors.Is(err, errno.ErrDuplicateName), errors.Is(err, errno.ErrDuplicateSymbol):
		return ErrDuplicate
	case errors.Is(err, errno.ErrInvariantViolation):
		return ErrInvariant
	case errors.Is(err, errno.ErrMissingInput),
		errors.Is(err, errno.ErrMissingPayload),
		errors.Is(err, errno.ErrInvalidEnum),
		errors.Is(err, errno.ErrNoEntrypoint),
		errors.Is(err, errno.ErrMessageNotTerminal):
		return ErrValidation
	case errors.Is(err, errno.ErrToolNotFound):
		return ErrToolNotFound
	case errors.Is(err, errno.ErrSpecialistNotFound):
		return ErrSpecialistNotFound
	case errors.Is(err, errno.ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, errno.ErrTaskNotFound), errors.Is(err, errno.ErrMessageNotFound):
		return ErrTaskNotFound
	default:
		return fallback
	}
}
