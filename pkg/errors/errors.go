package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	ErrCodeResolutionFailed ErrCode = "RESOLUTION_FAILED"
	ErrCodeExternalCommand  ErrCode = "EXTERNAL_COMMAND"
	ErrCodeUserInput        ErrCode = "USER_INPUT"
	ErrCodeLoadFailed       ErrCode = "LOAD_FAILED"
	ErrCodeAssetNotFound    ErrCode = "ASSET_NOT_FOUND"
	ErrCodeConfigInvalid    ErrCode = "CONFIG_INVALID"
	ErrCodeInternal         ErrCode = "INTERNAL"
	ErrCodeUnknow           ErrCode = "UNKNOWN"
)

type ErrCode string

type ErrorInfo struct {
	HttpStatus int     `json:"-"`
	Code       ErrCode `json:"code"`
	Message    string  `json:"message"`
	Detail     string  `json:"detail,omitempty"`
}

func (e ErrorInfo) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func IsErrCode(err error, code ErrCode) bool {
	if err == nil {
		return false
	}
	info := ErrorInfo{}
	if errors.As(err, &info) {
		return info.Code == code
	}
	return false
}

func NewResolutionError(msg string) ErrorInfo {
	return ErrorInfo{HttpStatus: http.StatusUnprocessableEntity, Code: ErrCodeResolutionFailed, Message: msg}
}

func NewExternalCommandError(command string, output string) ErrorInfo {
	return ErrorInfo{
		HttpStatus: http.StatusBadGateway,
		Code:       ErrCodeExternalCommand,
		Message:    fmt.Sprintf("command %s failed", command),
		Detail:     output,
	}
}

func NewUserInputError(msg string) ErrorInfo {
	return ErrorInfo{HttpStatus: http.StatusBadRequest, Code: ErrCodeUserInput, Message: msg}
}

func NewLoadError(err error) ErrorInfo {
	return ErrorInfo{HttpStatus: http.StatusInternalServerError, Code: ErrCodeLoadFailed, Message: err.Error()}
}

func NewAssetNotFoundError(assetType string, name string, version string) ErrorInfo {
	return ErrorInfo{
		HttpStatus: http.StatusNotFound,
		Code:       ErrCodeAssetNotFound,
		Message:    fmt.Sprintf("%s %s:%s not found", assetType, name, version),
	}
}

func NewConfigInvalidError(msg string) ErrorInfo {
	return ErrorInfo{HttpStatus: http.StatusBadRequest, Code: ErrCodeConfigInvalid, Message: msg}
}

func NewInternalError(err error) ErrorInfo {
	return ErrorInfo{HttpStatus: http.StatusInternalServerError, Code: ErrCodeInternal, Message: err.Error()}
}
