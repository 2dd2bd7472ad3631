package errno

import (
	"errors"
	"fmt"
)

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "An error has occurred"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
)

// Session Errors (30000+)
var (
	ErrDiscoveryTimeout       = Errno{Code: 30001, Message: "Control panel not found"}
	ErrConnectFailed          = Errno{Code: 30002, Message: "Failed to connect to the control panel"}
	ErrAuthFailed             = Errno{Code: 30003, Message: "Control panel authentication failed"}
	ErrInvalidPeerCertificate = Errno{Code: 30004, Message: "This app is paired with a different device"}
	ErrRelayFailure           = Errno{Code: 30005, Message: "Device relay failed"}
	ErrNoActiveTransaction    = Errno{Code: 30006, Message: "There are no transactions active"}
	ErrCancelled              = Errno{Code: 30007, Message: "Operation cancelled"}
	ErrBusy                   = Errno{Code: 30008, Message: "A confirmation is already in progress"}
	ErrNotPaired              = Errno{Code: 30009, Message: "The app is not paired with a device"}
)

// Device / protocol / decode errors carry data, so their codes live here
const (
	CodeDeviceStatus   = 40001
	CodeRemoteProtocol = 40002
	CodeDecode         = 40003
)

// DeviceStatusError is a non-9000 status word returned by a device application.
// Callers treat it as a control signal (e.g. no such application on the device).
type DeviceStatusError struct {
	SW uint16
}

func (e *DeviceStatusError) Error() string {
	return fmt.Sprintf("device returned status word %04X", e.SW)
}

// RemoteProtocolError is a malformed command/response on the control panel channel.
type RemoteProtocolError struct {
	Message string
}

func (e *RemoteProtocolError) Error() string {
	return e.Message
}

// NewRemoteProtocolError returns a RemoteProtocolError with the given message.
func NewRemoteProtocolError(msg string) error {
	return &RemoteProtocolError{Message: msg}
}

// ErrProtocol is the generic shape-mismatch message.
const ErrProtocol = "protocol error"

// DecodeError is returned by the chain decoders.
type DecodeError struct {
	Chain   string
	Message string
}

func (e *DecodeError) Error() string {
	if e.Chain == "" {
		return e.Message
	}
	return e.Chain + ": " + e.Message
}

// NewDecodeError returns a DecodeError for the given chain.
func NewDecodeError(chain, format string, args ...any) error {
	return &DecodeError{Chain: chain, Message: fmt.Sprintf(format, args...)}
}

// Decode tries to convert an error to a code and a user facing message
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	// 1. 带数据的错误类型
	var (
		statusErr   *DeviceStatusError
		protocolErr *RemoteProtocolError
		decodeErr   *DecodeError
		typed       Errno
		typedPtr    *Errno
	)
	switch {
	case errors.As(err, &statusErr):
		return CodeDeviceStatus, statusErr.Error()
	case errors.As(err, &protocolErr):
		return CodeRemoteProtocol, "Remote protocol error: " + protocolErr.Message
	case errors.As(err, &decodeErr):
		return CodeDecode, decodeErr.Message
	// 2. 固定错误码 (可能被 %w 包装过)
	case errors.As(err, &typed):
		return typed.Code, typed.Message
	case errors.As(err, &typedPtr):
		return typedPtr.Code, typedPtr.Message
	default:
		return InternalServerError.Code, InternalServerError.Message
	}
}

// IsSilent reports whether err should never be shown to the user.
func IsSilent(err error) bool {
	return errors.Is(err, ErrCancelled)
}
