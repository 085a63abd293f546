package grpcutil

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain is attached to the error details produced by this module.
const ErrorDomain = "gms"

// ErrorCode extracts a gRPC error code from an error. If the error is not a
// gRPC error, it returns codes.Unknown.
func ErrorCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}

	if st, ok := status.FromError(err); ok {
		return st.Code()
	}

	return codes.Unknown
}

// IsCanceled reports whether the error is a cancellation, either local or
// reported by the remote side.
func IsCanceled(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}

	return ErrorCode(err) == codes.Canceled
}

// ErrorInfo extracts an error info from an error. If the error is not a gRPC
// error or does not contain an error info, it returns nil.
func ErrorInfo(err error) *errdetails.ErrorInfo {
	st := status.Convert(err)

	for _, detail := range st.Details() {
		switch t := detail.(type) {
		case *errdetails.ErrorInfo:
			return t
		}
	}

	return nil
}

// StatusWithReason builds a status error carrying an ErrorInfo with the
// given machine-readable reason.
func StatusWithReason(code codes.Code, reason string, err error) error {
	st := status.New(code, err.Error())

	detailed, detailsErr := st.WithDetails(&errdetails.ErrorInfo{
		Domain: ErrorDomain,
		Reason: reason,
	})
	if detailsErr != nil {
		return st.Err()
	}

	return detailed.Err()
}
