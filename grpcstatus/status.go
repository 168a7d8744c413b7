// Package grpcstatus provides an errplain hook for errors carrying a grpc Status, and
// renders protobuf messages, like status details, with protojson.
//
// Errors created by google.golang.org/grpc/status, or any error implementing
// GRPCStatuser, flatten with:
//
//   - code: the name of the grpc code, e.g. "NotFound"
//   - message: the status message, rather than "rpc error: code = ... desc = ..."
//   - details: the status details, if any
package grpcstatus

import (
	"encoding/json"

	"github.com/ansel1/errplain"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// DetailsKey is the key status details are rendered under.
var DetailsKey = "details"

// GRPCStatuser knows how to return a Status.
type GRPCStatuser interface {
	GRPCStatus() *status.Status
}

// Install installs Inspector and MarshalProto as errplain hooks.
func Install() {
	errplain.AddHooks(Inspector(), errplain.MarshalFunc(MarshalProto))
}

// Inspector renders the Status of errors implementing GRPCStatuser.  Wrapping errors are
// left alone: only the error which carries the Status is affected.
func Inspector() errplain.Inspector {
	return func(err error, info *errplain.ErrorInfo) {
		s, ok := err.(GRPCStatuser)
		if !ok {
			return
		}

		st := s.GRPCStatus()
		if st == nil {
			return
		}

		info.Code = st.Code().String()
		info.Message = errplain.TrimCause(st.Message(), info.Cause)

		if details := st.Details(); len(details) > 0 {
			info.Set(DetailsKey, details)
		}
	}
}

// MarshalProto renders protobuf messages with protojson.  Other values are not handled.
func MarshalProto(v interface{}) (interface{}, bool, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, false, nil
	}

	b, err := protojson.Marshal(m)
	if err != nil {
		return nil, true, err
	}

	var plain interface{}
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, true, err
	}
	return plain, true, nil
}
