package errors

import (
	"errors"
	"fmt"
)

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	UpstreamService   string              `json:"upstream_service,omitempty"`
	UpstreamOperation string              `json:"upstream_operation,omitempty"`
	UpstreamStatus    int                 `json:"upstream_status,omitempty"`
	UpstreamMessage   string              `json:"upstream_message,omitempty"`
	UpstreamFields    map[string][]string `json:"upstream_fields,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var upstream *Upstream
	if errors.As(err, &upstream) {
		d.UpstreamService = upstream.Service
		d.UpstreamOperation = upstream.Operation
		d.UpstreamStatus = upstream.Status
		d.UpstreamMessage = upstream.Message
		d.UpstreamFields = upstream.Fields
	}

	return d
}
