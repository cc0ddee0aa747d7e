package protocol

import "fmt"

// DecodeBackend dispatches a raw Frame (already read by FrameReader) to
// the matching BackendMessage implementation and decodes it.
func DecodeBackend(f Frame) (BackendMessage, error) {
	if !f.HasKind {
		return nil, fmt.Errorf("pgwire: backend frame missing kind byte")
	}

	var msg BackendMessage
	switch f.Kind {
	case kindAuthentication:
		msg = &Authentication{}
	case kindBackendKeyData:
		msg = &BackendKeyData{}
	case kindBindComplete:
		msg = &BindComplete{}
	case kindCloseComplete:
		msg = &CloseComplete{}
	case kindCommandComplete:
		msg = &CommandComplete{}
	case kindCopyData:
		msg = &CopyData{}
	case kindCopyDone:
		msg = &CopyDone{}
	case kindCopyInResponse:
		msg = &CopyInResponse{}
	case kindCopyOutResponse:
		msg = &CopyOutResponse{}
	case kindCopyBothResponse:
		msg = &CopyBothResponse{}
	case kindDataRow:
		msg = &DataRow{}
	case kindEmptyQueryResponse:
		msg = &EmptyQueryResponse{}
	case kindErrorResponse:
		msg = &ErrorResponse{}
	case kindNoData:
		msg = &NoData{}
	case kindNoticeResponse:
		msg = &NoticeResponse{}
	case kindParameterDescription:
		msg = &ParameterDescription{}
	case kindParameterStatus:
		msg = &ParameterStatus{}
	case kindParseComplete:
		msg = &ParseComplete{}
	case kindReadyForQuery:
		msg = &ReadyForQuery{}
	case kindRowDescription:
		msg = &RowDescription{}
	default:
		return nil, fmt.Errorf("pgwire: unknown backend message kind %q", f.Kind)
	}

	if err := msg.Decode(f.Payload); err != nil {
		return nil, err
	}
	return msg, nil
}
