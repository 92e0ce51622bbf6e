package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Operation layer.
	ErrBadRequest      = "E_BAD_REQUEST"
	ErrUnknownOp       = "E_UNKNOWN_OP"
	ErrTerrainNotFound = "E_TERRAIN_NOT_FOUND"
	ErrRoadNotFound    = "E_ROAD_NOT_FOUND"
	ErrBudget          = "E_BUDGET"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrUnknownOp:       {},
	ErrTerrainNotFound: {},
	ErrRoadNotFound:    {},
	ErrBudget:          {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
