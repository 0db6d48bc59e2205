package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Room coordination
	FieldRoomID       = "room_id"
	FieldConnectionID = "connection_id"
	FieldTargetID     = "target_id"
	FieldDisplayName  = "display_name"
	FieldReason       = "reason"
	FieldEventType    = "event_type"

	// Service
	FieldService = "service"

	// gRPC
	FieldGRPCMethod = "grpc_method"
	FieldGRPCCode   = "grpc_code"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
