package log

const (
	// HTTP request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Gateway
	FieldConnID      = "conn_id"
	FieldDisplayName = "display_name"
	FieldRoomID      = "room_id"
	FieldOccupancy   = "occupancy"
	FieldEvent       = "event"

	// Process
	FieldService    = "service"
	FieldInstanceID = "instance_id"

	// gRPC
	FieldGRPCMethod = "grpc_method"
	FieldGRPCCode   = "grpc_code"

	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
