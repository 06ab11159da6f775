package errors

// Error code ranges, mirroring the ambient convention used across this
// codebase: 4xxx client errors, 5xxx internal errors, 6xxx external/remote
// failures, 7xxx initialization errors, 9xxx domain-specific conflicts.
const (
	RequestParameterInvalid = 4001
	RequestDataExists       = 4002
	AuthFailed              = 4003
	RequestDataNotExisted   = 4004
	PermissionDeny          = 4005
	InvalidOperation        = 4006
	InvalidArgument         = 4007

	InternalError     = 5000
	InvalidDataError  = 5001
	CodeDatabaseError = 5002

	ClientError       = 6001
	K8SOperationError = 6002
	OpensearchError   = 6003

	CodeInitializeError = 7001
	CodeLackOfConfig    = 7002

	CodeRemoteServiceError = 8001
	CodeInvalidArgument    = 8002

	// Domain-specific codes for the workflow coordinator, extending the
	// ambient ranges above rather than inventing a new scheme.
	CodeNotFound          = 4010
	CodeConflict          = 4011
	CodeIllegalTransition = 4012
	CodeInvalidStatus     = 4013
	CodeNoPeersAvailable  = 5010
	CodeStaleHandle       = 5011
	CodeSnapshotCorrupt   = 5012
	CodePersistenceFailed = 5013
	CodeClockCorrupt      = 5014
)
