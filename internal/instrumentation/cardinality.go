package instrumentation

// Calendar provider operation label values.
const (
	OperationList   = "list"
	OperationInsert = "insert"
	OperationDelete = "delete"
)
