package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldUserID    = "user_id"
	FieldClusterID = "cluster_id"
	FieldExpenseID = "expense_id"
	FieldDate      = "date"
	FieldBackend   = "backend"
	FieldKey       = "key"
)

// Components
const (
	ComponentApp      = "app"
	ComponentStorage  = "storage"
	ComponentAuth     = "auth"
	ComponentExpenses = "expenses"
	ComponentCLI      = "cli"
)

// Operations
const (
	OpLogin  = "login"
	OpLogout = "logout"
	OpList   = "list"
	OpFilter = "filter"
	OpUpsert = "upsert"
	OpRemove = "remove"
)
