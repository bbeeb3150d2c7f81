package types

// GraphQL-related constants used throughout the codebase.
// Centralizing these prevents typos and makes refactoring safer.
const (
	// TypenameField is the GraphQL introspection field used for type
	// discrimination. It is never sent back in update payloads.
	TypenameField = "__typename"

	// ErrorTypeName is the object type used by mutation result envelopes
	// to report validation errors. It is the only list element type the
	// field-set resolver descends into.
	ErrorTypeName = "Error"

	// CriteriaVariable is the sole variable of a list query.
	CriteriaVariable = "criteria"

	// IDVariable is the identifier variable of get, update and delete.
	IDVariable = "id"
)

// Operation name suffixes appended to the domain name.
const (
	ListQuerySuffix    = "ListQuery"
	GetSuffix          = "Get"
	CreateMutateSuffix = "CreateMutate"
	UpdateMutateSuffix = "UpdateMutate"
	DeleteMutateSuffix = "DeleteMutate"
	TypeQuerySuffix    = "TypeQuery"
)

// Root field suffixes appended to the domain name.
const (
	ListFieldSuffix   = "List"
	CreateFieldSuffix = "Create"
	UpdateFieldSuffix = "Update"
	DeleteFieldSuffix = "Delete"
)

// Reserved criteria keys understood by the backend query layer.
const (
	MaxKey    = "max"
	OffsetKey = "offset"
	OrderKey  = "order"
)

// DefaultExcludedUpdateKeys are server-populated or protocol metadata
// fields whose presence makes an update fail backend validation.
var DefaultExcludedUpdateKeys = []string{
	"errors",
	TypenameField,
	"id",
	"lastUpdated",
	"dateCreated",
	"version",
}

// Paging defaults.
const (
	DefaultPageSize   = 10
	UnknownTotalCount = -1
)

// NoMoreDataText is the informational message shown when a next page is
// requested past the last one.
const NoMoreDataText = "no more data"
