package dynamo

// DynamoDB attribute and index names shared across repos.
const (
	fieldUserID     = "user_id"
	fieldEmail      = "email"
	fieldExternalID = "external_id"
	fieldVerified   = "verified"
	fieldUpdatedAt  = "updated_at"
	fieldCode       = "code"
	fieldExpiresAt  = "expires_at"
	fieldNoteID     = "note_id"
	fieldCreatedAt  = "created_at"
	fieldKey        = "key"

	indexUserCreated = "user_id-created_at-index"
)
