package logging

// Field names shared by every component so log lines can be filtered consistently.
const (
	FieldFile          = "file_path"
	FieldBank          = "bank"
	FieldAccountID     = "account_id"
	FieldImportID      = "import_id"
	FieldTransactionID = "transaction_id"
	FieldMerchantKey   = "merchant_key"
	FieldCategory      = "category"
	FieldStrategy      = "strategy"
	FieldConfidence    = "confidence"
	FieldStage         = "stage"
	FieldRow           = "row"
	FieldCount         = "count"
	FieldReason        = "reason"
	FieldOperation     = "operation"
	FieldDuration      = "duration_ms"
)
