package store

const (
	// SystemSettingSchemaVersion stores the schema version the database was last migrated to.
	SystemSettingSchemaVersion = "schema_version"
)

// SystemSetting is a named instance-wide value.
type SystemSetting struct {
	Name  string
	Value string
}
