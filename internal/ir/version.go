package ir

// Version constants for persisted documents and the engine.
const (
	// SchemaVersion tags every persisted world document.
	SchemaVersion = 1

	// EngineVersion is the AGS engine version.
	EngineVersion = "0.1.0"
)
