package effect

// Event names carried on world.Change records. The engine publishes one
// event per change after commit.
const (
	EventHPChanged           = "hp_changed"
	EventResourceChanged     = "resource_changed"
	EventZoneChanged         = "zone_changed"
	EventClockChanged        = "clock_changed"
	EventGuardChanged        = "guard_changed"
	EventMarkAdded           = "mark_added"
	EventMarkRemoved         = "mark_removed"
	EventTagAdded            = "tag_added"
	EventTagRemoved          = "tag_removed"
	EventRelationshipChanged = "relationship_changed"
	EventKnownByChanged      = "known_by_changed"
	EventVisibilityChanged   = "visibility_changed"
	EventExitChanged         = "exit_changed"
	EventInventoryChanged    = "inventory_changed"
	EventEntitySpawned       = "entity_spawned"
	EventEntityRemoved       = "entity_removed"
	EventTurnAdvanced        = "turn_advanced"
	EventRoundAdvanced       = "round_advanced"
	EventEffectScheduled     = "effect_scheduled"
	EventEffectUnscheduled   = "effect_unscheduled"
	EventChoiceChanged       = "choice_changed"
)
