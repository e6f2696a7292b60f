package postgres

// migrations returns the versioned schema for the automation store. Entity
// rows live in their own tables (the relational system of record); the
// denormalized editor graph rides on the automation row as JSONB and is
// always written in the same transaction.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS automations (
				id UUID PRIMARY KEY,
				owner_id TEXT NOT NULL,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT FALSE,
				is_draft BOOLEAN NOT NULL DEFAULT TRUE,
				flow_metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_automations_owner ON automations(owner_id) WHERE deleted_at IS NULL;
			CREATE INDEX IF NOT EXISTS idx_automations_active ON automations(enabled, is_draft) WHERE deleted_at IS NULL;

			CREATE TABLE IF NOT EXISTS automation_triggers (
				id UUID PRIMARY KEY,
				automation_id UUID NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
				trigger_type TEXT NOT NULL,
				config JSONB NOT NULL,
				position INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_automation_triggers_automation ON automation_triggers(automation_id);

			CREATE TABLE IF NOT EXISTS automation_conditions (
				id UUID PRIMARY KEY,
				automation_id UUID NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
				condition_type TEXT NOT NULL,
				config JSONB NOT NULL,
				position INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_automation_conditions_automation ON automation_conditions(automation_id);

			CREATE TABLE IF NOT EXISTS automation_actions (
				id UUID PRIMARY KEY,
				automation_id UUID NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
				action_type TEXT NOT NULL,
				config JSONB NOT NULL,
				position INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_automation_actions_automation ON automation_actions(automation_id);

			CREATE TABLE IF NOT EXISTS automation_logs (
				id UUID PRIMARY KEY,
				automation_id UUID NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
				executed_at TIMESTAMP WITH TIME ZONE NOT NULL,
				status TEXT NOT NULL,
				details TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_automation_logs_automation ON automation_logs(automation_id, executed_at DESC);
		`,
	}
}
