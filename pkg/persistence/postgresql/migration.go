package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE automations (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT FALSE,
				owner VARCHAR(255),
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				last_run TIMESTAMP WITH TIME ZONE,
				next_run TIMESTAMP WITH TIME ZONE,
				last_error_date TIMESTAMP WITH TIME ZONE,
				last_error_message TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_automations_active ON automations(active);
			CREATE INDEX idx_automations_owner ON automations(owner);
			CREATE INDEX idx_automations_next_run ON automations(next_run);
		`,
	}
}
