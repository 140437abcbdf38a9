package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger JSONB NOT NULL,
				actions JSONB NOT NULL DEFAULT '[]',
				status VARCHAR(16) NOT NULL CHECK (status IN ('active', 'paused', 'error')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			-- Append-only; seq gives a stable newest-first order even when
			-- two records share an executed_at timestamp.
			CREATE TABLE execution_logs (
				seq BIGSERIAL PRIMARY KEY,
				id VARCHAR(64) NOT NULL,
				workflow_id VARCHAR(64) NOT NULL,
				execution_id VARCHAR(64) NOT NULL,
				status VARCHAR(16) NOT NULL CHECK (status IN ('running', 'success', 'error')),
				message TEXT NOT NULL DEFAULT '',
				executed_at TIMESTAMP WITH TIME ZONE NOT NULL,
				duration_ns BIGINT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_execution_logs_workflow_seq ON execution_logs(workflow_id, seq DESC);

			CREATE TABLE metric_samples (
				seq BIGSERIAL PRIMARY KEY,
				id VARCHAR(64) NOT NULL,
				cpu_percent DOUBLE PRECISION NOT NULL,
				memory_percent DOUBLE PRECISION NOT NULL,
				recorded_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
	}
}
