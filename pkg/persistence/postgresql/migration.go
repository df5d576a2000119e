package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow definitions. Nodes and edges are nested JSONB so a
			-- graph read is a single atomic row fetch.
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(100) NOT NULL,
				trigger_config JSONB DEFAULT '{}',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				active BOOLEAN NOT NULL DEFAULT false,
				run_once_per_lead BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_tenant_id ON workflows(tenant_id);
			CREATE INDEX idx_workflows_trigger_type ON workflows(trigger_type) WHERE active;

			-- Execution records. The snapshot column is the graph captured at
			-- start; node_results is append-only history.
			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				tenant_id VARCHAR(255) NOT NULL,
				lead_id VARCHAR(255),
				conversation_id VARCHAR(255),
				snapshot JSONB NOT NULL,
				status VARCHAR(50) NOT NULL,
				context JSONB NOT NULL DEFAULT '{}',
				node_results JSONB NOT NULL DEFAULT '[]',
				frontier JSONB NOT NULL DEFAULT '[]',
				error_message TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_lead_id ON executions(lead_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_workflow_lead ON executions(workflow_id, lead_id)
				WHERE status IN ('running', 'suspended');

			-- Suspended-node wait records.
			CREATE TABLE wait_states (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				tenant_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				kind VARCHAR(50) NOT NULL,
				resume_at TIMESTAMP WITH TIME ZONE,
				match JSONB,
				resumed BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_wait_states_pending_node ON wait_states(execution_id, node_id)
				WHERE NOT resumed;
			CREATE INDEX idx_wait_states_due ON wait_states(resume_at)
				WHERE NOT resumed AND resume_at IS NOT NULL;
			CREATE INDEX idx_wait_states_tenant_kind ON wait_states(tenant_id, kind)
				WHERE NOT resumed;
		`,
	}
}
