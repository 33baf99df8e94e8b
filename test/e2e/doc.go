/*
Package e2e drives the qa-agent HTTP API end to end.

# Package Structure

	test/e2e/
	├── doc.go            This file
	├── e2e_suite_test.go Suite setup: InfraManager selection, agent start/stop
	├── e2e_test.go       Specs: backup, failure reporting, cancel, vm snapshots
	├── infra/
	│   ├── infra.go      InfraManager interface, AgentConfig, ExternalInfraManager
	│   └── local.go      LocalInfraManager (fake product, vcsim, in-process agent)
	└── service/
	    └── agent.go      AgentSvc, HTTP client for the agent API

# Infra Modes

QA_E2E_INFRA selects the mode:

  - local (default): the fake product from test/fakeproduct, a vcsim model and
    the agent assembled like the serve command all run in the test process.
  - external: QA_E2E_AGENT_URL points at a deployed agent. Specs that need to
    script the product are skipped.

# Running

	go test ./test/e2e/...
	QA_E2E_INFRA=external QA_E2E_AGENT_URL=http://qa-agent:8000 go test ./test/e2e/...
*/
package e2e
