package infra

import "time"

// InfraManager abstracts the backends an e2e run talks to.
// Local: fake product, vcsim and the agent run in-process.
// External: everything is managed outside the tests and only the agent URL is known.
type InfraManager interface {
	StartProduct() error
	StopProduct() error
	StartVcsim() error
	StopVcsim() error
	StartAgent(cfg AgentConfig) (string, error)
	StopAgent() error
}

// AgentConfig holds configuration for starting an agent instance.
type AgentConfig struct {
	NumWorkers   int
	WaitInterval time.Duration
	WaitTimeout  time.Duration
}

// ExternalInfraManager is used when the agent and its backends are deployed elsewhere.
type ExternalInfraManager struct {
	agentURL string
}

func NewExternalInfraManager(agentURL string) *ExternalInfraManager {
	return &ExternalInfraManager{agentURL: agentURL}
}

func (e *ExternalInfraManager) StartProduct() error { return nil }
func (e *ExternalInfraManager) StopProduct() error  { return nil }
func (e *ExternalInfraManager) StartVcsim() error   { return nil }
func (e *ExternalInfraManager) StopVcsim() error    { return nil }
func (e *ExternalInfraManager) StopAgent() error    { return nil }

func (e *ExternalInfraManager) StartAgent(_ AgentConfig) (string, error) {
	return e.agentURL, nil
}
